package controllers

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"workshop-backend/domain"
	"workshop-backend/middlewares"
	"workshop-backend/receipt"
)

// ReceiptVerifier is satisfied by *receipt.AppleVerifier.
type ReceiptVerifier interface {
	Verify(ctx context.Context, receiptData string, excludeOld bool) (*receipt.VerifyResponse, error)
}

// PurchaseReconciler is satisfied by *receipt.Reconciler.
type PurchaseReconciler interface {
	Reconcile(ctx context.Context, sub receipt.Submission) (*receipt.Result, error)
}

type ReceiptController struct {
	verifier   ReceiptVerifier
	reconciler PurchaseReconciler
}

func NewReceiptController(verifier ReceiptVerifier, reconciler PurchaseReconciler) *ReceiptController {
	return &ReceiptController{verifier: verifier, reconciler: reconciler}
}

type verifyReceiptRequest struct {
	ReceiptData            string `json:"receiptData" validate:"required"`
	ExcludeOldTransactions bool   `json:"excludeOldTransactions"`
}

// Verify handles POST /api/verify-ios-receipt. A valid receipt answers with
// Apple's own JSON.
func (h *ReceiptController) Verify(c *fiber.Ctx) error {
	var req verifyReceiptRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	resp, err := h.verifier.Verify(c.UserContext(), req.ReceiptData, req.ExcludeOldTransactions)
	if err != nil {
		return err
	}
	if resp.Status != 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  verificationMessage(resp.Status),
			"status": resp.Status,
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(resp.Raw)
}

type migratePurchaseRequest struct {
	DeviceID  string `json:"device_id" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
	AppSlug   string `json:"app_slug"`
	Receipt   string `json:"receipt" validate:"required"`
	ProductID string `json:"product_id"`
	Platform  string `json:"platform"`
}

// Migrate handles POST /api/migrate-device-purchase.
func (h *ReceiptController) Migrate(c *fiber.Ctx) error {
	var req migratePurchaseRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	// User tokens may only bind receipts to their own account.
	if middlewares.Caller(c) == middlewares.CallerUser && middlewares.UserID(c) != req.UserID {
		return fiber.NewError(fiber.StatusUnauthorized, "user_id does not match the authenticated user")
	}

	res, err := h.reconciler.Reconcile(c.UserContext(), receipt.Submission{
		DeviceID:  req.DeviceID,
		UserID:    req.UserID,
		AppSlug:   req.AppSlug,
		Receipt:   req.Receipt,
		ProductID: req.ProductID,
		Platform:  req.Platform,
	})

	var vErr *receipt.VerificationError
	switch {
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Receipt already bound to another account",
		})
	case errors.As(err, &vErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   verificationMessage(vErr.Status),
		})
	case err != nil:
		return err
	}

	if res.Outcome == receipt.AlreadyMigrated {
		return c.JSON(fiber.Map{"success": true, "message": "Already migrated"})
	}
	return c.JSON(fiber.Map{"success": true})
}

func verificationMessage(status int) string {
	return fmt.Sprintf("Apple verification failed status: %d", status)
}
