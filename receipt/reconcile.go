package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"workshop-backend/domain"
	"workshop-backend/models"
)

const (
	defaultAppSlug   = "unknown"
	defaultPlatform  = "ios"
	unknownProductID = "unknown"
)

// PurchaseRepository stores verified purchases keyed by receipt hash.
//
// FindByReceiptHash returns (nil, nil) when no row matches; Insert returns
// domain.ErrDuplicate when the receipt hash is already stored.
type PurchaseRepository interface {
	FindByReceiptHash(ctx context.Context, hash string) (*models.Purchase, error)
	Insert(ctx context.Context, purchase *models.Purchase) error
}

// Verifier is satisfied by *AppleVerifier.
type Verifier interface {
	Verify(ctx context.Context, receiptData string, excludeOld bool) (*VerifyResponse, error)
}

// Submission is a client request to bind a device-held receipt to an account.
type Submission struct {
	DeviceID  string
	UserID    string
	AppSlug   string
	Receipt   string
	ProductID string
	Platform  string
}

// Outcome tells a fresh binding from an idempotent replay.
type Outcome int

const (
	Created Outcome = iota + 1
	AlreadyMigrated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyMigrated:
		return "already_migrated"
	default:
		return "unknown"
	}
}

type Result struct {
	Outcome  Outcome
	Purchase *models.Purchase
}

// VerificationError is a non-zero verifyReceipt status.
type VerificationError struct {
	Status int
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("apple verification failed with status %d", e.Status)
}

func (e *VerificationError) Unwrap() error { return domain.ErrUpstreamRejected }

// Reconciler binds each distinct receipt to exactly one account.
type Reconciler struct {
	purchases PurchaseRepository
	verifier  Verifier
	now       func() time.Time
}

func NewReconciler(purchases PurchaseRepository, verifier Verifier) *Reconciler {
	return &Reconciler{purchases: purchases, verifier: verifier, now: time.Now}
}

// SetNow overrides the time function (for testing).
func (r *Reconciler) SetNow(fn func() time.Time) { r.now = fn }

// Reconcile verifies and records sub. Replaying a receipt for its owner
// succeeds without calling Apple; a receipt held by another account is
// domain.ErrConflict.
func (r *Reconciler) Reconcile(ctx context.Context, sub Submission) (*Result, error) {
	if sub.DeviceID == "" || sub.UserID == "" || sub.Receipt == "" {
		return nil, fmt.Errorf("%w: missing required fields: device_id, user_id, receipt", domain.ErrInvalidRequest)
	}
	hash := Hash(sub.Receipt)
	logger := log.With().Str("user_id", sub.UserID).Str("receipt_hash", hash).Logger()

	existing, err := r.purchases.FindByReceiptHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("looking up receipt: %w", err)
	}
	if existing != nil {
		return ownership(existing, sub.UserID)
	}

	verified, err := r.verifier.Verify(ctx, sub.Receipt, false)
	if err != nil {
		return nil, err
	}
	if verified.Status != 0 {
		logger.Info().Int("status", verified.Status).Msg("receipt verification failed")
		return nil, &VerificationError{Status: verified.Status}
	}

	purchase := r.purchaseFrom(sub, hash, verified)
	err = r.purchases.Insert(ctx, purchase)
	if errors.Is(err, domain.ErrDuplicate) {
		// A concurrent submission of the same receipt won the insert.
		winner, findErr := r.purchases.FindByReceiptHash(ctx, hash)
		if findErr != nil {
			return nil, fmt.Errorf("re-reading receipt after duplicate insert: %w", findErr)
		}
		if winner == nil {
			return nil, fmt.Errorf("receipt %s vanished after duplicate insert: %w", hash, err)
		}
		logger.Info().Str("owner", winner.UserID).Msg("lost receipt insert race")
		return ownership(winner, sub.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("inserting purchase: %w", err)
	}

	logger.Info().Str("product_id", purchase.ProductID).Str("environment", purchase.Environment).Msg("receipt bound to account")
	return &Result{Outcome: Created, Purchase: purchase}, nil
}

func ownership(p *models.Purchase, userID string) (*Result, error) {
	if p.UserID != userID {
		return nil, fmt.Errorf("%w: receipt already bound to another account", domain.ErrConflict)
	}
	return &Result{Outcome: AlreadyMigrated, Purchase: p}, nil
}

func (r *Reconciler) purchaseFrom(sub Submission, hash string, verified *VerifyResponse) *models.Purchase {
	now := r.now().UTC()
	p := &models.Purchase{
		UserID:         sub.UserID,
		AppSlug:        firstNonEmpty(sub.AppSlug, defaultAppSlug),
		Platform:       firstNonEmpty(sub.Platform, defaultPlatform),
		ReceiptHash:    hash,
		ReceiptExcerpt: Excerpt(sub.Receipt),
		SourceDeviceID: sub.DeviceID,
		IsValid:        true,
		Environment:    string(verified.VerifiedAgainst),
		PurchasedAt:    now,
		ProductID:      firstNonEmpty(sub.ProductID, unknownProductID),
	}

	tx := verified.LatestTransaction()
	if tx == nil {
		return p
	}
	p.ProductID = firstNonEmpty(tx.ProductID, sub.ProductID, unknownProductID)
	p.TransactionID = tx.ID()
	if t, ok := tx.PurchaseDate.Time(); ok {
		p.PurchasedAt = t
	}
	if t, ok := tx.ExpiresDate.Time(); ok {
		p.ExpiresAt = &t
	}
	if len(tx.Raw) > 0 {
		p.Transaction = datatypes.JSON(tx.Raw)
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
