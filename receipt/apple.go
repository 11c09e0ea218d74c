package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"workshop-backend/config"
	"workshop-backend/domain"
)

type verifyRequest struct {
	ReceiptData            string `json:"receipt-data"`
	Password               string `json:"password,omitempty"`
	ExcludeOldTransactions bool   `json:"exclude-old-transactions,omitempty"`
}

// AppleVerifier calls the legacy verifyReceipt endpoints.
type AppleVerifier struct {
	productionURL string
	sandboxURL    string
	sharedSecret  string
	http          *resty.Client
}

func NewAppleVerifier(cfg config.AppStoreConfig) *AppleVerifier {
	if cfg.SharedSecret == "" {
		log.Warn().Msg("APP_STORE_SHARED_SECRET is not set, auto-renewable receipts will not verify")
	}
	return &AppleVerifier{
		productionURL: cfg.ProductionURL,
		sandboxURL:    cfg.SandboxURL,
		sharedSecret:  cfg.SharedSecret,
		http:          resty.New().SetTimeout(15 * time.Second),
	}
}

// Verify checks receiptData against production and, when Apple answers 21007,
// exactly once against sandbox. A non-zero status is returned as a response,
// not an error.
func (a *AppleVerifier) Verify(ctx context.Context, receiptData string, excludeOld bool) (*VerifyResponse, error) {
	if receiptData == "" {
		return nil, fmt.Errorf("%w: missing receipt data", domain.ErrInvalidRequest)
	}
	body := verifyRequest{
		ReceiptData:            receiptData,
		Password:               a.sharedSecret,
		ExcludeOldTransactions: excludeOld,
	}

	resp, err := a.post(ctx, a.productionURL, Production, body)
	if err != nil {
		return nil, err
	}
	if resp.Status != StatusSandboxReceipt {
		return resp, nil
	}

	log.Info().Msg("production verification returned 21007, retrying against sandbox")
	return a.post(ctx, a.sandboxURL, Sandbox, body)
}

func (a *AppleVerifier) post(ctx context.Context, url string, env Environment, body verifyRequest) (*VerifyResponse, error) {
	resp, err := a.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("%w: verifyReceipt (%s): %v", domain.ErrUpstreamUnreachable, env, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: verifyReceipt (%s): HTTP %d", domain.ErrUpstreamFailed, env, resp.StatusCode())
	}

	var out VerifyResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("%w: verifyReceipt (%s): invalid JSON: %v", domain.ErrUpstreamFailed, env, err)
	}
	out.VerifiedAgainst = env
	out.Raw = append(json.RawMessage(nil), resp.Body()...)
	return &out, nil
}
