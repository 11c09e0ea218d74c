package receipt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StatusSandboxReceipt is returned by the production endpoint for a sandbox receipt.
const StatusSandboxReceipt = 21007

// Environment is the verification endpoint that produced a response.
type Environment string

const (
	Production Environment = "Production"
	Sandbox    Environment = "Sandbox"
)

// Millis is an epoch-milliseconds timestamp. Apple encodes these as strings.
type Millis int64

func (m *Millis) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid epoch millis %q: %w", s, err)
	}
	*m = Millis(n)
	return nil
}

// Time converts m, reporting false when it is unset.
func (m Millis) Time() (time.Time, bool) {
	if m <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(m)).UTC(), true
}

// Transaction is one purchase record of a verification response. Raw keeps
// the record exactly as Apple sent it.
type Transaction struct {
	TransactionID         string          `json:"transaction_id"`
	OriginalTransactionID string          `json:"original_transaction_id"`
	ProductID             string          `json:"product_id"`
	PurchaseDate          Millis          `json:"purchase_date_ms"`
	ExpiresDate           Millis          `json:"expires_date_ms"`
	Raw                   json.RawMessage `json:"-"`
}

func (t *Transaction) UnmarshalJSON(b []byte) error {
	type plain Transaction
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*t = Transaction(p)
	t.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// ID returns the transaction id, falling back to the original transaction id.
func (t *Transaction) ID() string {
	if t.TransactionID != "" {
		return t.TransactionID
	}
	return t.OriginalTransactionID
}

// ReceiptInfo is the decoded receipt. Its own top-level fields form the
// primary transaction record.
type ReceiptInfo struct {
	Transaction
	BundleID string        `json:"bundle_id"`
	InApp    []Transaction `json:"in_app"`
}

func (r *ReceiptInfo) UnmarshalJSON(b []byte) error {
	var aux struct {
		BundleID string        `json:"bundle_id"`
		InApp    []Transaction `json:"in_app"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if err := r.Transaction.UnmarshalJSON(b); err != nil {
		return err
	}
	r.BundleID = aux.BundleID
	r.InApp = aux.InApp
	return nil
}

// VerifyResponse is the body of a verifyReceipt call.
type VerifyResponse struct {
	Status            int           `json:"status"`
	Environment       string        `json:"environment,omitempty"`
	Receipt           *ReceiptInfo  `json:"receipt,omitempty"`
	LatestReceiptInfo []Transaction `json:"latest_receipt_info,omitempty"`

	// VerifiedAgainst is the endpoint that produced this response.
	VerifiedAgainst Environment `json:"-"`
	// Raw is the undecoded body.
	Raw json.RawMessage `json:"-"`
}

// LatestTransaction picks the most recent entry of latest_receipt_info, else
// of receipt.in_app, else the receipt record itself. It returns nil when the
// response carries no receipt at all.
func (v *VerifyResponse) LatestTransaction() *Transaction {
	if t := mostRecent(v.LatestReceiptInfo); t != nil {
		return t
	}
	if v.Receipt == nil {
		return nil
	}
	if t := mostRecent(v.Receipt.InApp); t != nil {
		return t
	}
	return &v.Receipt.Transaction
}

func mostRecent(ts []Transaction) *Transaction {
	var best *Transaction
	for i := range ts {
		if best == nil || ts[i].PurchaseDate > best.PurchaseDate {
			best = &ts[i]
		}
	}
	return best
}
