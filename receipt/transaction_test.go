package receipt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) *VerifyResponse {
	t.Helper()
	var v VerifyResponse
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return &v
}

func TestLatestTransaction_PrefersLatestReceiptInfo(t *testing.T) {
	v := decode(t, `{
		"status": 0,
		"receipt": {"product_id": "receipt.level", "in_app": [{"transaction_id": "in-app", "purchase_date_ms": "1700000000000"}]},
		"latest_receipt_info": [
			{"transaction_id": "older", "product_id": "pro.monthly", "purchase_date_ms": "1700000000000"},
			{"transaction_id": "newest", "product_id": "pro.yearly", "purchase_date_ms": "1710000000000", "expires_date_ms": "1741536000000"},
			{"transaction_id": "middle", "product_id": "pro.monthly", "purchase_date_ms": "1705000000000"}
		]
	}`)

	tx := v.LatestTransaction()
	require.NotNil(t, tx)
	assert.Equal(t, "newest", tx.ID())
	assert.Equal(t, "pro.yearly", tx.ProductID)

	purchased, ok := tx.PurchaseDate.Time()
	require.True(t, ok)
	assert.Equal(t, time.UnixMilli(1710000000000).UTC(), purchased)
	assert.JSONEq(t, `{"transaction_id": "newest", "product_id": "pro.yearly", "purchase_date_ms": "1710000000000", "expires_date_ms": "1741536000000"}`, string(tx.Raw))
}

func TestLatestTransaction_FallsBackToInApp(t *testing.T) {
	v := decode(t, `{
		"status": 0,
		"receipt": {"bundle_id": "com.rocket", "in_app": [
			{"transaction_id": "a", "purchase_date_ms": 1600000000000},
			{"transaction_id": "b", "purchase_date_ms": "1650000000000"}
		]}
	}`)
	assert.Equal(t, "com.rocket", v.Receipt.BundleID)
	assert.Equal(t, "b", v.LatestTransaction().ID())
}

func TestLatestTransaction_FallsBackToReceipt(t *testing.T) {
	v := decode(t, `{"status": 0, "receipt": {"original_transaction_id": "orig-1", "product_id": "lifetime"}}`)
	tx := v.LatestTransaction()
	require.NotNil(t, tx)
	assert.Equal(t, "orig-1", tx.ID())
	assert.Equal(t, "lifetime", tx.ProductID)
	_, ok := tx.PurchaseDate.Time()
	assert.False(t, ok)
}

func TestLatestTransaction_NoReceipt(t *testing.T) {
	v := decode(t, `{"status": 21003}`)
	assert.Nil(t, v.LatestTransaction())
}

func TestMillis_Invalid(t *testing.T) {
	var m Millis
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &m))
	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	assert.Equal(t, Millis(0), m)
}
