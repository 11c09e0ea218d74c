package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"workshop-backend/config"
	"workshop-backend/domain"
	"workshop-backend/models"
)

// testDB connects to DATABASE_URL and migrates it. The store tests are
// skipped when no database is available.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := Connect(config.DatabaseConfig{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, Migrate(db))
	return db
}

func randomHash() string {
	sum := sha256.Sum256([]byte(uuid.NewString()))
	return hex.EncodeToString(sum[:])
}

func TestUserStore(t *testing.T) {
	db := testDB(t)
	store := NewUserStore(db)
	ctx := context.Background()

	email := "wechat_" + uuid.NewString() + "@rocket-workshop.anonymous"
	phone := "+86" + uuid.NewString()[:8]

	found, err := store.FindByEmail(ctx, email)
	require.NoError(t, err)
	assert.Nil(t, found)

	user := &models.User{Email: email, Phone: &phone, Provider: "wechat"}
	require.NoError(t, user.SetPassword("pw"))
	require.NoError(t, store.Create(ctx, user))
	t.Cleanup(func() { db.Delete(&models.User{}, "id = ?", user.ID) })

	found, err = store.FindByEmail(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.NoError(t, found.ComparePassword("pw"))

	testCases := []struct {
		name           string
		user           *models.User
		wantConstraint string
	}{
		{"same_email", &models.User{Email: email, Password: []byte("x")}, models.UserEmailIndex},
		{"same_phone", &models.User{Email: uuid.NewString() + "@test.rocket", Phone: &phone, Password: []byte("x")}, models.UserPhoneIndex},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Create(ctx, tc.user)
			var dup *domain.DuplicateError
			require.ErrorAs(t, err, &dup)
			assert.Equal(t, tc.wantConstraint, dup.Constraint)
		})
	}
}

func TestPurchaseStore(t *testing.T) {
	db := testDB(t)
	store := NewPurchaseStore(db)
	ctx := context.Background()
	hash := randomHash()

	found, err := store.FindByReceiptHash(ctx, hash)
	require.NoError(t, err)
	assert.Nil(t, found)

	purchase := &models.Purchase{
		UserID:      "user-" + uuid.NewString(),
		AppSlug:     "rocket",
		ProductID:   "pro.lifetime",
		Platform:    "ios",
		ReceiptHash: hash,
		IsValid:     true,
		PurchasedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Insert(ctx, purchase))
	t.Cleanup(func() { db.Delete(&models.Purchase{}, "id = ?", purchase.ID) })

	found, err = store.FindByReceiptHash(ctx, hash)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, purchase.ID, found.ID)
	assert.Equal(t, purchase.UserID, found.UserID)
	assert.Equal(t, "pro.lifetime", found.ProductID)
	assert.Equal(t, "rocket", found.AppSlug)
	// Only the ownership columns are loaded.
	assert.Empty(t, found.Platform)
	assert.True(t, found.PurchasedAt.IsZero())

	again := *purchase
	again.ID = ""
	again.UserID = "someone-else"
	err = store.Insert(ctx, &again)
	var dup *domain.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "uniq_user_purchases_receipt_hash", dup.Constraint)
}

func TestIdempotencyStore_Lifecycle(t *testing.T) {
	db := testDB(t)
	store := NewIdempotencyStore(db)
	ctx := context.Background()
	userID, key := "user-"+uuid.NewString(), uuid.NewString()
	t.Cleanup(func() { db.Delete(&models.IdempotencyKey{}, "user_id = ?", userID) })

	rec, created, err := store.Reserve(ctx, &models.IdempotencyKey{UserID: userID, Key: key, RequestHash: "h1"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 0, rec.ResponseStatus)

	// Releasing a pending key lets the client retry from scratch.
	require.NoError(t, store.Release(ctx, userID, key))
	_, created, err = store.Reserve(ctx, &models.IdempotencyKey{UserID: userID, Key: key, RequestHash: "h1"})
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, store.Complete(ctx, userID, key, 200, []byte(`{"success":true}`)))
	// Completed records survive Release.
	require.NoError(t, store.Release(ctx, userID, key))

	rec, created, err = store.Reserve(ctx, &models.IdempotencyKey{UserID: userID, Key: key, RequestHash: "h2"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "h1", rec.RequestHash)
	assert.Equal(t, 200, rec.ResponseStatus)
	assert.JSONEq(t, `{"success":true}`, string(rec.ResponseBody))
	assert.NotNil(t, rec.CompletedAt)
}

func TestIdempotencyStore_ConcurrentReserve(t *testing.T) {
	db := testDB(t)
	store := NewIdempotencyStore(db)
	ctx := context.Background()
	userID, key := "user-"+uuid.NewString(), uuid.NewString()
	t.Cleanup(func() { db.Delete(&models.IdempotencyKey{}, "user_id = ?", userID) })

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, created, err := store.Reserve(ctx, &models.IdempotencyKey{UserID: userID, Key: key, RequestHash: "h"})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if rec.Key != key {
				errs = append(errs, assert.AnError)
			}
			if created {
				winners++
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Equal(t, 1, winners)
}
