package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markgewhite/agentic-essay-writer/pkg/adapters/memory"
	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/persistence/middleware"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, middleware.KeySize)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func encrypting(t *testing.T, config middleware.EncryptionConfig) middleware.Middleware {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(config)
	require.NoError(t, err)
	return mw
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := encrypting(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := NewMockStore()
	secureStore := encrypting(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)

	ctx := context.Background()
	run := ports.ContractRun(t, "sealed-run")

	if err := secureStore.Save(ctx, run); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The underlying store only sees the envelope.
	stored, err := underlyingStore.Load(ctx, "sealed-run")
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	assert.Nil(t, stored.State, "state must not be stored in clear")
	assert.Nil(t, stored.Ledger, "ledger must not be stored in clear")
	assert.Empty(t, stored.History)
	assert.NotEmpty(t, stored.Sealed)
	assert.Equal(t, run.Status, stored.Status, "status stays visible for listings")
	assert.Equal(t, run.UpdatedAt, stored.UpdatedAt)

	loaded, err := secureStore.Load(ctx, "sealed-run")
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	assert.Equal(t, "urban beekeeping", loaded.State.Topic)
	assert.Equal(t, "bees", domain.Value(loaded.State.Thesis))
	assert.Equal(t, 1, loaded.Ledger.Len())
	assert.Empty(t, loaded.Sealed)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := NewMockStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := encrypting(t, middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)

	ctx := context.Background()
	run := ports.ContractRun(t, "rotation-run")

	// 1. Save with the old key
	require.NoError(t, secureStoreOld.Save(ctx, run))

	// 2. Load with the new key active and the old one as fallback
	secureStoreNew := encrypting(t, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, "rotation-run")
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if domain.Value(loaded.State.Thesis) != "bees" {
		t.Errorf("Decryption with fallback key failed")
	}

	// 3. Save again, now sealed with the new key
	loaded.State.Thesis = domain.Ptr("wasps")
	require.NoError(t, secureStoreNew.Save(ctx, loaded))

	// 4. The old key alone can no longer open it
	_, err = secureStoreOld.Load(ctx, "rotation-run")
	if err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsPlainRun(t *testing.T) {
	underlyingStore := NewMockStore()
	require.NoError(t, underlyingStore.Save(context.Background(), ports.ContractRun(t, "plain")))

	secureStore := encrypting(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	_, err := secureStore.Load(context.Background(), "plain")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	tests := []struct {
		name   string
		config middleware.EncryptionConfig
	}{
		{"short active key", middleware.EncryptionConfig{ActiveKey: []byte("short-key")}},
		{"short fallback key", middleware.EncryptionConfig{ActiveKey: make([]byte, 32), FallbackKeys: [][]byte{[]byte("old")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := middleware.NewEncryptionMiddleware(tt.config)
			var confErr *domain.ConfigurationError
			assert.ErrorAs(t, err, &confErr)
		})
	}
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)
	parsed, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = middleware.ParseKey("not base64!")
	assert.Error(t, err)

	_, err = middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}
