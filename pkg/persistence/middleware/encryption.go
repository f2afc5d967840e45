package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/markgewhite/agentic-essay-writer/pkg/domain"
	"github.com/markgewhite/agentic-essay-writer/pkg/ports"
)

// KeySize is the required key length (AES-256).
const KeySize = 32

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new runs.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot open a
	// stored run, so keys can be rotated without rewriting old runs.
	FallbackKeys [][]byte
}

// Validate checks every key length.
func (c EncryptionConfig) Validate() error {
	if len(c.ActiveKey) != KeySize {
		return &domain.ConfigurationError{Field: "encryption.active_key", Reason: fmt.Sprintf("must be %d bytes, got %d", KeySize, len(c.ActiveKey))}
	}
	for i, k := range c.FallbackKeys {
		if len(k) != KeySize {
			return &domain.ConfigurationError{Field: fmt.Sprintf("encryption.fallback_keys[%d]", i), Reason: fmt.Sprintf("must be %d bytes, got %d", KeySize, len(k))}
		}
	}
	return nil
}

// ParseKey decodes a base64 key as found in ESSAY_ENCRYPTION_KEY.
func ParseKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "encryption.key", Reason: "not valid base64"}
	}
	if len(key) != KeySize {
		return nil, &domain.ConfigurationError{Field: "encryption.key", Reason: fmt.Sprintf("must decode to %d bytes, got %d", KeySize, len(key))}
	}
	return key, nil
}

type encryptionMiddleware struct {
	next   ports.RunStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals runs with AES-GCM.
// The stored envelope keeps only the ID, status and timestamps in clear so
// listings and monitoring still work; topic, drafts and ledger are sealed.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return func(next ports.RunStore) ports.RunStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, run *domain.Run) error {
	plainText, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt run: %w", err)
	}

	envelope := &domain.Run{
		ID:        run.ID,
		Status:    run.Status,
		CreatedAt: run.CreatedAt,
		UpdatedAt: run.UpdatedAt,
		Sealed:    base64.StdEncoding.EncodeToString(ciphertext),
	}
	return m.next.Save(ctx, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, runID string) (*domain.Run, error) {
	envelope, err := m.next.Load(ctx, runID)
	if err != nil {
		return nil, err
	}

	// Fail closed: a plain run under an encrypting store is not trusted.
	if envelope.Sealed == "" {
		return nil, fmt.Errorf("run %s is missing its sealed envelope", runID)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sealed run: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt run %s: %w", runID, err)
	}

	var run domain.Run
	if err := json.Unmarshal(plainText, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted run: %w", err)
	}
	return &run, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, sealed := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
