package middleware

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/cognito/pkg/domain"
	"github.com/aretw0/cognito/pkg/ports"
	"golang.org/x/crypto/chacha20poly1305"
)

// sealedPrefix marks an envelope whose RawInput holds the sealed walk.
const sealedPrefix = "sealed:v1:"

// ErrNotSealed is returned when a stored walk is not an envelope.
var ErrNotSealed = errors.New("state is missing sealed data envelope")

// EncryptionConfig holds the keys for sealing and opening.
type EncryptionConfig struct {
	// ActiveKey seals new data. Must be chacha20poly1305.KeySize bytes.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot open a record.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.StateStore
	config EncryptionConfig
}

// NewEncryptionMiddleware seals walks with XChaCha20-Poly1305. The stored envelope
// exposes only the walk ID, status and timestamps; the walk ID is bound as
// associated data, so an envelope cannot be replayed under another ID.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("active key must be %d bytes", chacha20poly1305.KeySize)
	}
	for i, k := range config.FallbackKeys {
		if len(k) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("fallback key %d must be %d bytes", i, chacha20poly1305.KeySize)
		}
	}
	return func(next ports.StateStore) ports.StateStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, walkID string, state *domain.State) error {
	plain, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	sealed, err := seal(plain, m.config.ActiveKey, []byte(walkID))
	if err != nil {
		return fmt.Errorf("failed to seal state: %w", err)
	}

	envelope := &domain.State{
		WalkID:    state.WalkID,
		Status:    state.Status,
		RawInput:  sealedPrefix + base64.StdEncoding.EncodeToString(sealed),
		StartedAt: state.StartedAt,
		UpdatedAt: state.UpdatedAt,
	}
	return m.next.Save(ctx, walkID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, walkID string) (*domain.State, error) {
	envelope, err := m.next.Load(ctx, walkID)
	if err != nil {
		return nil, err
	}

	encoded, ok := strings.CutPrefix(envelope.RawInput, sealedPrefix)
	if !ok {
		// Fail secure: a configured key means every record must be sealed.
		return nil, ErrNotSealed
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sealed state: %w", err)
	}

	plain, err := openWithRotation(sealed, []byte(walkID), m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(plain, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal opened state: %w", err)
	}
	return &state, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, walkID string) error {
	return m.next.Delete(ctx, walkID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func seal(plain, key, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, ad), nil
}

func openWithRotation(sealed, ad, active []byte, fallbacks [][]byte) ([]byte, error) {
	if plain, err := open(sealed, active, ad); err == nil {
		return plain, nil
	}
	for _, key := range fallbacks {
		if plain, err := open(sealed, key, ad); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func open(sealed, key, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, body, ad)
}
