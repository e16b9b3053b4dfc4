package trust

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

const hkdfInfo = "cognito/identity/v1"

// ErrEmptySeed is returned when a signer is built without key material.
var ErrEmptySeed = errors.New("signer seed is empty")

// Ed25519Signer signs canonical answers with a key derived from a seed secret.
// The same seed always yields the same key, so receipts verify across restarts.
type Ed25519Signer struct {
	did  string
	priv ed25519.PrivateKey
	now  func() time.Time
}

// NewEd25519Signer derives the signing key from seed with HKDF-SHA256.
func NewEd25519Signer(seed []byte, did string) (*Ed25519Signer, error) {
	if len(seed) == 0 {
		return nil, ErrEmptySeed
	}
	keySeed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, []byte(hkdfInfo)), keySeed); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	return &Ed25519Signer{
		did:  did,
		priv: ed25519.NewKeyFromSeed(keySeed),
		now:  time.Now,
	}, nil
}

// Identity returns the DID placed in trust receipts.
func (s *Ed25519Signer) Identity() string { return s.did }

// PublicKey returns the verification key.
func (s *Ed25519Signer) PublicKey() ed25519.PublicKey {
	return s.priv.Public().(ed25519.PublicKey)
}

// Sign returns a token of the form SIGNED_BY:<did>|TIMESTAMP:<unix>|SIG:<hex>.
// The timestamp is part of the signed payload.
func (s *Ed25519Signer) Sign(ctx context.Context, canonical string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ts := s.now().Unix()
	sig := ed25519.Sign(s.priv, payload(canonical, ts))
	return fmt.Sprintf("SIGNED_BY:%s|TIMESTAMP:%d|SIG:%s", s.did, ts, hex.EncodeToString(sig)), nil
}

// Verify checks a token produced by Sign against canonical.
func (s *Ed25519Signer) Verify(canonical, token string) bool {
	return Verify(s.PublicKey(), canonical, token)
}

// Verify checks a signature token against a public key.
func Verify(pub ed25519.PublicKey, canonical, token string) bool {
	var ts int64
	var sigHex string
	for _, part := range strings.Split(token, "|") {
		switch {
		case strings.HasPrefix(part, "TIMESTAMP:"):
			if _, err := fmt.Sscanf(part, "TIMESTAMP:%d", &ts); err != nil {
				return false
			}
		case strings.HasPrefix(part, "SIG:"):
			sigHex = strings.TrimPrefix(part, "SIG:")
		}
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, payload(canonical, ts), sig)
}

func payload(canonical string, ts int64) []byte {
	return []byte(fmt.Sprintf("%d|%s", ts, canonical))
}

// CanonicalAnswer is the string the identity stage signs.
func CanonicalAnswer(answer, auditHash, did string) string {
	if auditHash == "" {
		auditHash = PendingHashPlaceholder
	}
	return fmt.Sprintf("ANSWER:%s|HASH:%s|DID:%s", answer, auditHash, did)
}

// Receipt renders the trust receipt appended to the final answer.
func Receipt(did, signature string) string {
	short := signature
	if len(short) > 60 {
		short = short[:60]
	}
	return fmt.Sprintf("\n\n---\n**Verifiable Trust Receipt:**\n**Source DID:** %s\n**Digital Signature:** %s...", did, short)
}
