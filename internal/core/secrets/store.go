package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// Store seals channel credentials so they are only ever persisted as opaque
// references. Callers pass the reference around; the plaintext token exists
// only inside send/page-listing calls.
type Store interface {
	Seal(plaintext string) (string, error)
	Open(ref string) (string, error)
}

type sealedStore struct {
	key [32]byte
}

// NewSealedStore creates a secretbox-backed store. hexKey must be 64 hex
// characters (32 bytes).
func NewSealedStore(hexKey string) (Store, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode seal key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("seal key must be 32 bytes, got %d", len(raw))
	}

	s := &sealedStore{}
	copy(s.key[:], raw)
	return s, nil
}

func (s *sealedStore) Seal(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *sealedStore) Open(ref string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(ref)
	if err != nil {
		return "", fmt.Errorf("failed to decode credential reference: %w", err)
	}
	if len(sealed) < 24 {
		return "", fmt.Errorf("credential reference too short")
	}

	var nonce [24]byte
	copy(nonce[:], sealed[:24])

	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &s.key)
	if !ok {
		return "", fmt.Errorf("failed to open credential reference")
	}
	return string(plaintext), nil
}
