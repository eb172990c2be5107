// Package secret seals small secrets (storage secret keys) at rest with age
// X25519 encryption.
package secret

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
)

// Sealer encrypts and decrypts secrets for a single X25519 identity.
type Sealer struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

// NewSealer creates a Sealer from an AGE-SECRET-KEY-1... identity string.
func NewSealer(identity string) (*Sealer, error) {
	id, err := age.ParseX25519Identity(strings.TrimSpace(identity))
	if err != nil {
		return nil, fmt.Errorf("parsing age identity: %w", err)
	}
	return &Sealer{identity: id, recipient: id.Recipient()}, nil
}

// NewEphemeralSealer generates a fresh identity. Secrets sealed with it
// cannot be opened after the process exits.
func NewEphemeralSealer() (*Sealer, error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age identity: %w", err)
	}
	return &Sealer{identity: id, recipient: id.Recipient()}, nil
}

// Recipient returns the public key secrets are sealed to.
func (s *Sealer) Recipient() string {
	return s.recipient.String()
}

// Seal encrypts plaintext.
func (s *Sealer) Seal(plaintext string) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, s.recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return nil, fmt.Errorf("encrypting secret: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}
	return buf.Bytes(), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed []byte) (string, error) {
	r, err := age.Decrypt(bytes.NewReader(sealed), s.identity)
	if err != nil {
		return "", fmt.Errorf("decrypting secret: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading decrypted secret: %w", err)
	}
	return string(plaintext), nil
}
