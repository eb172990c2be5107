package domain

import (
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
)

// ContentHashSize is the byte length of a content digest (SHA-256).
const ContentHashSize = 32

// ContentHash is a fixed-length binary digest stored as raw bytes.
type ContentHash [ContentHashSize]byte

// ParseContentHash decodes a 64-character hex string.
func ParseContentHash(s string) (ContentHash, error) {
	var h ContentHash
	if len(s) != hex.EncodedLen(ContentHashSize) {
		return h, fmt.Errorf("content hash must be %d hex characters, got %d", hex.EncodedLen(ContentHashSize), len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("content hash is not valid hex: %w", err)
	}
	return h, nil
}

// String returns the lowercase hex form.
func (h ContentHash) String() string {
	return hex.EncodeToString(h[:])
}

// MarshalText encodes the hash as hex for JSON.
func (h ContentHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText accepts the 64-character hex form.
func (h *ContentHash) UnmarshalText(text []byte) error {
	parsed, err := ParseContentHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// GormDataType maps the column to the dialect's binary type.
func (ContentHash) GormDataType() string {
	return "bytes"
}

// Value implements the driver.Valuer interface.
func (h ContentHash) Value() (driver.Value, error) {
	return h[:], nil
}

// Scan implements the sql.Scanner interface.
func (h *ContentHash) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan ContentHash")
	}
	if len(b) != ContentHashSize {
		return fmt.Errorf("content hash must be %d bytes, got %d", ContentHashSize, len(b))
	}
	copy(h[:], b)
	return nil
}
