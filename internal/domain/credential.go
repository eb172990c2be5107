package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// StorageCredential is a user's object-storage connection. The secret key is
// stored sealed; SecretKey is only populated after opening it.
type StorageCredential struct {
	UserID          string    `gorm:"type:text;primaryKey" json:"user_id"`
	Endpoint        string    `gorm:"type:text;not null" json:"endpoint"`
	Region          string    `gorm:"type:text" json:"region,omitempty"`
	Bucket          string    `gorm:"type:text;not null" json:"bucket"`
	AccessKey       string    `gorm:"type:text;not null" json:"access_key"`
	SealedSecretKey []byte    `gorm:"not null" json:"-"`
	UseSSL          bool      `gorm:"not null" json:"use_ssl"`
	SecretKey       string    `gorm:"-" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for StorageCredential.
func (StorageCredential) TableName() string {
	return "storage_credentials"
}

// Fingerprint identifies the connection settings; it changes whenever any
// value a client was built from changes.
func (c *StorageCredential) Fingerprint() string {
	h := sha256.New()
	for _, part := range []string{c.Endpoint, c.Region, c.Bucket, c.AccessKey, c.SecretKey} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	if c.UseSSL {
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))
}
