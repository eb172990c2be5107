package storage

import (
	"strings"

	"github.com/timmy/ingestdesk/internal/domain"
)

// Factory builds an ObjectStorage from connection settings.
type Factory func(cfg *S3Config) (ObjectStorage, error)

// NewStorage creates an ObjectStorage instance based on the configuration.
// Parameters:
//   - cfg: storage configuration including endpoint, credentials, and bucket.
// Returns:
//   - ObjectStorage: initialized storage client implementation.
//   - error: non-nil if the storage client cannot be created.
func NewStorage(cfg *S3Config) (ObjectStorage, error) {
	// Auto-detect storage type if not specified
	if cfg.Type == "" {
		cfg.Type = detectStorageType(cfg.Endpoint)
	}

	return NewS3Storage(cfg)
}

// ConfigFromCredential converts an opened credential into client settings.
// defaultRegion applies when the credential names none.
func ConfigFromCredential(cred *domain.StorageCredential, defaultRegion string) *S3Config {
	region := cred.Region
	if region == "" {
		region = defaultRegion
	}
	return &S3Config{
		Type:      detectStorageType(cred.Endpoint),
		Endpoint:  cred.Endpoint,
		AccessKey: cred.AccessKey,
		SecretKey: cred.SecretKey,
		UseSSL:    cred.UseSSL,
		Bucket:    cred.Bucket,
		Region:    region,
	}
}

// detectStorageType attempts to detect the storage type from the endpoint
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
