package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/testutil"
)

type fakeStorage struct {
	cfg S3Config
}

func (f *fakeStorage) Ping(context.Context) error { return nil }

func (f *fakeStorage) List(context.Context, string, int) ([]ObjectInfo, error) { return nil, nil }

func (f *fakeStorage) Exists(context.Context, string) (bool, error) { return false, nil }

type countingFactory struct {
	builds int
}

func (f *countingFactory) build(cfg *S3Config) (ObjectStorage, error) {
	f.builds++
	return &fakeStorage{cfg: *cfg}, nil
}

func credential(bucket string) *domain.StorageCredential {
	return &domain.StorageCredential{Endpoint: "minio.local:9000", Bucket: bucket, AccessKey: "ak", SecretKey: "sk"}
}

func TestClientCache_ReusesUntilFingerprintChanges(t *testing.T) {
	f := &countingFactory{}
	cache := NewClientCache(time.Hour, 10, "eu-west-1", f.build, testutil.FixedClock())

	first, err := cache.Get("u1", credential("a"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	second, _ := cache.Get("u1", credential("a"))
	if first != second || f.builds != 1 {
		t.Errorf("builds = %d, want cached client reused", f.builds)
	}
	if got := first.(*fakeStorage).cfg.Region; got != "eu-west-1" {
		t.Errorf("Region = %q, want default eu-west-1", got)
	}

	third, _ := cache.Get("u1", credential("b"))
	if third == first || f.builds != 2 {
		t.Errorf("changed credential did not rebuild the client (builds = %d)", f.builds)
	}
}

func TestClientCache_TTLAndInvalidate(t *testing.T) {
	f := &countingFactory{}
	clk := testutil.FixedClock()
	cache := NewClientCache(10*time.Minute, 10, "", f.build, clk)

	cache.Get("u1", credential("a"))
	clk.Advance(10 * time.Minute)
	cache.Get("u1", credential("a"))
	if f.builds != 2 {
		t.Errorf("builds after ttl = %d, want 2", f.builds)
	}

	cache.Invalidate("u1")
	if cache.Len() != 0 {
		t.Errorf("Len() after Invalidate = %d, want 0", cache.Len())
	}
	cache.Get("u1", credential("a"))
	if f.builds != 3 {
		t.Errorf("builds after Invalidate = %d, want 3", f.builds)
	}
}

func TestClientCache_EvictsLeastRecentlyUsed(t *testing.T) {
	f := &countingFactory{}
	clk := testutil.FixedClock()
	cache := NewClientCache(time.Hour, 2, "", f.build, clk)

	cache.Get("u1", credential("a"))
	clk.Advance(time.Second)
	cache.Get("u2", credential("a"))
	clk.Advance(time.Second)
	cache.Get("u1", credential("a"))
	clk.Advance(time.Second)
	cache.Get("u3", credential("a"))

	if cache.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", cache.Len())
	}
	builds := f.builds
	cache.Get("u1", credential("a"))
	if f.builds != builds {
		t.Error("u1 was evicted, want u2 evicted")
	}
}

func TestClientCache_FactoryError(t *testing.T) {
	boom := errors.New("bad endpoint")
	cache := NewClientCache(time.Hour, 2, "", func(*S3Config) (ObjectStorage, error) { return nil, boom }, testutil.FixedClock())
	if _, err := cache.Get("u1", credential("a")); !errors.Is(err, boom) {
		t.Errorf("Get() error = %v, want factory error", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after failed build", cache.Len())
	}
}

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{"https://acct.r2.cloudflarestorage.com", StorageTypeR2},
		{"s3.us-east-1.amazonaws.com", StorageTypeS3},
		{"minio.local:9000", StorageTypeS3Compatible},
	}
	for _, tt := range tests {
		if got := detectStorageType(tt.endpoint); got != tt.want {
			t.Errorf("detectStorageType(%q) = %q, want %q", tt.endpoint, got, tt.want)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	if got := normalizeEndpoint("https://minio.local:9000/bucket/"); got != "minio.local:9000" {
		t.Errorf("normalizeEndpoint() = %q", got)
	}
}
