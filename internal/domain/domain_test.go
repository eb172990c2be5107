package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestContentHash_RoundTrip(t *testing.T) {
	hexStr := strings.Repeat("0123456789abcdef", 4)

	h, err := ParseContentHash(hexStr)
	if err != nil {
		t.Fatalf("ParseContentHash() error = %v", err)
	}
	if len(h) != 32 {
		t.Fatalf("len(hash) = %d, want 32", len(h))
	}
	if got := h.String(); got != hexStr {
		t.Errorf("String() = %s, want %s", got, hexStr)
	}

	if _, err := ParseContentHash(hexStr[:63]); err == nil {
		t.Error("ParseContentHash(63 chars) error = nil, want error")
	}
	if _, err := ParseContentHash(strings.Repeat("zz", 32)); err == nil {
		t.Error("ParseContentHash(non-hex) error = nil, want error")
	}
}

func TestContentHash_ScanAndJSON(t *testing.T) {
	hexStr := strings.Repeat("ab", 32)
	want, _ := ParseContentHash(hexStr)

	var scanned ContentHash
	if err := scanned.Scan(want[:]); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if scanned != want {
		t.Errorf("Scan() = %s, want %s", scanned, want)
	}
	if err := scanned.Scan([]byte{1, 2, 3}); err == nil {
		t.Error("Scan(3 bytes) error = nil, want error")
	}

	data, err := json.Marshal(struct {
		Hash ContentHash `json:"hash"`
	}{want})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), hexStr) {
		t.Errorf("Marshal() = %s, want hex form", data)
	}
}

func TestBatch_CompletionPercentage(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name     string
		expected *int
		ingested int
		want     int
	}{
		{"unset", nil, 10, 0},
		{"zero", intPtr(0), 10, 0},
		{"quarter", intPtr(200), 50, 25},
		{"third rounds down", intPtr(3), 1, 33},
		{"two thirds rounds up", intPtr(3), 2, 67},
		{"half rounds up", intPtr(8), 1, 13},
		{"complete", intPtr(5), 5, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Batch{ExpectedFiles: tt.expected, IngestedFiles: tt.ingested}
			if got := b.CompletionPercentage(); got != tt.want {
				t.Errorf("CompletionPercentage() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestImportAttempt_Duration(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	a := &ImportAttempt{StartedAt: start}
	if _, ok := a.Duration(); ok {
		t.Error("Duration() ok = true for unfinished attempt")
	}

	end := start.Add(3725 * time.Second)
	a.EndedAt = &end
	d, ok := a.Duration()
	if !ok || d != 3725*time.Second {
		t.Errorf("Duration() = %v, %v; want 3725s, true", d, ok)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{3725 * time.Second, "1h 2m 5s"},
		{45 * time.Second, "45s"},
		{0, "0s"},
		{120 * time.Second, "2m 0s"},
		{time.Hour, "1h 0m 0s"},
		{90*time.Second + 400*time.Millisecond, "1m 30s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestRawResource_Extraction(t *testing.T) {
	t.Run("first candidate wins", func(t *testing.T) {
		r := RawResource{"uuid": "u-1", "id": "i-1"}
		id, ok := r.ExternalID(KindIngestionPoints)
		if !ok || id != "i-1" {
			t.Errorf("ExternalID() = %q, %v; want i-1", id, ok)
		}
	})

	t.Run("kind specific field", func(t *testing.T) {
		r := RawResource{"importJobId": "job-7"}
		id, ok := r.ExternalID(KindImportJobs)
		if !ok || id != "job-7" {
			t.Errorf("ExternalID() = %q, %v; want job-7", id, ok)
		}
		if _, ok := r.ExternalID(KindIngestionPoints); ok {
			t.Error("ingestion point kind should not read importJobId")
		}
	})

	t.Run("numeric id", func(t *testing.T) {
		r := RawResource{"id": float64(42)}
		id, _ := r.ExternalID(KindImportJobs)
		if id != "42" {
			t.Errorf("ExternalID() = %q, want 42", id)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		r := RawResource{"state": "ACTIVE", "title": " Inbox "}
		if got := r.Name("fallback"); got != "Inbox" {
			t.Errorf("Name() = %q, want Inbox", got)
		}
		if got := r.Status(); got != "ACTIVE" {
			t.Errorf("Status() = %q, want ACTIVE", got)
		}
		if got := r.Type(); got != "" {
			t.Errorf("Type() = %q, want empty", got)
		}
		if got := (RawResource{}).Name("fallback"); got != "fallback" {
			t.Errorf("Name() = %q, want fallback", got)
		}
	})
}

func TestParseResourceKind(t *testing.T) {
	if k, err := ParseResourceKind("import-jobs"); err != nil || k != KindImportJobs {
		t.Errorf("ParseResourceKind(import-jobs) = %q, %v", k, err)
	}
	if _, err := ParseResourceKind("buckets"); err == nil {
		t.Error("ParseResourceKind(buckets) error = nil, want error")
	}
}
