package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// RunStatus is the lifecycle status shared by import batches and import
// attempts. Stored as a small integer.
type RunStatus int16

const (
	RunStatusPending   RunStatus = 0
	RunStatusRunning   RunStatus = 1
	RunStatusCompleted RunStatus = 2
	RunStatusFailed    RunStatus = 3
	RunStatusCancelled RunStatus = 4
)

// AllRunStatuses lists every RunStatus in numeric order.
var AllRunStatuses = []RunStatus{
	RunStatusPending,
	RunStatusRunning,
	RunStatusCompleted,
	RunStatusFailed,
	RunStatusCancelled,
}

// ParseRunStatus converts a raw integer into a RunStatus, rejecting anything
// outside 0..4.
func ParseRunStatus(v int) (RunStatus, error) {
	if v < int(RunStatusPending) || v > int(RunStatusCancelled) {
		return 0, fmt.Errorf("invalid run status %d", v)
	}
	return RunStatus(v), nil
}

// Valid reports whether s is one of the five defined values.
func (s RunStatus) Valid() bool {
	return s >= RunStatusPending && s <= RunStatusCancelled
}

// String returns the upper-case name of the status.
func (s RunStatus) String() string {
	switch s {
	case RunStatusPending:
		return "PENDING"
	case RunStatusRunning:
		return "RUNNING"
	case RunStatusCompleted:
		return "COMPLETED"
	case RunStatusFailed:
		return "FAILED"
	case RunStatusCancelled:
		return "CANCELLED"
	default:
		return fmt.Sprintf("RunStatus(%d)", int16(s))
	}
}

// IsInProgress is true for PENDING and RUNNING.
func (s RunStatus) IsInProgress() bool {
	return s == RunStatusPending || s == RunStatusRunning
}

// IsCompleted is true for COMPLETED.
func (s RunStatus) IsCompleted() bool { return s == RunStatusCompleted }

// IsFailed is true for FAILED.
func (s RunStatus) IsFailed() bool { return s == RunStatusFailed }

// IsCancelled is true for CANCELLED.
func (s RunStatus) IsCancelled() bool { return s == RunStatusCancelled }

// IsTerminal is true for COMPLETED, FAILED and CANCELLED.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// Value implements the driver.Valuer interface.
func (s RunStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid run status %d", int16(s))
	}
	return int64(s), nil
}

// Scan implements the sql.Scanner interface. Out-of-range values are
// rejected rather than coerced.
func (s *RunStatus) Scan(value interface{}) error {
	n, err := scanSmallInt(value)
	if err != nil {
		return fmt.Errorf("scan RunStatus: %w", err)
	}
	parsed, err := ParseRunStatus(int(n))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// FileStatus is the per-file ingestion status. Stored as a small integer.
type FileStatus int16

const (
	FileStatusPending      FileStatus = 0
	FileStatusQueued       FileStatus = 1
	FileStatusProcessing   FileStatus = 2
	FileStatusIngested     FileStatus = 3
	FileStatusFailed       FileStatus = 4
	FileStatusSkippedDedup FileStatus = 5
	FileStatusQuarantined  FileStatus = 6
)

// AllFileStatuses lists every FileStatus in numeric order.
var AllFileStatuses = []FileStatus{
	FileStatusPending,
	FileStatusQueued,
	FileStatusProcessing,
	FileStatusIngested,
	FileStatusFailed,
	FileStatusSkippedDedup,
	FileStatusQuarantined,
}

// ParseFileStatus converts a raw integer into a FileStatus, rejecting
// anything outside 0..6.
func ParseFileStatus(v int) (FileStatus, error) {
	if v < int(FileStatusPending) || v > int(FileStatusQuarantined) {
		return 0, fmt.Errorf("invalid file status %d", v)
	}
	return FileStatus(v), nil
}

// Valid reports whether s is one of the seven defined values.
func (s FileStatus) Valid() bool {
	return s >= FileStatusPending && s <= FileStatusQuarantined
}

// String returns the upper-case name of the status.
func (s FileStatus) String() string {
	switch s {
	case FileStatusPending:
		return "PENDING"
	case FileStatusQueued:
		return "QUEUED"
	case FileStatusProcessing:
		return "PROCESSING"
	case FileStatusIngested:
		return "INGESTED"
	case FileStatusFailed:
		return "FAILED"
	case FileStatusSkippedDedup:
		return "SKIPPED_DEDUP"
	case FileStatusQuarantined:
		return "QUARANTINED"
	default:
		return fmt.Sprintf("FileStatus(%d)", int16(s))
	}
}

// InQueue is true for PENDING, QUEUED and PROCESSING.
func (s FileStatus) InQueue() bool {
	switch s {
	case FileStatusPending, FileStatusQueued, FileStatusProcessing:
		return true
	}
	return false
}

// Completed is true for INGESTED, SKIPPED_DEDUP and QUARANTINED.
func (s FileStatus) Completed() bool {
	switch s {
	case FileStatusIngested, FileStatusSkippedDedup, FileStatusQuarantined:
		return true
	}
	return false
}

// Failed is true only for FAILED.
func (s FileStatus) Failed() bool {
	return s == FileStatusFailed
}

// Value implements the driver.Valuer interface.
func (s FileStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid file status %d", int16(s))
	}
	return int64(s), nil
}

// Scan implements the sql.Scanner interface.
func (s *FileStatus) Scan(value interface{}) error {
	n, err := scanSmallInt(value)
	if err != nil {
		return fmt.Errorf("scan FileStatus: %w", err)
	}
	parsed, err := ParseFileStatus(int(n))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func scanSmallInt(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int:
		return int64(v), nil
	case []byte:
		var n int64
		if _, err := fmt.Sscan(string(v), &n); err != nil {
			return 0, err
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("null status")
	default:
		return 0, fmt.Errorf("unexpected type %T", value)
	}
}

// RunStatusByName resolves an upper- or lower-case status name such as
// "completed".
func RunStatusByName(name string) (RunStatus, error) {
	for _, s := range AllRunStatuses {
		if strings.EqualFold(s.String(), name) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown run status %q", name)
}

// FileStatusByName resolves a status name such as "skipped_dedup".
func FileStatusByName(name string) (FileStatus, error) {
	for _, s := range AllFileStatuses {
		if strings.EqualFold(s.String(), name) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown file status %q", name)
}
