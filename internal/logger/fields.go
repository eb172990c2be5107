package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Tracing Fields (Context level)
// Propagated through the call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldUserID is the user the request acts for
	FieldUserID = "user_id"

	// FieldResourceKind is the cached resource kind
	FieldResourceKind = "resource_kind"

	// FieldImportID is the import a batch, attempt or file belongs to
	FieldImportID = "import_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// ============================================
// Metric Fields (Entry level)
// Used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldFailed is the number of failed items in a bulk operation
	FieldFailed = "failed"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
