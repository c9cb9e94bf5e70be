package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields. These are attached to the context logger and follow the call chain.
const (
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldPhotoID   = "photo_id"
	FieldComponent = "component"
	FieldStage     = "stage"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
)
