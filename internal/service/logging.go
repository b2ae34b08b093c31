package service

// Standard structured log field names. Handlers and clients share
// these so log output stays queryable across components.
const (
	// Tracing
	LogFieldRequestID = "request_id"
	LogFieldTraceID   = "trace_id"

	// Identity
	LogFieldMessageID = "message_id"
	LogFieldGroupID   = "group_id"
	LogFieldSender    = "sender"
	LogFieldRecipient = "recipient"

	// Event classification
	LogFieldEvent    = "event"
	LogFieldBodyKind = "body_kind"
	LogFieldChannel  = "channel"
	LogFieldMode     = "mode"

	// Operations
	LogFieldService   = "service"
	LogFieldOperation = "operation"
	LogFieldComponent = "component"
	LogFieldMethod    = "method"

	// Performance
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"
	LogFieldSize     = "size_bytes"

	// HTTP
	LogFieldURL        = "url"
	LogFieldEndpoint   = "endpoint"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"

	// Delivery
	LogFieldAttempt    = "attempt"
	LogFieldRetryAfter = "retry_after_sec"
	LogFieldErrorCode  = "error_code"
)
