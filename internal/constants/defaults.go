package constants

// Event processing windows
const (
	DefaultDedupWindowMin = 5
	DefaultOrderTTLHours  = 12
	DefaultRetentionDays  = 30
	CleanupIntervalHours  = 24
	NormalizeMaxTreeDepth = 6
)

// Delivery configuration
const (
	DefaultSendAttempts   = 3
	DefaultSendGapSec     = 4
	RetryAfterMarginMs    = 500
	DefaultSendTimeoutSec = 15
	DefaultPushBatchSize  = 50
)

// Server defaults
const (
	DefaultServerPort            = 4243
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	DefaultWebhookRateLimit      = 100
	DefaultWebhookRateWindowSec  = 60
	ServerErrorChannelSize       = 1
)

// Broker defaults
const (
	DefaultBrokerQueueSize       = 256
	DefaultBrokerReconnectMinMs  = 500
	DefaultBrokerReconnectMaxSec = 30
	DefaultBrokerWriteTimeoutSec = 10
)

// Retry/backoff defaults (journal open, broker reconnect)
const (
	DefaultBackoffInitialMs = 500
	DefaultBackoffMaxSec    = 5
	DefaultMaxAttempts      = 5
)

// Privacy settings
const (
	DefaultPhoneMaskLength = 4
	DefaultMessageIDLength = 8
)
