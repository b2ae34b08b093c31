package models

// ChannelKind selects the processing path for a group.
type ChannelKind string

const (
	// ChannelCourierBridge maps an admin-run dispatch group to courier
	// notifications ("assigned"/"completed" fan-out).
	ChannelCourierBridge ChannelKind = "courier-bridge"
	// ChannelDirectDelivery forwards location events to the downstream
	// chat mirror and push service in addition to the fan-out.
	ChannelDirectDelivery ChannelKind = "direct-delivery"
)

// ReactionPolicy controls who may complete an order with a reaction.
type ReactionPolicy string

const (
	ReactionPolicyCourier ReactionPolicy = "courier"
	ReactionPolicyAdmin   ReactionPolicy = "admin"
	ReactionPolicyAnyone  ReactionPolicy = "anyone"
)

// GroupRoute is the per-group static configuration, keyed by the
// source group JID. Loaded once at startup and read-only afterwards.
type GroupRoute struct {
	GroupID            string         `json:"-"`
	AdminID            string         `json:"admin"`
	CourierID          string         `json:"courier"`
	Channel            ChannelKind    `json:"channel"`
	RequireAdminSender bool           `json:"require_admin_sender"`
	ReactionPolicy     ReactionPolicy `json:"reaction_policy"`
	ContentFilter      bool           `json:"content_filter"`
}

// Config holds the application configuration
type Config struct {
	Server        ServerConfig           `json:"server"`
	Wasender      WasenderConfig         `json:"wasender"`
	Push          PushConfig             `json:"push"`
	Broker        BrokerConfig           `json:"broker"`
	Database      DatabaseConfig         `json:"database"`
	Delivery      DeliveryConfig         `json:"delivery"`
	Groups        map[string]*GroupRoute `json:"groups"`
	Tracing       TracingConfig          `json:"tracing"`
	LogLevel      string                 `json:"log_level"`
	RetentionDays int                    `json:"retentionDays"`
}

// ServerConfig holds HTTP server related configurations
type ServerConfig struct {
	Port                 int    `json:"port"`
	WebhookSecret        string `json:"webhook_secret"`
	RateLimitPerWindow   int    `json:"rate_limit_per_window"`
	RateLimitWindowSec   int    `json:"rate_limit_window_sec"`
	CleanupIntervalHours int    `json:"cleanup_interval_hours"`
}

// WasenderConfig holds outbound messaging provider configurations
type WasenderConfig struct {
	APIBaseURL string `json:"api_base_url"`
	APIKey     string `json:"-"`
	TimeoutSec int    `json:"timeout_sec"`
	DryRun     bool   `json:"dry_run"`
}

// PushConfig holds push notification provider configurations
type PushConfig struct {
	Enabled    bool   `json:"enabled"`
	APIBaseURL string `json:"api_base_url"`
	APIKey     string `json:"-"`
	AppID      string `json:"app_id"`
	BatchSize  int    `json:"batch_size"`
}

// BrokerConfig holds the downstream chat-mirror publisher configurations
type BrokerConfig struct {
	Enabled   bool   `json:"enabled"`
	URL       string `json:"url"`
	QueueSize int    `json:"queue_size"`
}

// DatabaseConfig holds delivery journal configurations
type DatabaseConfig struct {
	Path string `json:"path"`
}

// DeliveryConfig holds fan-out pacing and retry configurations
type DeliveryConfig struct {
	MaxAttempts int `json:"max_attempts"`
	SendGapSec  int `json:"send_gap_sec"`
}

// TracingConfig holds OpenTelemetry configurations
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	UseStdout      bool    `json:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
