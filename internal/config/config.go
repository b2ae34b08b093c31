package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"courierbridge/internal/constants"
	"courierbridge/internal/models"
	"courierbridge/internal/security"
)

var (
	ErrMissingWasenderURL = models.ConfigError{Message: "missing Wasender API base URL"}
	ErrMissingGroups      = models.ConfigError{Message: "groups table is required and must contain at least one group"}
	ErrMissingDBPath      = models.ConfigError{Message: "missing delivery journal path"}
)

func LoadConfig(path string) (*models.Config, error) {
	// Validate config file path to prevent directory traversal
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	if err := validateSecurity(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Wasender.APIBaseURL == "" {
		return ErrMissingWasenderURL
	}
	if len(c.Groups) == 0 {
		return ErrMissingGroups
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}

	for groupID, route := range c.Groups {
		if route == nil {
			return models.ConfigError{Message: fmt.Sprintf("empty route for group %s", groupID)}
		}
		route.GroupID = groupID

		if route.AdminID == "" {
			return models.ConfigError{Message: fmt.Sprintf("missing admin id for group %s", groupID)}
		}
		if route.CourierID == "" {
			return models.ConfigError{Message: fmt.Sprintf("missing courier id for group %s", groupID)}
		}

		switch route.Channel {
		case models.ChannelCourierBridge, models.ChannelDirectDelivery:
		case "":
			route.Channel = models.ChannelCourierBridge
		default:
			return models.ConfigError{Message: fmt.Sprintf("unknown channel kind %q for group %s", route.Channel, groupID)}
		}

		switch route.ReactionPolicy {
		case models.ReactionPolicyCourier, models.ReactionPolicyAdmin, models.ReactionPolicyAnyone:
		case "":
			// Direct-delivery groups historically accept any reactor;
			// bridge groups require the courier.
			if route.Channel == models.ChannelDirectDelivery {
				route.ReactionPolicy = models.ReactionPolicyAnyone
			} else {
				route.ReactionPolicy = models.ReactionPolicyCourier
			}
		default:
			return models.ConfigError{Message: fmt.Sprintf("unknown reaction policy %q for group %s", route.ReactionPolicy, groupID)}
		}
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.RateLimitPerWindow <= 0 {
		c.Server.RateLimitPerWindow = constants.DefaultWebhookRateLimit
	}
	if c.Server.RateLimitWindowSec <= 0 {
		c.Server.RateLimitWindowSec = constants.DefaultWebhookRateWindowSec
	}
	if c.Server.CleanupIntervalHours <= 0 {
		c.Server.CleanupIntervalHours = constants.CleanupIntervalHours
	}
	if c.Wasender.TimeoutSec <= 0 {
		c.Wasender.TimeoutSec = constants.DefaultSendTimeoutSec
	}
	if c.Delivery.MaxAttempts <= 0 {
		c.Delivery.MaxAttempts = constants.DefaultSendAttempts
	}
	if c.Delivery.SendGapSec <= 0 {
		c.Delivery.SendGapSec = constants.DefaultSendGapSec
	}
	if c.Push.BatchSize <= 0 {
		c.Push.BatchSize = constants.DefaultPushBatchSize
	}
	if c.Broker.QueueSize <= 0 {
		c.Broker.QueueSize = constants.DefaultBrokerQueueSize
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = constants.DefaultRetentionDays
	}
	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("WASENDER_API_BASE"); url != "" {
		c.Wasender.APIBaseURL = url
	}

	// SECURITY: credentials and secrets come from the environment only
	if key := os.Getenv("WASENDER_API_KEY"); key != "" {
		c.Wasender.APIKey = key
	}
	if secret := os.Getenv("COURIERBRIDGE_WEBHOOK_SECRET"); secret != "" {
		c.Server.WebhookSecret = secret
	}
	if key := os.Getenv("PUSH_API_KEY"); key != "" {
		c.Push.APIKey = key
	}

	if os.Getenv("DRY_RUN") != "" {
		c.Wasender.DryRun = true
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		c.Database.Path = path
	}

	// GROUP_MAP_JSON replaces the whole routing table, matching the
	// deployment style where routes live in the environment.
	if raw := os.Getenv("GROUP_MAP_JSON"); raw != "" {
		var groups map[string]*models.GroupRoute
		if err := json.Unmarshal([]byte(raw), &groups); err == nil && len(groups) > 0 {
			c.Groups = groups
		}
	}
}

// validateSecurity performs security-specific validation
func validateSecurity(c *models.Config) error {
	isProduction := os.Getenv("COURIERBRIDGE_ENV") == "production"

	if isProduction {
		if c.Server.WebhookSecret == "" {
			return models.ConfigError{Message: "webhook secret is required in production (set COURIERBRIDGE_WEBHOOK_SECRET environment variable)"}
		}
		if len(c.Server.WebhookSecret) < 32 {
			return models.ConfigError{Message: "webhook secret must be at least 32 characters long"}
		}
		if c.Wasender.APIKey == "" && !c.Wasender.DryRun {
			return models.ConfigError{Message: "Wasender API key is required in production (set WASENDER_API_KEY environment variable)"}
		}
		if c.LogLevel == "debug" {
			return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
		}
	} else {
		if c.Server.WebhookSecret == "" {
			fmt.Fprintf(os.Stderr, "WARNING: webhook secret not set. Set COURIERBRIDGE_WEBHOOK_SECRET environment variable for security.\n")
		}
	}

	return nil
}
