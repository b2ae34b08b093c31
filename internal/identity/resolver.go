package identity

import (
	"regexp"
	"strings"

	"courierbridge/internal/models"
)

// Phone-addressed participant: "<digits>[:device]@s.whatsapp.net".
// The device suffix is a per-device counter and never part of the
// subscriber identity.
var rePhoneAddressed = regexp.MustCompile(`^(\d+)(?::\d+)?@s\.whatsapp\.net$`)

var reNonDigit = regexp.MustCompile(`\D`)

// ResolveSenderID extracts the canonical digits-only identifier from a
// channel-specific participant address. Opaque linked-id domains and
// free-form strings fall back to stripping the domain and keeping
// digits. An unresolvable address yields the empty string.
func ResolveSenderID(participant string) string {
	if participant == "" {
		return ""
	}
	if m := rePhoneAddressed.FindStringSubmatch(participant); m != nil {
		return m[1]
	}
	local := participant
	if at := strings.Index(local, "@"); at >= 0 {
		local = local[:at]
	}
	return reNonDigit.ReplaceAllString(local, "")
}

// matches compares a resolved sender id against a configured id.
// Suffix comparison tolerates the resolver returning a locally
// formatted number without the country code; it is the default policy
// across channel revisions with inconsistent address formats.
func matches(senderID, configuredID string) bool {
	if senderID == "" || configuredID == "" {
		return false
	}
	if senderID == configuredID {
		return true
	}
	return strings.HasSuffix(senderID, configuredID) || strings.HasSuffix(configuredID, senderID)
}

// IsAdmin reports whether the resolved sender id is the route's admin.
func IsAdmin(senderID string, route *models.GroupRoute) bool {
	return route != nil && matches(senderID, route.AdminID)
}

// IsCourier reports whether the resolved sender id is the route's courier.
func IsCourier(senderID string, route *models.GroupRoute) bool {
	return route != nil && matches(senderID, route.CourierID)
}
