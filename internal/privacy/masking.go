package privacy

import (
	"strings"
)

// MaskPhoneNumber masks an MSISDN showing only the last 4 digits
// Example: "+994705850808" -> "+********0808"
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	// Handle + prefix numbers specially
	if strings.HasPrefix(phone, "+") {
		if len(phone) == 1 { // Just "+"
			return phone
		}
		if len(phone) <= 5 { // "+1234" or shorter
			return "+" + strings.Repeat("*", len(phone)-1)
		}
		return "+" + strings.Repeat("*", len(phone)-5) + phone[len(phone)-4:]
	}

	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// MaskGroupID masks a group JID to show structure but hide the number
// Example: "120363041234567890@g.us" -> "**************7890@g.us"
func MaskGroupID(groupID string) string {
	if groupID == "" {
		return ""
	}

	if strings.Contains(groupID, "@") {
		parts := strings.Split(groupID, "@")
		if len(parts) >= 2 {
			numberPart := parts[0]
			domainPart := "@" + strings.Join(parts[1:], "@")

			if len(numberPart) <= 4 {
				return strings.Repeat("*", len(numberPart)) + domainPart
			}
			return strings.Repeat("*", len(numberPart)-4) + numberPart[len(numberPart)-4:] + domainPart
		}
	}

	if len(groupID) <= 4 {
		return strings.Repeat("*", len(groupID))
	}
	return strings.Repeat("*", len(groupID)-4) + groupID[len(groupID)-4:]
}

// MaskParticipant masks a participant address, preserving the domain
// so the address family stays visible in logs.
// Example: "994705850808:3@s.whatsapp.net" -> "********0808:3@s.whatsapp.net"
func MaskParticipant(participant string) string {
	if participant == "" {
		return ""
	}

	at := strings.Index(participant, "@")
	local := participant
	domain := ""
	if at >= 0 {
		local = participant[:at]
		domain = participant[at:]
	}

	device := ""
	if colon := strings.Index(local, ":"); colon >= 0 {
		device = local[colon:]
		local = local[:colon]
	}

	return maskString(local, 4) + device + domain
}

// MaskMessageID masks a message id while keeping the tail for
// correlation during debugging.
func MaskMessageID(messageID string) string {
	return maskString(messageID, 8)
}

// MaskSecret masks a credential showing only a short prefix.
// Example: "wsk_a1b2c3d4e5" -> "wsk_a1***"
func MaskSecret(secret string) string {
	if secret == "" {
		return "[absent]"
	}
	if len(secret) <= 6 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:6] + "***"
}

// maskString masks a string showing only the last n characters
func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}

	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}

	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}

// MaskSensitiveFields applies appropriate masking to common logging fields
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{})
	for k, v := range fields {
		switch k {
		case "phone", "recipient", "from", "to", "admin", "courier":
			if s, ok := v.(string); ok {
				masked[k] = MaskPhoneNumber(s)
			} else {
				masked[k] = v
			}
		case "group_id", "groupId", "group":
			if s, ok := v.(string); ok {
				masked[k] = MaskGroupID(s)
			} else {
				masked[k] = v
			}
		case "participant", "sender":
			if s, ok := v.(string); ok {
				masked[k] = MaskParticipant(s)
			} else {
				masked[k] = v
			}
		case "message_id", "messageId", "msg_id", "target_message_id":
			if s, ok := v.(string); ok {
				masked[k] = MaskMessageID(s)
			} else {
				masked[k] = v
			}
		default:
			masked[k] = v
		}
	}
	return masked
}
