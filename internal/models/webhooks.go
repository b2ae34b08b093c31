package models

import "encoding/json"

// Webhook event types recognized by the router. Other event values
// are acknowledged and ignored.
const (
	EventGroupMessage  = "messages-group.received"
	EventDirectMessage = "messages.received"
	EventReaction      = "messages.reaction"
)

// WebhookEnvelope is the outermost webhook body: an event name plus a
// channel-revision-dependent data object. Data is kept raw because the
// message envelope may appear at several depths (see normalize rules).
type WebhookEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// MessageKey identifies a message within its group and carries the
// sender participant address.
type MessageKey struct {
	RemoteJID   string `json:"remoteJid"`
	Participant string `json:"participant"`
	ID          string `json:"id"`
	FromMe      bool   `json:"fromMe"`
}

// MessageContent mirrors the provider message object. At most one of
// the pointer fields is set per message.
type MessageContent struct {
	Conversation        string `json:"conversation,omitempty"`
	ExtendedTextMessage *struct {
		Text string `json:"text"`
	} `json:"extendedTextMessage,omitempty"`
	ImageMessage *struct {
		Caption string `json:"caption"`
	} `json:"imageMessage,omitempty"`
	VideoMessage *struct {
		Caption string `json:"caption"`
	} `json:"videoMessage,omitempty"`
	LocationMessage *struct {
		DegreesLatitude  float64 `json:"degreesLatitude"`
		DegreesLongitude float64 `json:"degreesLongitude"`
		Name             string  `json:"name"`
	} `json:"locationMessage,omitempty"`
	ReactionMessage *struct {
		Text string      `json:"text"`
		Key  *MessageKey `json:"key"`
	} `json:"reactionMessage,omitempty"`
}

// MessageEnvelope is the known provider message shape: a key plus the
// message content. Newer channel revisions also attach a flat reaction
// object next to the key.
type MessageEnvelope struct {
	Key      *MessageKey     `json:"key"`
	Message  *MessageContent `json:"message"`
	Reaction *struct {
		Text      string `json:"text"`
		MessageID string `json:"messageId"`
	} `json:"reaction,omitempty"`
}
