package models

import "time"

// BodyKind tags the variant carried by a MessageBody.
type BodyKind int

const (
	BodyEmpty BodyKind = iota
	BodyText
	BodyLocation
	BodyReaction
)

func (k BodyKind) String() string {
	switch k {
	case BodyText:
		return "text"
	case BodyLocation:
		return "location"
	case BodyReaction:
		return "reaction"
	default:
		return "empty"
	}
}

// LocationBody is a shared-location payload.
type LocationBody struct {
	Latitude  float64
	Longitude float64
	Caption   string
}

// ReactionBody is an emoji reaction referencing an earlier message.
type ReactionBody struct {
	Emoji           string
	TargetMessageID string
}

// MessageBody is the tagged variant constructed once at ingestion.
// Exactly the field matching Kind is populated; downstream logic
// switches on Kind instead of probing optional payload fields.
type MessageBody struct {
	Kind     BodyKind
	Text     string
	Location *LocationBody
	Reaction *ReactionBody
}

// InboundEvent is the normalized view of one webhook call. It is
// constructed once per call, never mutated, and discarded after
// handling.
type InboundEvent struct {
	Event         string
	SourceGroupID string
	SenderID      string
	MessageID     string
	FromSelf      bool
	Body          MessageBody
}

// OrderRecord associates a dispatch message with the recipients
// extracted from it. Owned exclusively by the order cache.
type OrderRecord struct {
	MessageID    string
	GroupID      string
	Recipients   []string
	OriginalText string
	CreatedAt    time.Time
}

// DeliveryMode distinguishes the two notification fan-outs.
type DeliveryMode string

const (
	DeliveryModeAssigned  DeliveryMode = "assigned"
	DeliveryModeCompleted DeliveryMode = "completed"
)

// RecipientResult reports the outcome of delivery to one recipient.
type RecipientResult struct {
	Recipient string
	Attempts  int
	Err       error
}

// ChatRecord is the fire-and-forget structured record published to the
// downstream chat-mirror broker for direct-delivery groups.
type ChatRecord struct {
	Type      string    `json:"type"`
	GroupID   string    `json:"groupId"`
	SenderID  string    `json:"senderId"`
	MessageID string    `json:"messageId"`
	Text      string    `json:"text,omitempty"`
	Latitude  float64   `json:"lat,omitempty"`
	Longitude float64   `json:"lng,omitempty"`
	SentAt    time.Time `json:"sentAt"`
}
