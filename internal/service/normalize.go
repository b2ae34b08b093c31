package service

import (
	"encoding/json"
	"sort"

	"courierbridge/internal/constants"
	"courierbridge/internal/models"
)

// NormalizeEvent converts a raw webhook envelope into an InboundEvent.
// The provider has shipped several payload shapes over time, so the
// message envelope is located by trying known shapes in a fixed order:
//
//  1. data is the message envelope itself
//  2. data.message holds the envelope
//  3. data.messages[0] holds the envelope
//  4. bounded walk of the data tree for the first embedded envelope
//
// Returns false when no envelope with a message id can be located;
// such payloads are acknowledged and ignored.
func NormalizeEvent(env *models.WebhookEnvelope) (*models.InboundEvent, bool) {
	if env == nil || env.Event == "" || len(env.Data) == 0 {
		return nil, false
	}

	msg := locateEnvelope(env.Data)
	if msg == nil {
		return nil, false
	}

	return &models.InboundEvent{
		Event:         env.Event,
		SourceGroupID: msg.Key.RemoteJID,
		SenderID:      msg.Key.Participant,
		MessageID:     msg.Key.ID,
		FromSelf:      msg.Key.FromMe,
		Body:          buildBody(msg),
	}, true
}

func locateEnvelope(data json.RawMessage) *models.MessageEnvelope {
	if msg := decodeEnvelope(data); msg != nil {
		return msg
	}

	var wrapped struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Message) > 0 {
		if msg := decodeEnvelope(wrapped.Message); msg != nil {
			return msg
		}
	}

	var listed struct {
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &listed); err == nil && len(listed.Messages) > 0 {
		if msg := decodeEnvelope(listed.Messages[0]); msg != nil {
			return msg
		}
	}

	return walkForEnvelope(data, constants.NormalizeMaxTreeDepth)
}

// decodeEnvelope accepts a candidate only when it carries a message id,
// which every real provider envelope has.
func decodeEnvelope(raw json.RawMessage) *models.MessageEnvelope {
	var msg models.MessageEnvelope
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil
	}
	if msg.Key == nil || msg.Key.ID == "" {
		return nil
	}
	return &msg
}

// walkForEnvelope descends the payload tree looking for the first
// object that decodes as a message envelope. Keys are visited in
// sorted order so the result does not depend on map iteration.
// Depth is bounded to keep hostile payloads cheap.
func walkForEnvelope(raw json.RawMessage, depth int) *models.MessageEnvelope {
	if depth <= 0 {
		return nil
	}

	if msg := decodeEnvelope(raw); msg != nil {
		return msg
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if msg := walkForEnvelope(obj[k], depth-1); msg != nil {
				return msg
			}
		}
		return nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		for _, item := range arr {
			if msg := walkForEnvelope(item, depth-1); msg != nil {
				return msg
			}
		}
	}

	return nil
}

func buildBody(msg *models.MessageEnvelope) models.MessageBody {
	// Flat reaction object, attached by newer channel revisions.
	if msg.Reaction != nil && msg.Reaction.MessageID != "" {
		return models.MessageBody{
			Kind: models.BodyReaction,
			Reaction: &models.ReactionBody{
				Emoji:           msg.Reaction.Text,
				TargetMessageID: msg.Reaction.MessageID,
			},
		}
	}

	if msg.Message == nil {
		return models.MessageBody{Kind: models.BodyEmpty}
	}

	if rm := msg.Message.ReactionMessage; rm != nil && rm.Key != nil && rm.Key.ID != "" {
		return models.MessageBody{
			Kind: models.BodyReaction,
			Reaction: &models.ReactionBody{
				Emoji:           rm.Text,
				TargetMessageID: rm.Key.ID,
			},
		}
	}

	if lm := msg.Message.LocationMessage; lm != nil {
		return models.MessageBody{
			Kind: models.BodyLocation,
			Location: &models.LocationBody{
				Latitude:  lm.DegreesLatitude,
				Longitude: lm.DegreesLongitude,
				Caption:   lm.Name,
			},
		}
	}

	if text := messageText(msg.Message); text != "" {
		return models.MessageBody{Kind: models.BodyText, Text: text}
	}

	return models.MessageBody{Kind: models.BodyEmpty}
}

// messageText returns the human-visible text of a message, checking
// the content variants in the order the provider populates them.
func messageText(m *models.MessageContent) string {
	if m.Conversation != "" {
		return m.Conversation
	}
	if m.ExtendedTextMessage != nil && m.ExtendedTextMessage.Text != "" {
		return m.ExtendedTextMessage.Text
	}
	if m.ImageMessage != nil && m.ImageMessage.Caption != "" {
		return m.ImageMessage.Caption
	}
	if m.VideoMessage != nil && m.VideoMessage.Caption != "" {
		return m.VideoMessage.Caption
	}
	return ""
}
