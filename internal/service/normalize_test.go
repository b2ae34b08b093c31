package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierbridge/internal/models"
)

func envelope(t *testing.T, event, data string) *models.WebhookEnvelope {
	t.Helper()
	return &models.WebhookEnvelope{Event: event, Data: json.RawMessage(data)}
}

func TestNormalizeEvent_DirectShape(t *testing.T) {
	env := envelope(t, models.EventGroupMessage, `{
		"key": {"remoteJid": "12036@g.us", "participant": "994501112233@s.whatsapp.net", "id": "MSG1", "fromMe": false},
		"message": {"conversation": "salam"}
	}`)

	ev, ok := NormalizeEvent(env)
	require.True(t, ok)
	assert.Equal(t, models.EventGroupMessage, ev.Event)
	assert.Equal(t, "12036@g.us", ev.SourceGroupID)
	assert.Equal(t, "994501112233@s.whatsapp.net", ev.SenderID)
	assert.Equal(t, "MSG1", ev.MessageID)
	assert.False(t, ev.FromSelf)
	assert.Equal(t, models.BodyText, ev.Body.Kind)
	assert.Equal(t, "salam", ev.Body.Text)
}

func TestNormalizeEvent_WrappedShapes(t *testing.T) {
	inner := `{
		"key": {"remoteJid": "12036@g.us", "participant": "p@s.whatsapp.net", "id": "MSG2"},
		"message": {"extendedTextMessage": {"text": "quoted reply"}}
	}`

	tests := []struct {
		name string
		data string
	}{
		{"under message key", `{"message": ` + inner + `}`},
		{"first of messages array", `{"messages": [` + inner + `, {"key": {"id": "MSG3"}}]}`},
		{"buried in tree", `{"sessionId": "s1", "payload": {"update": {"entry": ` + inner + `}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := NormalizeEvent(envelope(t, models.EventGroupMessage, tt.data))
			require.True(t, ok)
			assert.Equal(t, "MSG2", ev.MessageID)
			assert.Equal(t, models.BodyText, ev.Body.Kind)
			assert.Equal(t, "quoted reply", ev.Body.Text)
		})
	}
}

func TestNormalizeEvent_TreeWalkDepthBound(t *testing.T) {
	inner := `{"key": {"remoteJid": "g@g.us", "participant": "p", "id": "DEEP"}}`
	// Eight levels of nesting exceeds the walk bound.
	data := inner
	for i := 0; i < 8; i++ {
		data = `{"a": ` + data + `}`
	}

	_, ok := NormalizeEvent(envelope(t, models.EventGroupMessage, data))
	assert.False(t, ok)
}

func TestNormalizeEvent_BodyKinds(t *testing.T) {
	tests := []struct {
		name string
		data string
		want models.BodyKind
	}{
		{
			"location",
			`{"key": {"remoteJid": "g", "participant": "p", "id": "M"},
			  "message": {"locationMessage": {"degreesLatitude": 40.4, "degreesLongitude": 49.8, "name": "Baku"}}}`,
			models.BodyLocation,
		},
		{
			"reaction message",
			`{"key": {"remoteJid": "g", "participant": "p", "id": "M"},
			  "message": {"reactionMessage": {"text": "👍", "key": {"id": "TARGET"}}}}`,
			models.BodyReaction,
		},
		{
			"flat reaction",
			`{"key": {"remoteJid": "g", "participant": "p", "id": "M"},
			  "reaction": {"text": "👍", "messageId": "TARGET"}}`,
			models.BodyReaction,
		},
		{
			"image caption",
			`{"key": {"remoteJid": "g", "participant": "p", "id": "M"},
			  "message": {"imageMessage": {"caption": "070 585 08 08"}}}`,
			models.BodyText,
		},
		{
			"video caption",
			`{"key": {"remoteJid": "g", "participant": "p", "id": "M"},
			  "message": {"videoMessage": {"caption": "çatdırılma"}}}`,
			models.BodyText,
		},
		{
			"empty",
			`{"key": {"remoteJid": "g", "participant": "p", "id": "M"}, "message": {}}`,
			models.BodyEmpty,
		},
		{
			"no message object",
			`{"key": {"remoteJid": "g", "participant": "p", "id": "M"}}`,
			models.BodyEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := NormalizeEvent(envelope(t, models.EventGroupMessage, tt.data))
			require.True(t, ok)
			assert.Equal(t, tt.want, ev.Body.Kind)
		})
	}
}

func TestNormalizeEvent_ReactionTarget(t *testing.T) {
	ev, ok := NormalizeEvent(envelope(t, models.EventReaction, `{
		"key": {"remoteJid": "g", "participant": "p", "id": "M"},
		"message": {"reactionMessage": {"text": "👍", "key": {"id": "ORDER42"}}}
	}`))
	require.True(t, ok)
	require.NotNil(t, ev.Body.Reaction)
	assert.Equal(t, "👍", ev.Body.Reaction.Emoji)
	assert.Equal(t, "ORDER42", ev.Body.Reaction.TargetMessageID)
}

func TestNormalizeEvent_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  *models.WebhookEnvelope
	}{
		{"nil envelope", nil},
		{"empty event", envelope(t, "", `{"key": {"id": "M"}}`)},
		{"no data", &models.WebhookEnvelope{Event: models.EventGroupMessage}},
		{"no message id anywhere", envelope(t, models.EventGroupMessage, `{"status": "connected"}`)},
		{"scalar data", envelope(t, models.EventGroupMessage, `"ping"`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := NormalizeEvent(tt.env)
			assert.False(t, ok)
		})
	}
}
