package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/time/rate"

	"courierbridge/internal/models"
	"courierbridge/internal/state"
)

const (
	testGroupID   = "120363000000000001@g.us"
	testAdminJID  = "994501112233@s.whatsapp.net"
	testCourierID = "994551112233@s.whatsapp.net"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type routerFixture struct {
	router *Router
	sender *mockSender
	push   *mockPush
	broker *mockBroker
	dedup  *state.DedupWindow
	orders *state.OrderCache
}

func newRouterFixture(t *testing.T, route *models.GroupRoute) *routerFixture {
	t.Helper()

	sender := &mockSender{}
	push := &mockPush{}
	broker := &mockBroker{}
	logger := quietLogger()

	engine := NewDeliveryEngine(sender, nil, models.DeliveryConfig{MaxAttempts: 3, SendGapSec: 1}, logger)
	engine.limiter = rate.NewLimiter(rate.Inf, 1)
	engine.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	dedup := state.NewDedupWindow(5*time.Minute, nil)
	orders := state.NewOrderCache(12*time.Hour, nil)

	route.GroupID = testGroupID
	groups := map[string]*models.GroupRoute{testGroupID: route}

	return &routerFixture{
		router: NewRouter(groups, dedup, orders, engine, push, broker, logger),
		sender: sender,
		push:   push,
		broker: broker,
		dedup:  dedup,
		orders: orders,
	}
}

func bridgeRoute() *models.GroupRoute {
	return &models.GroupRoute{
		AdminID:            testAdminJID,
		CourierID:          testCourierID,
		Channel:            models.ChannelCourierBridge,
		RequireAdminSender: true,
		ReactionPolicy:     models.ReactionPolicyCourier,
	}
}

func textEvent(msgID, sender, text string) *models.InboundEvent {
	return &models.InboundEvent{
		Event:         models.EventGroupMessage,
		SourceGroupID: testGroupID,
		SenderID:      sender,
		MessageID:     msgID,
		Body:          models.MessageBody{Kind: models.BodyText, Text: text},
	}
}

func reactionEvent(msgID, sender, emoji, target string) *models.InboundEvent {
	return &models.InboundEvent{
		Event:         models.EventReaction,
		SourceGroupID: testGroupID,
		SenderID:      sender,
		MessageID:     msgID,
		Body: models.MessageBody{
			Kind:     models.BodyReaction,
			Reaction: &models.ReactionBody{Emoji: emoji, TargetMessageID: target},
		},
	}
}

func TestRouter_DispatchThenCompletion(t *testing.T) {
	f := newRouterFixture(t, bridgeRoute())
	ctx := context.Background()

	f.sender.On("SendText", mock.Anything, "+994705850808", mock.MatchedBy(func(text string) bool {
		return text == "Sifarişiniz +994551112233 tərəfindən qəbul edildi."
	})).Return(nil).Once()

	// Same number written spaced and compact collapses to one recipient.
	f.router.HandleEvent(ctx, textEvent("ORDER1", testAdminJID, "Sifariş 070 585 08 08 və +994705850808 üçün"))
	f.sender.AssertExpectations(t)

	order, ok := f.orders.Lookup("ORDER1")
	assert.True(t, ok)
	assert.Equal(t, []string{"994705850808"}, order.Recipients)

	f.sender.On("SendText", mock.Anything, "+994705850808", textCompleted).Return(nil).Once()
	f.router.HandleEvent(ctx, reactionEvent("REACT1", testCourierID, "👍", "ORDER1"))
	f.sender.AssertExpectations(t)
}

func TestRouter_FromSelfNeverSends(t *testing.T) {
	f := newRouterFixture(t, bridgeRoute())

	ev := textEvent("SELF1", testAdminJID, "Sifariş +994705850808 üçün")
	ev.FromSelf = true
	f.router.HandleEvent(context.Background(), ev)

	f.sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_DedupBlocksSecondDelivery(t *testing.T) {
	f := newRouterFixture(t, bridgeRoute())
	ctx := context.Background()

	f.sender.On("SendText", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	ev := textEvent("DUP1", testAdminJID, "Sifariş +994705850808 üçün")
	f.router.HandleEvent(ctx, ev)
	f.router.HandleEvent(ctx, ev)

	f.sender.AssertNumberOfCalls(t, "SendText", 1)
}

func TestRouter_ContentFilterBlocksStop(t *testing.T) {
	route := bridgeRoute()
	route.ContentFilter = true
	f := newRouterFixture(t, route)

	// Valid phone present, but the cancellation keyword wins.
	f.router.HandleEvent(context.Background(), textEvent("STOP1", testAdminJID, "STOP +994705850808"))

	f.sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_NonAdminSenderDropped(t *testing.T) {
	f := newRouterFixture(t, bridgeRoute())

	f.router.HandleEvent(context.Background(), textEvent("NA1", "994771234567@s.whatsapp.net", "Sifariş +994705850808 üçün"))

	f.sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
	_, ok := f.orders.Lookup("NA1")
	assert.False(t, ok)
}

func TestRouter_AdminDeviceSuffixAccepted(t *testing.T) {
	f := newRouterFixture(t, bridgeRoute())

	f.sender.On("SendText", mock.Anything, "+994705850808", mock.Anything).Return(nil).Once()
	f.router.HandleEvent(context.Background(), textEvent("DEV1", "994501112233:17@s.whatsapp.net", "Sifariş +994705850808 üçün"))
	f.sender.AssertExpectations(t)
}

func TestRouter_ReactionPolicy(t *testing.T) {
	tests := []struct {
		name     string
		policy   models.ReactionPolicy
		reactor  string
		expected bool
	}{
		{"courier policy accepts courier", models.ReactionPolicyCourier, testCourierID, true},
		{"courier policy rejects admin", models.ReactionPolicyCourier, testAdminJID, false},
		{"admin policy accepts admin", models.ReactionPolicyAdmin, testAdminJID, true},
		{"admin policy rejects courier", models.ReactionPolicyAdmin, testCourierID, false},
		{"anyone policy accepts stranger", models.ReactionPolicyAnyone, "994771234567@s.whatsapp.net", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route := bridgeRoute()
			route.ReactionPolicy = tt.policy
			f := newRouterFixture(t, route)
			ctx := context.Background()

			f.sender.On("SendText", mock.Anything, mock.Anything, mock.Anything).Return(nil)
			f.router.HandleEvent(ctx, textEvent("ORD1", testAdminJID, "Sifariş +994705850808 üçün"))
			f.router.HandleEvent(ctx, reactionEvent("RX1", tt.reactor, "👍", "ORD1"))

			wantCalls := 1
			if tt.expected {
				wantCalls = 2
			}
			f.sender.AssertNumberOfCalls(t, "SendText", wantCalls)
		})
	}
}

func TestRouter_ReactionCacheMissIsNoop(t *testing.T) {
	f := newRouterFixture(t, bridgeRoute())

	f.router.HandleEvent(context.Background(), reactionEvent("RX2", testCourierID, "👍", "NEVER-RECORDED"))

	f.sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_NonThumbsUpReactionIgnored(t *testing.T) {
	f := newRouterFixture(t, bridgeRoute())
	ctx := context.Background()

	f.sender.On("SendText", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.router.HandleEvent(ctx, textEvent("ORD2", testAdminJID, "Sifariş +994705850808 üçün"))
	f.router.HandleEvent(ctx, reactionEvent("RX3", testCourierID, "❤️", "ORD2"))

	f.sender.AssertNumberOfCalls(t, "SendText", 1)
}

func TestRouter_LocationOnDirectChannel(t *testing.T) {
	route := bridgeRoute()
	route.Channel = models.ChannelDirectDelivery
	f := newRouterFixture(t, route)

	f.broker.On("Publish", mock.MatchedBy(func(rec models.ChatRecord) bool {
		return rec.Type == "location" && rec.Latitude == 40.4 && rec.GroupID == testGroupID
	})).Once()
	f.push.On("Notify", mock.Anything, []string{"994501112233"}, mock.Anything).Return(nil).Once()

	f.router.HandleEvent(context.Background(), &models.InboundEvent{
		Event:         models.EventDirectMessage,
		SourceGroupID: testGroupID,
		SenderID:      testCourierID,
		MessageID:     "LOC1",
		Body: models.MessageBody{
			Kind:     models.BodyLocation,
			Location: &models.LocationBody{Latitude: 40.4, Longitude: 49.8},
		},
	})

	f.broker.AssertExpectations(t)
	f.push.AssertExpectations(t)
	f.sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_LocationOnBridgeChannelIgnored(t *testing.T) {
	f := newRouterFixture(t, bridgeRoute())

	f.router.HandleEvent(context.Background(), &models.InboundEvent{
		Event:         models.EventDirectMessage,
		SourceGroupID: testGroupID,
		SenderID:      testCourierID,
		MessageID:     "LOC2",
		Body: models.MessageBody{
			Kind:     models.BodyLocation,
			Location: &models.LocationBody{Latitude: 40.4, Longitude: 49.8},
		},
	})

	f.broker.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestRouter_UnroutedGroupIgnored(t *testing.T) {
	f := newRouterFixture(t, bridgeRoute())

	ev := textEvent("UNROUTED", testAdminJID, "Sifariş +994705850808 üçün")
	ev.SourceGroupID = "other@g.us"
	f.router.HandleEvent(context.Background(), ev)

	f.sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_UnknownEventTypeIgnored(t *testing.T) {
	f := newRouterFixture(t, bridgeRoute())

	ev := textEvent("EVX", testAdminJID, "Sifariş +994705850808 üçün")
	ev.Event = "session.status"
	f.router.HandleEvent(context.Background(), ev)

	f.sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestIsThumbsUp(t *testing.T) {
	tests := []struct {
		emoji string
		want  bool
	}{
		{"👍", true},
		{"👍🏽", true},
		{`👍`, true},
		{":thumbsup:", true},
		{":+1:", true},
		{"❤️", false},
		{"ok", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsThumbsUp(tt.emoji), "emoji %q", tt.emoji)
	}
}

func TestIsFilteredText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"stop alone", "stop", true},
		{"stop uppercase", "STOP", true},
		{"stop inside sentence", "please stop now", true},
		{"stop with phone", "stop +994705850808", true},
		{"stop as substring not word", "unstoppable delivery", false},
		{"pure punctuation", "!!! ...", true},
		{"bare phone listing", "+994705850808 0555850808", true},
		{"normal dispatch", "Sifariş 070 585 08 08 üçün", false},
		{"empty", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFilteredText(tt.text))
		})
	}
}
