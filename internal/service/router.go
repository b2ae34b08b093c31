package service

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"courierbridge/internal/identity"
	"courierbridge/internal/metrics"
	"courierbridge/internal/models"
	"courierbridge/internal/phone"
	"courierbridge/internal/privacy"
	"courierbridge/internal/state"
)

// PushSender submits a best-effort push notification to a batch of
// digit-string recipient identifiers.
type PushSender interface {
	Notify(ctx context.Context, recipients []string, message string) error
}

// ChatPublisher forwards a chat record to the downstream mirror.
// Fire and forget: the publisher queues internally while disconnected.
type ChatPublisher interface {
	Publish(record models.ChatRecord)
}

// Notification texts sent to order recipients.
const (
	textAssignedPrefix = "Sifarişiniz "
	textAssignedSuffix = " tərəfindən qəbul edildi."
	textCompleted      = "Sifarişiniz çatdırıldı. Təşəkkür edirik!"
)

var (
	reStopWord       = regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])stop($|[^\p{L}\p{N}])`)
	reDoubleEscThumb = regexp.MustCompile(`(?i)\\ud83d\\udc4d`)
)

// Router classifies normalized inbound events and drives the order
// lifecycle: dispatch text records an order and fans out "assigned"
// notifications, a later thumbs-up reaction on that message fans out
// "completed" notifications to the same recipients.
type Router struct {
	groups   map[string]*models.GroupRoute
	dedup    *state.DedupWindow
	orders   *state.OrderCache
	delivery *DeliveryEngine
	push     PushSender
	broker   ChatPublisher
	logger   *logrus.Logger
	now      state.Clock
}

// NewRouter wires the router. push and broker may be nil when the
// direct-delivery side channels are disabled.
func NewRouter(groups map[string]*models.GroupRoute, dedup *state.DedupWindow, orders *state.OrderCache, delivery *DeliveryEngine, push PushSender, broker ChatPublisher, logger *logrus.Logger) *Router {
	return &Router{
		groups:   groups,
		dedup:    dedup,
		orders:   orders,
		delivery: delivery,
		push:     push,
		broker:   broker,
		logger:   logger,
		now:      state.SystemClock(),
	}
}

// HandleEvent processes one normalized webhook event. It never returns
// an error: every unprocessable event is a logged no-op, because the
// webhook caller was already acknowledged.
func (r *Router) HandleEvent(ctx context.Context, ev *models.InboundEvent) {
	if ev == nil {
		return
	}

	log := r.logger.WithFields(logrus.Fields{
		LogFieldEvent:     ev.Event,
		LogFieldGroupID:   privacy.MaskGroupID(ev.SourceGroupID),
		LogFieldMessageID: privacy.MaskMessageID(ev.MessageID),
		LogFieldBodyKind:  ev.Body.Kind.String(),
	})

	switch ev.Event {
	case models.EventGroupMessage, models.EventDirectMessage, models.EventReaction:
	default:
		log.Debug("Ignoring unrecognized event type")
		return
	}

	route, ok := r.groups[ev.SourceGroupID]
	if !ok {
		log.Debug("No route configured for source group")
		return
	}
	log = log.WithField(LogFieldChannel, string(route.Channel))

	if ev.FromSelf {
		log.Debug("Ignoring own outbound message")
		return
	}

	if r.dedup.SeenRecently(ev.MessageID) {
		metrics.IncrementCounter("events_deduplicated_total", nil, "Events dropped by the dedup window")
		log.Debug("Duplicate event within dedup window")
		return
	}

	switch ev.Body.Kind {
	case models.BodyLocation:
		r.handleLocation(ctx, ev, route, log)
	case models.BodyReaction:
		r.handleReaction(ctx, ev, route, log)
	case models.BodyText:
		r.handleText(ctx, ev, route, log)
	default:
		log.Debug("Empty message body")
	}
}

// handleLocation mirrors a shared location to the downstream chat
// channel and pushes a notice to the group admin. Both calls are side
// channels: failure is logged and never affects order state. The
// courier-bridge channel has no location consumers.
func (r *Router) handleLocation(ctx context.Context, ev *models.InboundEvent, route *models.GroupRoute, log *logrus.Entry) {
	if route.Channel != models.ChannelDirectDelivery {
		log.Debug("Location on non-direct channel, ignoring")
		return
	}

	if r.broker != nil {
		r.broker.Publish(models.ChatRecord{
			Type:      "location",
			GroupID:   ev.SourceGroupID,
			SenderID:  identity.ResolveSenderID(ev.SenderID),
			MessageID: ev.MessageID,
			Text:      ev.Body.Location.Caption,
			Latitude:  ev.Body.Location.Latitude,
			Longitude: ev.Body.Location.Longitude,
			SentAt:    r.now().UTC(),
		})
	}

	if r.push != nil {
		if adminDigits := identity.ResolveSenderID(route.AdminID); adminDigits != "" {
			if err := r.push.Notify(ctx, []string{adminDigits}, "Kuryer məkan paylaşdı"); err != nil {
				log.WithError(err).Warn("Push notification failed")
			}
		}
	}

	metrics.IncrementCounter("location_events_total", nil, "Location events forwarded")
	log.Info("Forwarded location event")
}

func (r *Router) handleReaction(ctx context.Context, ev *models.InboundEvent, route *models.GroupRoute, log *logrus.Entry) {
	reaction := ev.Body.Reaction
	if reaction.TargetMessageID == "" {
		log.Debug("Reaction without target message id")
		return
	}

	if !IsThumbsUp(reaction.Emoji) {
		log.Debug("Reaction is not a completion mark")
		return
	}

	if !r.reactorAllowed(ev.SenderID, route) {
		log.WithField(LogFieldSender, privacy.MaskParticipant(ev.SenderID)).
			Debug("Reactor not permitted to complete orders")
		return
	}

	order, ok := r.orders.Lookup(reaction.TargetMessageID)
	if !ok {
		metrics.IncrementCounter("reaction_cache_misses_total", nil, "Reactions with no cached order")
		log.Debug("No cached order for reaction target")
		return
	}

	log.WithField(LogFieldCount, len(order.Recipients)).Info("Order completed, notifying recipients")
	metrics.IncrementCounter("orders_completed_total", nil, "Orders completed by reaction")

	r.delivery.Deliver(ctx, DeliveryRequest{
		OrderMessageID: order.MessageID,
		GroupID:        order.GroupID,
		Recipients:     order.Recipients,
		Text:           textCompleted,
		Mode:           models.DeliveryModeCompleted,
	})
}

func (r *Router) handleText(ctx context.Context, ev *models.InboundEvent, route *models.GroupRoute, log *logrus.Entry) {
	text := ev.Body.Text

	if route.ContentFilter && IsFilteredText(text) {
		metrics.IncrementCounter("messages_filtered_total", nil, "Dispatch texts blocked by content filter")
		log.Debug("Message blocked by content filter")
		return
	}

	if route.RequireAdminSender {
		senderID := identity.ResolveSenderID(ev.SenderID)
		if !identity.IsAdmin(senderID, route) {
			log.WithField(LogFieldSender, privacy.MaskParticipant(ev.SenderID)).
				Debug("Dispatch text from non-admin sender, ignoring")
			return
		}
	}

	recipients := phone.ExtractAll(text)
	if len(recipients) == 0 {
		log.Debug("No recipients found in dispatch text")
		return
	}

	r.orders.Record(ev.MessageID, ev.SourceGroupID, recipients, text)

	log.WithField(LogFieldCount, len(recipients)).Info("Order dispatched, notifying recipients")
	metrics.IncrementCounter("orders_dispatched_total", nil, "Orders recorded from dispatch texts")

	r.delivery.Deliver(ctx, DeliveryRequest{
		OrderMessageID: ev.MessageID,
		GroupID:        ev.SourceGroupID,
		Recipients:     recipients,
		Text:           r.assignedText(route),
		Mode:           models.DeliveryModeAssigned,
	})
}

func (r *Router) reactorAllowed(senderAddr string, route *models.GroupRoute) bool {
	switch route.ReactionPolicy {
	case models.ReactionPolicyAnyone:
		return true
	case models.ReactionPolicyAdmin:
		return identity.IsAdmin(identity.ResolveSenderID(senderAddr), route)
	default:
		return identity.IsCourier(identity.ResolveSenderID(senderAddr), route)
	}
}

// assignedText names the accepting courier in international form.
func (r *Router) assignedText(route *models.GroupRoute) string {
	courier := identity.ResolveSenderID(route.CourierID)
	if normalized, ok := phone.Normalize(courier); ok {
		courier = normalized
	}
	return textAssignedPrefix + phone.FormatInternational(courier) + textAssignedSuffix
}

// IsThumbsUp reports whether an emoji payload is a completion mark.
// Recognized forms: the U+1F44D glyph (any skin tone), the
// double-escaped surrogate-pair text some channel revisions deliver,
// and the textual aliases.
func IsThumbsUp(emoji string) bool {
	if emoji == "" {
		return false
	}
	if strings.ContainsRune(emoji, '\U0001F44D') {
		return true
	}
	if reDoubleEscThumb.MatchString(emoji) {
		return true
	}
	lower := strings.ToLower(strings.TrimSpace(emoji))
	return lower == ":thumbsup:" || lower == ":+1:"
}

// IsFilteredText reports whether a dispatch text must be dropped:
// a cancellation keyword, pure punctuation, or a message that is
// nothing but phone numbers (a listing, not a dispatch).
func IsFilteredText(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}

	if reStopWord.MatchString(trimmed) {
		return true
	}

	hasLetter := false
	hasDigit := false
	for _, r := range trimmed {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}
	if !hasLetter && !hasDigit {
		return true
	}

	// Bare phone listing: stripping every extracted number leaves no
	// letters, so there is no dispatch instruction around the numbers.
	if !hasLetter && len(phone.ExtractAll(trimmed)) > 0 {
		return true
	}

	return false
}
