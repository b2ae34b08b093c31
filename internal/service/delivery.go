package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"courierbridge/internal/constants"
	"courierbridge/internal/database"
	"courierbridge/internal/metrics"
	"courierbridge/internal/models"
	"courierbridge/internal/phone"
	"courierbridge/internal/privacy"
)

// TextSender sends one text message to one canonical recipient. The
// recipient is passed in international form with a leading plus.
type TextSender interface {
	SendText(ctx context.Context, to, text string) error
}

// RetryAfterError is implemented by transport errors that carry a
// provider-supplied retry-after hint.
type RetryAfterError interface {
	error
	RetryAfter() (time.Duration, bool)
}

// ReceiptJournal persists a per-recipient delivery outcome. Journal
// failures are logged and ignored; the journal is an audit trail, not
// part of the correlation state.
type ReceiptJournal interface {
	SaveReceipt(ctx context.Context, receipt *database.DeliveryReceipt) error
}

// DeliveryRequest is one fan-out: the same text to every recipient of
// an order, in one of the two notification modes.
type DeliveryRequest struct {
	OrderMessageID string
	GroupID        string
	Recipients     []string
	Text           string
	Mode           models.DeliveryMode
}

// DeliveryEngine sends notifications recipient by recipient with
// bounded retries and a pacing gap that keeps the fan-out under the
// provider rate limit. A failed recipient never aborts the rest.
type DeliveryEngine struct {
	sender      TextSender
	journal     ReceiptJournal
	logger      *logrus.Logger
	limiter     *rate.Limiter
	maxAttempts int
	gap         time.Duration

	// sleep is swapped out in tests to observe retry waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDeliveryEngine(sender TextSender, journal ReceiptJournal, cfg models.DeliveryConfig, logger *logrus.Logger) *DeliveryEngine {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = constants.DefaultSendAttempts
	}
	gapSec := cfg.SendGapSec
	if gapSec <= 0 {
		gapSec = constants.DefaultSendGapSec
	}
	gap := time.Duration(gapSec) * time.Second

	return &DeliveryEngine{
		sender:      sender,
		journal:     journal,
		logger:      logger,
		limiter:     rate.NewLimiter(rate.Every(gap), 1),
		maxAttempts: maxAttempts,
		gap:         gap,
		sleep:       sleepContext,
	}
}

// Deliver sends req.Text to every recipient and reports one result per
// recipient. Returns early only when the context is cancelled.
func (e *DeliveryEngine) Deliver(ctx context.Context, req DeliveryRequest) []models.RecipientResult {
	results := make([]models.RecipientResult, 0, len(req.Recipients))

	for _, recipient := range req.Recipients {
		if err := e.limiter.Wait(ctx); err != nil {
			results = append(results, models.RecipientResult{Recipient: recipient, Err: err})
			continue
		}

		result := e.deliverOne(ctx, recipient, req.Text)
		results = append(results, result)
		e.journalResult(ctx, req, result)

		if result.Err != nil {
			metrics.IncrementCounter("delivery_recipient_failures_total", map[string]string{"mode": string(req.Mode)}, "Recipients that exhausted retries")
			e.logger.WithFields(logrus.Fields{
				LogFieldRecipient: privacy.MaskPhoneNumber(recipient),
				LogFieldMode:      string(req.Mode),
				LogFieldAttempt:   result.Attempts,
			}).WithError(result.Err).Warn("Delivery to recipient failed after retries")
		} else {
			metrics.IncrementCounter("delivery_recipient_success_total", map[string]string{"mode": string(req.Mode)}, "Recipients notified successfully")
		}
	}

	return results
}

func (e *DeliveryEngine) deliverOne(ctx context.Context, recipient, text string) models.RecipientResult {
	result := models.RecipientResult{Recipient: recipient}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		result.Attempts = attempt

		err := e.sender.SendText(ctx, phone.FormatInternational(recipient), text)
		if err == nil {
			return result
		}
		lastErr = err

		if attempt == e.maxAttempts {
			break
		}

		wait := e.gap
		if ra, ok := err.(RetryAfterError); ok {
			if d, has := ra.RetryAfter(); has {
				wait = d + constants.RetryAfterMarginMs*time.Millisecond
			}
		}

		e.logger.WithFields(logrus.Fields{
			LogFieldRecipient:  privacy.MaskPhoneNumber(recipient),
			LogFieldAttempt:    attempt,
			LogFieldRetryAfter: wait.Seconds(),
		}).WithError(err).Debug("Send failed, waiting before retry")

		if err := e.sleep(ctx, wait); err != nil {
			result.Err = err
			return result
		}
	}

	result.Err = lastErr
	return result
}

func (e *DeliveryEngine) journalResult(ctx context.Context, req DeliveryRequest, result models.RecipientResult) {
	if e.journal == nil {
		return
	}

	receipt := &database.DeliveryReceipt{
		OrderMessageID: req.OrderMessageID,
		GroupID:        req.GroupID,
		Recipient:      result.Recipient,
		Mode:           req.Mode,
		Attempts:       result.Attempts,
		Status:         database.ReceiptStatusSent,
	}
	if result.Err != nil {
		receipt.Status = database.ReceiptStatusFailed
		receipt.LastError = result.Err.Error()
	}

	if err := e.journal.SaveReceipt(ctx, receipt); err != nil {
		e.logger.WithError(err).Warn("Failed to journal delivery receipt")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
