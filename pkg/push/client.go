package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "courierbridge/internal/errors"
)

// Client submits push notifications to the mobile push gateway. All
// submissions are best-effort: callers log failures and move on.
type Client interface {
	Notify(ctx context.Context, recipients []string, message string) error
}

// Recipient identifiers are subscriber numbers, digits only.
var reDigits = regexp.MustCompile(`^\d{5,15}$`)

type pushRequest struct {
	AppID      string   `json:"app_id,omitempty"`
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
}

type PushClient struct {
	baseURL   string
	apiKey    string
	appID     string
	batchSize int
	client    *http.Client
	logger    *logrus.Logger
}

func NewClient(baseURL, apiKey, appID string, batchSize int, logger *logrus.Logger) *PushClient {
	if batchSize <= 0 {
		batchSize = 50
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &PushClient{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		apiKey:    apiKey,
		appID:     appID,
		batchSize: batchSize,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

// Notify submits the message to every well-formed recipient in
// batches. Malformed identifiers are dropped, not errors. Returns the
// first batch error, after attempting every batch.
func (c *PushClient) Notify(ctx context.Context, recipients []string, message string) error {
	valid := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if reDigits.MatchString(r) {
			valid = append(valid, r)
		} else {
			c.logger.WithField("recipient_len", len(r)).Debug("Dropping malformed push recipient")
		}
	}
	if len(valid) == 0 {
		return nil
	}

	var firstErr error
	for start := 0; start < len(valid); start += c.batchSize {
		end := start + c.batchSize
		if end > len(valid) {
			end = len(valid)
		}

		if err := c.sendBatch(ctx, valid[start:end], message); err != nil {
			c.logger.WithError(err).Warn("Push batch submission failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (c *PushClient) sendBatch(ctx context.Context, recipients []string, message string) error {
	jsonData, err := json.Marshal(pushRequest{
		AppID:      c.appID,
		Recipients: recipients,
		Message:    message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}

	endpoint := c.baseURL + "/api/push"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewAPIError("push", endpoint, resp.StatusCode, nil)
	}
	return nil
}
