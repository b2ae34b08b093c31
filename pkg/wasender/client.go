package wasender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client sends text messages through the Wasender HTTP API.
type Client interface {
	SendText(ctx context.Context, to, text string) error
}

// SendError is a non-2xx response from the provider. RetryAfterSec is
// populated from the response body or the Retry-After header when the
// provider supplied one.
type SendError struct {
	StatusCode    int
	Message       string
	RetryAfterSec int
	HasRetryAfter bool
}

func (e *SendError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("wasender send failed: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("wasender send failed: status %d", e.StatusCode)
}

// RetryAfter returns the provider-requested wait before the next
// attempt, if one was supplied.
func (e *SendError) RetryAfter() (time.Duration, bool) {
	if !e.HasRetryAfter {
		return 0, false
	}
	return time.Duration(e.RetryAfterSec) * time.Second, true
}

type sendRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type errorResponse struct {
	Message    string   `json:"message"`
	RetryAfter *float64 `json:"retry_after"`
}

type WasenderClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logrus.Logger
	dryRun  bool
}

func NewClient(baseURL, apiKey string, timeout time.Duration, dryRun bool, logger *logrus.Logger) *WasenderClient {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &WasenderClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		dryRun:  dryRun,
	}
}

// SendText posts one message. The recipient must already be in
// international form with a leading plus.
func (c *WasenderClient) SendText(ctx context.Context, to, text string) error {
	if c.dryRun {
		c.logger.WithFields(logrus.Fields{
			"to":   to,
			"text": text,
		}).Info("Dry run: skipping provider send")
		return nil
	}

	jsonData, err := json.Marshal(sendRequest{To: to, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/api/send-message"
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
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return c.buildSendError(resp)
}

func (c *WasenderClient) buildSendError(resp *http.Response) *SendError {
	sendErr := &SendError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(body) > 0 {
		var parsed errorResponse
		if json.Unmarshal(body, &parsed) == nil {
			sendErr.Message = parsed.Message
			if parsed.RetryAfter != nil {
				sendErr.RetryAfterSec = int(*parsed.RetryAfter)
				sendErr.HasRetryAfter = true
			}
		}
	}

	if !sendErr.HasRetryAfter {
		if header := resp.Header.Get("Retry-After"); header != "" {
			if sec, err := strconv.Atoi(header); err == nil {
				sendErr.RetryAfterSec = sec
				sendErr.HasRetryAfter = true
			}
		}
	}

	return sendErr
}
