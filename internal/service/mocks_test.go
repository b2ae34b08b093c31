package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/mock"

	"courierbridge/internal/database"
	"courierbridge/internal/models"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendText(ctx context.Context, to, text string) error {
	args := m.Called(ctx, to, text)
	return args.Error(0)
}

// sendError mimics a transport failure with an optional retry-after
// hint, matching the wasender client's error contract.
type sendError struct {
	status     int
	retryAfter time.Duration
	hasRetry   bool
}

func (e *sendError) Error() string {
	return fmt.Sprintf("send failed with status %d", e.status)
}

func (e *sendError) RetryAfter() (time.Duration, bool) {
	return e.retryAfter, e.hasRetry
}

type mockPush struct {
	mock.Mock
}

func (m *mockPush) Notify(ctx context.Context, recipients []string, message string) error {
	args := m.Called(ctx, recipients, message)
	return args.Error(0)
}

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Publish(record models.ChatRecord) {
	m.Called(record)
}

type mockJournal struct {
	mock.Mock
}

func (m *mockJournal) SaveReceipt(ctx context.Context, receipt *database.DeliveryReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}
