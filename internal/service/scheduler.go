package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"courierbridge/internal/constants"
)

// ReceiptCleaner prunes journal rows older than the retention period.
type ReceiptCleaner interface {
	CleanupOldReceipts(ctx context.Context, retentionDays int) (int64, error)
}

// Scheduler periodically prunes the delivery journal. The correlation
// caches evict themselves; only the journal grows without it.
type Scheduler struct {
	journal       ReceiptCleaner
	retentionDays int
	intervalHours int
	logger        *logrus.Logger
	stopCh        chan struct{}
}

func NewScheduler(journal ReceiptCleaner, retentionDays, intervalHours int, logger *logrus.Logger) *Scheduler {
	if intervalHours <= 0 {
		intervalHours = constants.CleanupIntervalHours
	}
	if retentionDays <= 0 {
		retentionDays = constants.DefaultRetentionDays
	}
	return &Scheduler{
		journal:       journal,
		retentionDays: retentionDays,
		intervalHours: intervalHours,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.intervalHours) * time.Hour)
	defer ticker.Stop()

	s.logger.Info("Starting journal cleanup scheduler")

	s.runCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled, stopping")
			return
		case <-s.stopCh:
			s.logger.Info("Scheduler stop signal received, stopping")
			return
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	s.logger.WithField("retention_days", s.retentionDays).Info("Running scheduled journal cleanup")

	removed, err := s.journal.CleanupOldReceipts(ctx, s.retentionDays)
	if err != nil {
		s.logger.WithError(err).Error("Failed to clean up old delivery receipts")
		return
	}
	s.logger.WithField(LogFieldCount, removed).Info("Journal cleanup completed")
}
