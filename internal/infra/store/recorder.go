package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"skillcat/internal/domain"
	"skillcat/internal/infra/telemetry"
)

// Recorder is the write path for usage logs. It fills in ids and
// timestamps before handing the log to the store.
type Recorder struct {
	store   domain.UsageStore
	metrics domain.Metrics
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

func NewRecorder(store domain.UsageStore, metrics domain.Metrics, logger *zap.Logger) *Recorder {
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		store:   store,
		metrics: metrics,
		logger:  logger.Named("usage"),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// Record persists one invocation and returns the log as stored.
func (r *Recorder) Record(ctx context.Context, log domain.UsageLog) (domain.UsageLog, error) {
	log.RecordID = strings.TrimSpace(log.RecordID)
	if log.ID == "" {
		log.ID = r.newID()
	}
	if log.OccurredAt.IsZero() {
		log.OccurredAt = r.now()
	}
	log.OccurredAt = log.OccurredAt.UTC()

	if err := r.store.RecordUsage(ctx, log); err != nil {
		r.logger.Warn("usage log rejected",
			zap.String("recordId", log.RecordID),
			zap.String("logId", log.ID),
			zap.Error(err),
		)
		return domain.UsageLog{}, err
	}
	r.metrics.ObserveUsageRecorded(log.Kind, log.Success)
	return log, nil
}
