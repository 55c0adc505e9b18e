package audit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Event is one security-relevant occurrence. Failure events carry the true
// cause here even when the API answer was collapsed to a generic refusal.
type Event struct {
	Action    string // e.g. "signin", "brand.create", "credential.reset"
	Outcome   string // "ok" or "denied"
	Subject   string // principal/brand-user id, or the presented selector
	BrandID   string
	Detail    string // true cause on denial; never returned to callers
	RequestIP string
}

const (
	OutcomeOK     = "ok"
	OutcomeDenied = "denied"
)

// Recorder writes audit events to the log and, when Redis is configured,
// to a capped stream for external consumers. A nil Recorder is usable and
// drops everything, which keeps test wiring short.
type Recorder struct {
	logger *zap.Logger
	rdb    *redis.Client
	stream string
}

func NewRecorder(logger *zap.Logger, rdb *redis.Client, stream string) *Recorder {
	return &Recorder{logger: logger, rdb: rdb, stream: stream}
}

// Record never fails the calling operation: stream errors are logged and
// swallowed.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	if r == nil {
		return
	}

	fields := []zap.Field{
		zap.String("action", ev.Action),
		zap.String("outcome", ev.Outcome),
		zap.String("subject", ev.Subject),
	}
	if ev.BrandID != "" {
		fields = append(fields, zap.String("brand_id", ev.BrandID))
	}
	if ev.Detail != "" {
		fields = append(fields, zap.String("detail", ev.Detail))
	}
	if ev.Outcome == OutcomeDenied {
		r.logger.Warn("audit", fields...)
	} else {
		r.logger.Info("audit", fields...)
	}

	if r.rdb == nil || r.stream == "" {
		return
	}
	err := r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: 100000,
		Approx: true,
		Values: map[string]interface{}{
			"ts":      time.Now().UTC().Format(time.RFC3339),
			"action":  ev.Action,
			"outcome": ev.Outcome,
			"subject": ev.Subject,
			"brand":   ev.BrandID,
			"detail":  ev.Detail,
			"ip":      ev.RequestIP,
		},
	}).Err()
	if err != nil {
		r.logger.Warn("Failed to append audit stream", zap.Error(err))
	}
}
