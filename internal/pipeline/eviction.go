package pipeline

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/afylking/streamid/internal/segmenter"
)

// EvictionJob periodically clears segmenter flow state that has gone
// idle longer than idleTimeout, bounding memory growth on long-running
// captures that see many short-lived connections.
type EvictionJob struct {
	seg         *segmenter.Segmenter
	idleTimeout time.Duration
	logger      *slog.Logger
	clock       func() time.Time
}

// NewEvictionJob constructs an EvictionJob for seg.
func NewEvictionJob(seg *segmenter.Segmenter, idleTimeout time.Duration, logger *slog.Logger) *EvictionJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvictionJob{seg: seg, idleTimeout: idleTimeout, logger: logger, clock: time.Now}
}

// Run evicts once, logging how many flows were dropped.
func (j *EvictionJob) Run() {
	cutoff := j.clock().Add(-j.idleTimeout)
	n := j.seg.EvictIdle(cutoff)
	if n > 0 {
		j.logger.Debug("evicted idle flows", slog.Int("count", n))
	}
}

// Schedule registers the job on c at the given cron expression
// (e.g. "@every 1m"). It does not start c; callers own starting and
// stopping it.
func Schedule(c *cron.Cron, spec string, job *EvictionJob) error {
	_, err := c.AddFunc(spec, job.Run)
	return err
}
