package tasks

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"vigil-irs/config"
	"vigil-irs/core/store"
	"vigil-irs/core/utils"
)

// RetentionJob periodically drops expired sessions and audit entries older
// than the configured retention window.
type RetentionJob struct {
	cfg      config.RetentionConfig
	sessions store.SessionStore
	audits   store.AuditStore
	logger   *utils.Logger
	cron     *cron.Cron
}

func NewRetentionJob(cfg config.RetentionConfig, sessions store.SessionStore, audits store.AuditStore, logger *utils.Logger) *RetentionJob {
	return &RetentionJob{cfg: cfg, sessions: sessions, audits: audits, logger: logger}
}

func (j *RetentionJob) Start() error {
	if j == nil || !j.cfg.Enabled {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(j.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		j.RunOnce(ctx, time.Now().UTC())
	}); err != nil {
		return err
	}
	c.Start()
	j.cron = c
	return nil
}

func (j *RetentionJob) Stop() {
	if j == nil || j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}

func (j *RetentionJob) RunOnce(ctx context.Context, now time.Time) {
	if n, err := j.sessions.PurgeExpired(ctx, now); err != nil {
		j.logger.Errorf("retention: purge sessions: %v", err)
	} else if n > 0 {
		j.logger.Printf("retention: purged %d expired sessions", n)
	}
	keepDays := j.cfg.AuditKeepDays
	if keepDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -keepDays)
	if n, err := j.audits.PurgeOlderThan(ctx, cutoff); err != nil {
		j.logger.Errorf("retention: purge audit log: %v", err)
	} else if n > 0 {
		j.logger.Printf("retention: purged %d audit entries", n)
	}
}
