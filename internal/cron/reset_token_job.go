package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/ims-backend/pkg/logger"
)

const defaultResetTokenRetention = 7 * 24 * time.Hour

type resetTokenPurger interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ResetTokenCleanupParams struct {
	Logger    *logger.Logger
	Tokens    resetTokenPurger
	Retention time.Duration
}

// NewResetTokenCleanupJob removes password reset tokens that expired more
// than Retention ago.
func NewResetTokenCleanupJob(params ResetTokenCleanupParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("reset token repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultResetTokenRetention
	}
	return &resetTokenCleanupJob{
		logg:      params.Logger,
		tokens:    params.Tokens,
		retention: retention,
		now:       time.Now,
	}, nil
}

type resetTokenCleanupJob struct {
	logg      *logger.Logger
	tokens    resetTokenPurger
	retention time.Duration
	now       func() time.Time
}

func (j *resetTokenCleanupJob) Name() string { return "reset-token-cleanup" }

func (j *resetTokenCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.tokens.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge reset tokens: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "maintenance.reset_tokens_purged")
	return nil
}
