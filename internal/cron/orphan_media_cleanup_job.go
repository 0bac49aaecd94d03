package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/gallery-backend/internal/orphans"
	"github.com/angelmondragon/gallery-backend/pkg/logger"
)

const defaultOrphanBatchSize = 50

type OrphanMediaCleanupJobParams struct {
	Logger    *logger.Logger
	Store     orphanStore
	Media     mediaDestroyer
	Provider  string
	BatchSize int
}

type orphanStore interface {
	Drain(ctx context.Context, provider string, limit int) ([]orphans.Orphan, int, error)
	Requeue(ctx context.Context, batch ...orphans.Orphan) error
	Pending(ctx context.Context, provider string) (int64, error)
}

type mediaDestroyer interface {
	Destroy(ctx context.Context, publicID string) error
}

func NewOrphanMediaCleanupJob(params OrphanMediaCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("orphan store required")
	}
	if params.Media == nil {
		return nil, fmt.Errorf("media gateway required")
	}
	if params.Provider == "" {
		return nil, fmt.Errorf("media provider name required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultOrphanBatchSize
	}
	return &orphanMediaCleanupJob{
		logg:      params.Logger,
		store:     params.Store,
		media:     params.Media,
		provider:  params.Provider,
		batchSize: batch,
	}, nil
}

type orphanMediaCleanupJob struct {
	logg      *logger.Logger
	store     orphanStore
	media     mediaDestroyer
	provider  string
	batchSize int
}

func (j *orphanMediaCleanupJob) Name() string { return "orphan-media-cleanup" }

// Run deletes one batch of orphaned remote objects recorded for the configured
// provider. Objects whose deletion failed are put back for the next run.
func (j *orphanMediaCleanupJob) Run(ctx context.Context) error {
	batch, skipped, err := j.store.Drain(ctx, j.provider, j.batchSize)
	if err != nil {
		return fmt.Errorf("drain orphans: %w", err)
	}

	var (
		deleted int
		retry   []orphans.Orphan
		errs    error
	)
	for _, o := range batch {
		if err := j.media.Destroy(ctx, o.PublicID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("destroy %s: %w", o.PublicID, err))
			retry = append(retry, o)
			continue
		}
		deleted++
	}

	if len(retry) > 0 {
		if err := j.store.Requeue(context.WithoutCancel(ctx), retry...); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("requeue orphans: %w", err))
		}
	}

	fields := map[string]any{
		"provider":        j.provider,
		"orphans_drained": len(batch),
		"orphans_deleted": deleted,
		"orphans_retry":   len(retry),
		"orphans_skipped": skipped,
	}
	pending, err := j.store.Pending(context.WithoutCancel(ctx), j.provider)
	if err != nil {
		j.logg.Warn(j.logg.WithField(ctx, "error", err.Error()), "failed to count pending orphans")
	} else {
		fields["orphans_pending"] = pending
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "orphan media cleanup complete")
	return errs
}
