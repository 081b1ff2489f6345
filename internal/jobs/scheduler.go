package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Daquiver1/veefyed/internal/config"
	"github.com/Daquiver1/veefyed/internal/service"
)

// ImageIndex answers whether a metadata row references a blob key.
type ImageIndex interface {
	ExistsByObjectKey(ctx context.Context, objectKey string) (bool, error)
}

// BlobSweeper is the slice of the blob store the sweep needs.
type BlobSweeper interface {
	Exists(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
}

// Scheduler periodically reconciles the blob/metadata partial-failure
// window: any pending marker older than the grace period whose blob has no
// matching image row points at an orphan, which is removed.
type Scheduler struct {
	cron    *cron.Cron
	markers *redis.Client
	images  ImageIndex
	blobs   BlobSweeper
	cfg     config.ReconcileConfig
	log     zerolog.Logger
}

func NewScheduler(markers *redis.Client, images ImageIndex, blobs BlobSweeper, cfg config.ReconcileConfig, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:    c,
		markers: markers,
		images:  images,
		blobs:   blobs,
		cfg:     cfg,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if s.markers == nil {
		return nil
	}

	if _, err := s.cron.AddFunc("0 */10 * * * *", s.sweepOrphans); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running sweep to finish, up to a short deadline.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) sweepOrphans() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.Sweep(ctx); err != nil {
		s.log.Error().Err(err).Msg("orphan sweep failed")
	}
}

// Sweep walks all pending markers once. Exported so an operator can trigger
// a pass outside the schedule.
func (s *Scheduler) Sweep(ctx context.Context) error {
	iter := s.markers.Scan(ctx, 0, service.PendingMarkerPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		markerKey := iter.Val()
		objectKey := markerKey[len(service.PendingMarkerPrefix):]

		stamp, err := s.markers.Get(ctx, markerKey).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return err
		}

		createdAt, err := time.Parse(time.RFC3339, stamp)
		if err != nil {
			s.log.Warn().Str("marker", markerKey).Msg("unparseable pending marker, dropping")
			s.markers.Del(ctx, markerKey)
			continue
		}

		// Recent markers may belong to uploads still in flight.
		if time.Since(createdAt) < s.cfg.GracePeriod {
			continue
		}

		if err := s.reconcile(ctx, markerKey, objectKey); err != nil {
			s.log.Error().Err(err).Str("object_key", objectKey).Msg("reconcile failed")
		}
	}
	return iter.Err()
}

func (s *Scheduler) reconcile(ctx context.Context, markerKey, objectKey string) error {
	referenced, err := s.images.ExistsByObjectKey(ctx, objectKey)
	if err != nil {
		return err
	}

	if !referenced {
		exists, err := s.blobs.Exists(ctx, objectKey)
		if err != nil {
			return err
		}
		if exists {
			if err := s.blobs.Remove(ctx, objectKey); err != nil {
				return err
			}
			s.log.Warn().Str("object_key", objectKey).Msg("orphaned blob removed")
		}
	}

	return s.markers.Del(ctx, markerKey).Err()
}
