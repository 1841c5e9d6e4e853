package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const purgeTimeout = 30 * time.Second

// Purger removes expired entries and reports how many were deleted.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron   *cron.Cron
	purger Purger
}

// NewScheduler creates a scheduler that purges expired revoked tokens on the
// given cron spec (standard five-field syntax or descriptors such as "@every 10m").
func NewScheduler(spec string, purger Purger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		purger: purger,
	}
	if _, err := s.cron.AddFunc(spec, s.PurgeRevokedTokens); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	log.Info().Msg("Starting background scheduler...")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped background scheduler.")
}

// PurgeRevokedTokens deletes expired revocation entries. Failures are logged
// and retried on the next tick.
func (s *Scheduler) PurgeRevokedTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to purge revoked tokens")
		return
	}
	if n > 0 {
		log.Info().Int64("purged", n).Msg("Scheduler: purged expired revoked tokens")
	}
}
