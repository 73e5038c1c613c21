// Package jobs runs periodic maintenance in the background.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/goodcontent-auth/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const pruneTimeout = time.Minute

// Pruner deletes audit events older than the retention window on a cron
// schedule.
type Pruner struct {
	events    services.EventServiceProvider
	retention time.Duration
	cron      *cron.Cron
	now       func() time.Time
}

// NewPruner creates a new Pruner.
func NewPruner(events services.EventServiceProvider, retention time.Duration) *Pruner {
	logger := cronLogger{}
	return &Pruner{
		events:    events,
		retention: retention,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		now: time.Now,
	}
}

// Start schedules pruning with a standard cron spec and starts the
// scheduler.
func (p *Pruner) Start(spec string) error {
	if _, err := p.cron.AddFunc(spec, p.run); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}
	log.Info().Str("schedule", spec).Dur("retention", p.retention).Msg("Starting event retention job")
	p.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running prune to finish.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
	log.Info().Msg("Stopped event retention job")
}

// RunOnce prunes events older than the retention window.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.retention)
	removed, err := p.events.PruneEvents(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Pruned audit events")
	return removed, nil
}

func (p *Pruner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()
	if _, err := p.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to prune audit events")
	}
}

// cronLogger routes scheduler output through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Str("component", "cron").Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Str("component", "cron").Fields(keysAndValues).Msg(msg)
}
