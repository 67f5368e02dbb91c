// Package housekeeping runs the daemon's periodic jobs: emptying the
// recycle bin and re-syncing timers with the store.
package housekeeping

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sandeepkv93/reminderd/internal/logging"
	"github.com/sandeepkv93/reminderd/internal/reminder"
)

type Purger interface {
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Resyncer interface {
	Resync(ctx context.Context) reminder.RecoveryReport
}

type Config struct {
	// PurgeSpec and ResyncSpec use cron syntax with a seconds field, or
	// descriptors such as "@every 1m". Empty disables the job.
	PurgeSpec  string
	PurgeAfter time.Duration
	ResyncSpec string
	Location   *time.Location
}

type Jobs struct {
	cron   *cron.Cron
	purger Purger
	resync Resyncer
	cfg    Config
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(purger Purger, resync Resyncer, cfg Config, logger *slog.Logger) (*Jobs, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	j := &Jobs{
		cron:   cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		purger: purger,
		resync: resync,
		cfg:    cfg,
		logger: logging.OrDiscard(logger),
		ctx:    ctx,
		cancel: cancel,
	}
	if cfg.PurgeSpec != "" && purger != nil {
		if cfg.PurgeAfter <= 0 {
			cancel()
			return nil, fmt.Errorf("housekeeping: purge-after must be positive")
		}
		if _, err := j.cron.AddFunc(cfg.PurgeSpec, j.PurgeOnce); err != nil {
			cancel()
			return nil, fmt.Errorf("housekeeping: purge spec %q: %w", cfg.PurgeSpec, err)
		}
	}
	if cfg.ResyncSpec != "" && resync != nil {
		if _, err := j.cron.AddFunc(cfg.ResyncSpec, j.ResyncOnce); err != nil {
			cancel()
			return nil, fmt.Errorf("housekeeping: resync spec %q: %w", cfg.ResyncSpec, err)
		}
	}
	return j, nil
}

func (j *Jobs) Start() {
	j.cron.Start()
}

// Stop waits for running jobs to finish.
func (j *Jobs) Stop() {
	j.cancel()
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Jobs) Entries() int {
	return len(j.cron.Entries())
}

func (j *Jobs) PurgeOnce() {
	n, err := j.purger.Purge(j.ctx, j.cfg.PurgeAfter)
	if err != nil {
		j.logger.Error("recycle bin purge failed", "err", err)
		return
	}
	j.logger.Debug("recycle bin purge ran", "removed", n)
}

// ResyncOnce arms every reminder the store holds as undelivered.
func (j *Jobs) ResyncOnce() {
	if j.resync == nil {
		return
	}
	report := j.resync.Resync(j.ctx)
	if report.Err != nil {
		j.logger.Error("timer resync failed", "err", report.Err)
	}
}
