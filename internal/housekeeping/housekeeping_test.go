package housekeeping

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/reminderd/internal/reminder"
)

type countingPurger struct {
	calls     int32
	olderThan time.Duration
	err       error
}

func (p *countingPurger) Purge(_ context.Context, olderThan time.Duration) (int64, error) {
	atomic.AddInt32(&p.calls, 1)
	p.olderThan = olderThan
	return 2, p.err
}

type countingResync struct {
	calls int32
}

func (r *countingResync) Resync(context.Context) reminder.RecoveryReport {
	atomic.AddInt32(&r.calls, 1)
	return reminder.RecoveryReport{}
}

func TestNewRegistersConfiguredJobs(t *testing.T) {
	jobs, err := New(&countingPurger{}, &countingResync{}, Config{
		PurgeSpec:  "0 0 3 * * *",
		PurgeAfter: 30 * 24 * time.Hour,
		ResyncSpec: "@every 1m",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, jobs.Entries())

	jobs, err = New(&countingPurger{}, &countingResync{}, Config{ResyncSpec: "@every 1m"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, jobs.Entries())
}

func TestNewRejectsBadSpecs(t *testing.T) {
	_, err := New(&countingPurger{}, nil, Config{PurgeSpec: "whenever", PurgeAfter: time.Hour}, nil)
	require.Error(t, err)
	_, err = New(&countingPurger{}, nil, Config{PurgeSpec: "@daily"}, nil)
	require.Error(t, err)
}

func TestJobsRunOnSchedule(t *testing.T) {
	purger := &countingPurger{}
	resync := &countingResync{}
	jobs, err := New(purger, resync, Config{
		PurgeSpec:  "@every 1s",
		PurgeAfter: time.Hour,
		ResyncSpec: "@every 1s",
	}, nil)
	require.NoError(t, err)
	jobs.Start()
	defer jobs.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&purger.calls) > 0 && atomic.LoadInt32(&resync.calls) > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestPurgeOnceSurvivesErrors(t *testing.T) {
	purger := &countingPurger{err: errors.New("locked")}
	jobs, err := New(purger, nil, Config{PurgeSpec: "@daily", PurgeAfter: 48 * time.Hour}, nil)
	require.NoError(t, err)

	require.NotPanics(t, jobs.PurgeOnce)
	require.Equal(t, 48*time.Hour, purger.olderThan)
}
