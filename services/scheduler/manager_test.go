package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFees struct{ calls int }

func (f *fakeFees) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	f.calls++
	return 2, nil
}

type fakeFlusher struct{ err error }

func (f *fakeFlusher) Flush(ctx context.Context) (int, error) { return 0, f.err }

type fakeArchiver struct{ days int }

func (f *fakeArchiver) ArchiveDays(ctx context.Context, days int) error {
	f.days = days
	return nil
}

func TestRegisterRejectsBadJobs(t *testing.T) {
	m := NewScheduleManager(time.UTC)
	noop := func(ctx context.Context) error { return nil }

	assert.Error(t, m.Register(Job{Spec: "@daily", Run: noop}))
	assert.Error(t, m.Register(Job{Name: "broken", Spec: "not a spec", Run: noop}))
	require.NoError(t, m.Register(Job{Name: "ok", Spec: "@daily", Run: noop}))
	assert.Error(t, m.Register(Job{Name: "ok", Spec: "@hourly", Run: noop}))
}

func TestMaintenanceJobsRunOnDemand(t *testing.T) {
	fees := &fakeFees{}
	archiver := &fakeArchiver{}
	m := NewScheduleManager(time.UTC)
	jobs := MaintenanceJobs(fees, &fakeFlusher{err: errors.New("redis down")}, archiver, 45)
	require.Len(t, jobs, 3)
	for _, j := range jobs {
		require.NoError(t, m.Register(j))
	}

	require.NoError(t, m.RunNow("mark_overdue_fees"))
	assert.Equal(t, 1, fees.calls)
	require.NoError(t, m.RunNow("archive_activity_logs"))
	assert.Equal(t, 45, archiver.days)
	// a failing job is logged, not surfaced
	require.NoError(t, m.RunNow("flush_activity_logs"))
	assert.Error(t, m.RunNow("missing"))

	m.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Stop(ctx)
}

func TestMaintenanceJobsWithoutArchiver(t *testing.T) {
	jobs := MaintenanceJobs(&fakeFees{}, &fakeFlusher{}, nil, 30)
	assert.Len(t, jobs, 2)
}
