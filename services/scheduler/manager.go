// Package scheduler runs the recurring maintenance jobs: overdue fee sweeps,
// activity log flushes and log archiving.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one named unit of recurring work. Spec is a standard five-field
// cron expression or a descriptor such as "@every 5m".
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// ScheduleManager owns the cron runner and the registered jobs.
type ScheduleManager struct {
	cron *cron.Cron
	mu   sync.Mutex
	jobs map[string]Job
	log  *logrus.Entry
}

func NewScheduleManager(loc *time.Location) *ScheduleManager {
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleManager{
		cron: cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		jobs: map[string]Job{},
		log:  logrus.WithField("component", "scheduler"),
	}
}

// Register adds a job. Names must be unique.
func (m *ScheduleManager) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run function")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.jobs[job.Name]; dup {
		return errors.Errorf("job %q already registered", job.Name)
	}
	if _, err := m.cron.AddFunc(job.Spec, func() { m.execute(job) }); err != nil {
		return errors.Wrapf(err, "schedule %q", job.Name)
	}
	m.jobs[job.Name] = job
	return nil
}

func (m *ScheduleManager) execute(job Job) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	entry := m.log.WithField("job", job.Name)
	if err := job.Run(ctx); err != nil {
		entry.WithError(err).Error("Scheduled job failed")
		return
	}
	entry.WithField("duration", time.Since(start).String()).Info("Scheduled job finished")
}

// RunNow executes a registered job synchronously, outside its schedule.
func (m *ScheduleManager) RunNow(name string) error {
	m.mu.Lock()
	job, ok := m.jobs[name]
	m.mu.Unlock()
	if !ok {
		return errors.Errorf("unknown job %q", name)
	}
	m.execute(job)
	return nil
}

func (m *ScheduleManager) Start() {
	m.cron.Start()
	m.log.WithField("jobs", len(m.jobs)).Info("Schedule manager started")
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (m *ScheduleManager) Stop(ctx context.Context) {
	done := m.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		m.log.Warn("Scheduler stop timed out with jobs still running")
	}
}
