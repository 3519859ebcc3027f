package scheduler

import (
	"context"
	"time"
)

type OverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
}

type LogFlusher interface {
	Flush(ctx context.Context) (int, error)
}

type LogArchiver interface {
	ArchiveDays(ctx context.Context, days int) error
}

// MaintenanceJobs returns the standard job set. archiver may be nil.
func MaintenanceJobs(fees OverdueMarker, logs LogFlusher, archiver LogArchiver, archiveDays int) []Job {
	jobs := []Job{
		{
			Name: "mark_overdue_fees",
			Spec: "15 0 * * *",
			Run: func(ctx context.Context) error {
				_, err := fees.MarkOverdue(ctx, time.Now())
				return err
			},
		},
		{
			Name:    "flush_activity_logs",
			Spec:    "@every 5m",
			Timeout: 2 * time.Minute,
			Run: func(ctx context.Context) error {
				_, err := logs.Flush(ctx)
				return err
			},
		},
	}
	if archiver != nil {
		jobs = append(jobs, Job{
			Name:    "archive_activity_logs",
			Spec:    "30 2 * * *",
			Timeout: 30 * time.Minute,
			Run: func(ctx context.Context) error {
				return archiver.ArchiveDays(ctx, archiveDays)
			},
		})
	}
	return jobs
}
