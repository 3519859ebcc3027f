// Package activity records the audit trail of user actions and moves old
// entries into zip archives on S3.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/store"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	queueKey  = "logs:queue"
	keyPrefix = "log:"
	cacheTTL  = 48 * time.Hour
)

// Entry is one user action as seen by the HTTP layer.
type Entry struct {
	UserID     uint
	Action     string
	Resource   string
	ResourceID uint
	Details    interface{}
	IPAddress  string
	UserAgent  string
	At         time.Time
}

// Recorder writes entries through Redis when available so request handling
// never waits on the database; Flush moves cached entries into the store.
type Recorder struct {
	repo  store.ActivityStore
	redis *redis.Client
	log   *logrus.Entry
}

func NewRecorder(repo store.ActivityStore, rdb *redis.Client) *Recorder {
	return &Recorder{repo: repo, redis: rdb, log: logrus.WithField("component", "activity")}
}

func toModel(e Entry) models.ActivityLog {
	var details models.JSON
	if e.Details != nil {
		if b, err := json.Marshal(e.Details); err == nil {
			details = b
		}
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	l := models.ActivityLog{
		UserID:     e.UserID,
		Action:     e.Action,
		Resource:   e.Resource,
		ResourceID: e.ResourceID,
		Details:    details,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
	}
	l.CreatedAt = at
	return l
}

// Record stores e. Failures are logged, never returned.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil {
		return
	}
	row := toModel(e)
	if r.redis != nil {
		err := r.cache(ctx, row)
		if err == nil {
			return
		}
		r.log.WithError(err).Warn("Failed to cache activity log, writing directly")
	}
	if err := r.repo.CreateActivityLogs(ctx, []models.ActivityLog{row}); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"action":   e.Action,
			"resource": e.Resource,
		}).Error("Failed to save activity log")
	}
}

func (r *Recorder) cache(ctx context.Context, row models.ActivityLog) error {
	b, err := json.Marshal(row)
	if err != nil {
		return err
	}
	key := keyPrefix + uuid.NewString()
	pipe := r.redis.TxPipeline()
	pipe.Set(ctx, key, b, cacheTTL)
	pipe.ZAdd(ctx, queueKey, &redis.Z{Score: float64(row.CreatedAt.Unix()), Member: key})
	_, err = pipe.Exec(ctx)
	return err
}

// Flush moves every cached entry into the store and returns how many were saved.
func (r *Recorder) Flush(ctx context.Context) (int, error) {
	if r.redis == nil {
		return 0, nil
	}
	keys, err := r.redis.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{Min: "-inf", Max: "+inf"}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read log queue: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	rows := make([]models.ActivityLog, 0, len(keys))
	done := make([]string, 0, len(keys))
	for _, key := range keys {
		raw, err := r.redis.Get(ctx, key).Result()
		if err == redis.Nil {
			// expired before it was flushed
			done = append(done, key)
			continue
		}
		if err != nil {
			r.log.WithError(err).WithField("key", key).Warn("Failed to read cached log")
			continue
		}
		var row models.ActivityLog
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			r.log.WithError(err).WithField("key", key).Warn("Dropping malformed cached log")
			done = append(done, key)
			continue
		}
		row.ID = 0
		rows = append(rows, row)
		done = append(done, key)
	}

	if err := r.repo.CreateActivityLogs(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to save cached logs: %w", err)
	}

	pipe := r.redis.Pipeline()
	for _, key := range done {
		pipe.Del(ctx, key)
		pipe.ZRem(ctx, queueKey, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.WithError(err).Warn("Failed to clear flushed logs from cache")
	}
	r.log.WithField("count", len(rows)).Info("Flushed cached activity logs")
	return len(rows), nil
}

// Page is one page of audit entries.
type Page struct {
	Logs  []models.ActivityLog `json:"logs"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// List returns page (1-based) of entries matching q.
func (r *Recorder) List(ctx context.Context, q store.ActivityQuery, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q.Limit = limit
	q.Offset = (page - 1) * limit
	logs, total, err := r.repo.ListActivityLogs(ctx, q)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list activity logs")
	}
	return &Page{Logs: logs, Total: total, Page: page, Limit: limit}, nil
}

// DeleteOlderThan drops entries older than days without archiving them.
func (r *Recorder) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	if days < MinArchiveDays {
		return 0, apperrors.Validation("days must be at least %d", MinArchiveDays)
	}
	n, err := r.repo.DeleteActivityLogsBefore(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		return 0, apperrors.Internal(err, "failed to delete activity logs")
	}
	r.log.WithField("deleted", n).Info("Old activity logs deleted")
	return n, nil
}

// Stats summarizes the audit trail over the last 30 days.
type Stats struct {
	Total             int64            `json:"total"`
	TotalToday        int64            `json:"total_today"`
	TotalThisWeek     int64            `json:"total_this_week"`
	TotalThisMonth    int64            `json:"total_this_month"`
	ActionBreakdown   map[string]int64 `json:"action_breakdown"`
	ResourceBreakdown map[string]int64 `json:"resource_breakdown"`
	TopUsers          map[uint]int64   `json:"top_users"`
}

func (r *Recorder) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	_, total, err := r.repo.ListActivityLogs(ctx, store.ActivityQuery{Limit: 1})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to count activity logs")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	week := today.AddDate(0, 0, -6)
	month := today.AddDate(0, 0, -29)
	logs, _, err := r.repo.ListActivityLogs(ctx, store.ActivityQuery{From: &month})
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list activity logs")
	}

	s := &Stats{
		Total:             total,
		TotalThisMonth:    int64(len(logs)),
		ActionBreakdown:   map[string]int64{},
		ResourceBreakdown: map[string]int64{},
		TopUsers:          map[uint]int64{},
	}
	for _, l := range logs {
		if !l.CreatedAt.Before(today) {
			s.TotalToday++
		}
		if !l.CreatedAt.Before(week) {
			s.TotalThisWeek++
		}
		s.ActionBreakdown[l.Action]++
		s.ResourceBreakdown[l.Resource]++
		if l.UserID != 0 {
			s.TopUsers[l.UserID]++
		}
	}
	return s, nil
}
