// Package notifications delivers in-app notifications. Writes go through an
// optional Redis queue drained by a background worker; the database row is
// the source of truth and connected users get a websocket push.
package notifications

import (
	"context"
	"encoding/json"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/store"
	"schooldesk_go/utils"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const redisListKey = "notifications:queue"

// Notice is the payload shared by every recipient of one notification.
type Notice struct {
	Title    string      `json:"title"`
	Message  string      `json:"message"`
	Type     string      `json:"type"`
	Channels []string    `json:"channels,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// queued is what sits in Redis: one Notice fanned out to many users.
type queued struct {
	UserIDs   []uint    `json:"user_ids"`
	Notice    Notice    `json:"notice"`
	CreatedAt time.Time `json:"created_at"`
}

// WSHub pushes a message to a user's open websocket connections.
type WSHub interface {
	BroadcastToUser(userID uint, message interface{})
}

type Service struct {
	store    store.NotificationStore
	redis    *redis.Client
	useRedis bool
	hub      WSHub
	log      *logrus.Entry
}

// NewService builds the service. rdb may be nil, in which case every notice
// is inserted directly.
func NewService(st store.NotificationStore, rdb *redis.Client, useRedis bool, hub WSHub) *Service {
	return &Service{
		store:    st,
		redis:    rdb,
		useRedis: useRedis && rdb != nil,
		hub:      hub,
		log:      logrus.WithField("component", "notifications"),
	}
}

// normalizeChannels keeps only allowed values and ensures a default channel.
func normalizeChannels(in []string) []string {
	allowed := map[string]struct{}{"normal": {}, "popup": {}}
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, ch := range in {
		if _, ok := allowed[ch]; !ok {
			continue
		}
		if _, dup := seen[ch]; dup {
			continue
		}
		seen[ch] = struct{}{}
		out = append(out, ch)
	}
	if len(out) == 0 {
		out = []string{"normal"}
	}
	return out
}

func normalizeType(t string) string {
	switch t {
	case "info", "warning", "error", "success":
		return t
	}
	return "info"
}

// EnqueueOrCreate stores a notice for every user, through Redis when enabled.
func (s *Service) EnqueueOrCreate(ctx context.Context, userIDs []uint, n Notice) error {
	if len(userIDs) == 0 {
		return errors.New("no user ids")
	}
	n.Channels = normalizeChannels(n.Channels)
	n.Type = normalizeType(n.Type)

	if s.useRedis {
		b, err := json.Marshal(queued{UserIDs: userIDs, Notice: n, CreatedAt: time.Now().UTC()})
		if err != nil {
			return err
		}
		if err = s.redis.RPush(ctx, redisListKey, b).Err(); err == nil {
			return nil
		}
		s.log.WithError(err).Warn("Redis queue failed, falling back to direct insert")
	}
	return s.createDirect(ctx, userIDs, n)
}

// Notify is EnqueueOrCreate for callers that must not fail on a notification.
func (s *Service) Notify(ctx context.Context, userID uint, n Notice) {
	if s == nil || userID == 0 {
		return
	}
	if err := s.EnqueueOrCreate(ctx, []uint{userID}, n); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("Failed to create notification")
	}
}

func (s *Service) createDirect(ctx context.Context, userIDs []uint, n Notice) error {
	channelsJSON, err := json.Marshal(normalizeChannels(n.Channels))
	if err != nil {
		channelsJSON = []byte(`["normal"]`)
	}
	var dataJSON []byte
	if n.Data != nil {
		if b, err := json.Marshal(n.Data); err == nil {
			dataJSON = b
		}
	}
	rows := make([]models.Notification, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, models.Notification{
			UserID:   uid,
			Title:    n.Title,
			Message:  n.Message,
			Type:     normalizeType(n.Type),
			Channels: channelsJSON,
			Data:     dataJSON,
		})
	}
	if err := s.store.CreateNotifications(ctx, rows); err != nil {
		return err
	}

	if s.hub != nil {
		for _, row := range rows {
			s.hub.BroadcastToUser(row.UserID, map[string]interface{}{
				"type": "notification",
				"data": utils.ToNotificationDTO(row),
			})
		}
	}
	return nil
}

// StartWorker drains the Redis queue every two seconds until stop is closed.
func (s *Service) StartWorker(stop <-chan struct{}) {
	if !s.useRedis {
		s.log.Info("Redis notifications disabled; worker not started")
		return
	}
	go func() {
		s.log.Info("Redis notification worker started")
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		ctx := context.Background()
		for {
			select {
			case <-stop:
				s.log.Info("Notification worker stopping")
				return
			case <-ticker.C:
				s.flushBatch(ctx, 200)
			}
		}
	}()
}

func (s *Service) flushBatch(ctx context.Context, batchSize int) {
	if s.redis == nil {
		return
	}
	for i := 0; i < 5; i++ {
		vals, err := s.redis.LRange(ctx, redisListKey, 0, int64(batchSize-1)).Result()
		if err != nil || len(vals) == 0 {
			return
		}
		if err = s.redis.LTrim(ctx, redisListKey, int64(len(vals)), -1).Err(); err != nil {
			s.log.WithError(err).Warn("LTrim failed")
		}
		for _, raw := range vals {
			var q queued
			if err := json.Unmarshal([]byte(raw), &q); err != nil {
				continue
			}
			if err := s.createDirect(ctx, q.UserIDs, q.Notice); err != nil {
				s.log.WithError(err).Error("Queued notification insert failed")
			}
		}
		if len(vals) < batchSize {
			return
		}
	}
}

// List returns the user's newest notifications and their unread count.
func (s *Service) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]utils.NotificationDTO, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.store.ListNotifications(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, 0, apperrors.Internal(err, "failed to list notifications")
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, apperrors.Internal(err, "failed to count notifications")
	}
	out := make([]utils.NotificationDTO, 0, len(rows))
	for _, n := range rows {
		out = append(out, utils.ToNotificationDTO(n))
	}
	return out, unread, nil
}

func (s *Service) MarkRead(ctx context.Context, id, userID uint) error {
	if err := s.store.MarkNotificationRead(ctx, id, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("Notification")
		}
		return apperrors.Internal(err, "failed to mark notification as read")
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID uint) error {
	if err := s.store.MarkAllNotificationsRead(ctx, userID); err != nil {
		return apperrors.Internal(err, "failed to mark notifications as read")
	}
	return nil
}
