package notifications

import (
	"context"
	"sync"
	"testing"

	"schooldesk_go/apperrors"
	"schooldesk_go/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHub struct {
	mu    sync.Mutex
	users []uint
}

func (h *fakeHub) BroadcastToUser(userID uint, message interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users = append(h.users, userID)
}

func TestNormalizeChannels(t *testing.T) {
	assert.Equal(t, []string{"normal"}, normalizeChannels(nil))
	assert.Equal(t, []string{"normal"}, normalizeChannels([]string{"sms"}))
	assert.Equal(t, []string{"popup", "normal"}, normalizeChannels([]string{"popup", "normal", "popup"}))
}

func TestEnqueueOrCreateWithoutRedisInsertsAndPushes(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	hub := &fakeHub{}
	svc := NewService(mem, nil, true, hub)

	err := svc.EnqueueOrCreate(ctx, []uint{3, 4}, Notice{Title: "Leave approved", Message: "ok", Type: "bogus"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{3, 4}, hub.users)

	list, unread, err := svc.List(ctx, 3, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), unread)
	assert.Equal(t, "info", list[0].Type)
	assert.Equal(t, []string{"normal"}, list[0].Channels)

	require.NoError(t, svc.MarkRead(ctx, list[0].ID, 3))
	_, unread, err = svc.List(ctx, 3, false, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	err = svc.MarkRead(ctx, list[0].ID, 4)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	require.NoError(t, svc.MarkAllRead(ctx, 4))
	_, unread, err = svc.List(ctx, 4, false, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestEnqueueOrCreateRequiresRecipients(t *testing.T) {
	svc := NewService(store.NewMemory(), nil, false, nil)
	assert.Error(t, svc.EnqueueOrCreate(context.Background(), nil, Notice{Title: "x"}))
}
