package activity

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/store"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObjects struct {
	objects map[string][]byte
	fail    bool
}

func (m *memObjects) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if m.fail {
		return errors.New("bucket unavailable")
	}
	m.objects[key] = append([]byte(nil), body...)
	return nil
}

func (m *memObjects) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func seedLogs(t *testing.T, mem *store.Memory, now time.Time) uint {
	ctx := context.Background()
	user := &models.User{Username: "root", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, mem.CreateUser(ctx, user))
	rec := NewRecorder(mem, nil)
	rec.Record(ctx, Entry{UserID: user.ID, Action: "CREATE", Resource: "fees", ResourceID: 4, Details: map[string]string{"amount": "1500"}, At: now.AddDate(0, 0, -40)})
	rec.Record(ctx, Entry{UserID: user.ID, Action: "DELETE", Resource: "students", At: now.AddDate(0, 0, -35)})
	rec.Record(ctx, Entry{UserID: user.ID, Action: "UPDATE", Resource: "students", At: now.AddDate(0, 0, -1)})
	return user.ID
}

func TestRecorderListsWithFilters(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	userID := seedLogs(t, mem, time.Now())
	rec := NewRecorder(mem, nil)

	page, err := rec.List(ctx, store.ActivityQuery{Resource: "students"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Logs, 2)
	assert.Equal(t, "DELETE", page.Logs[0].Action)

	page, err = rec.List(ctx, store.ActivityQuery{UserID: userID}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Logs, 1)
	assert.Equal(t, "UPDATE", page.Logs[0].Action)

	n, err := rec.Flush(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteOlderThanRequiresMinimumAge(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedLogs(t, mem, time.Now())
	rec := NewRecorder(mem, nil)

	_, err := rec.DeleteOlderThan(ctx, 3)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))

	n, err := rec.DeleteOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestArchiveUploadsAndPurges(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	now := time.Now()
	seedLogs(t, mem, now)
	objects := &memObjects{objects: map[string][]byte{}}
	arch := NewArchiver(mem, objects)
	arch.now = func() time.Time { return now }

	rec, err := arch.Archive(ctx, 30)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "completed", rec.Status)
	assert.Equal(t, 2, rec.RecordCount)
	require.Contains(t, objects.objects, rec.S3Key)

	zr, err := zip.NewReader(bytes.NewReader(objects.objects[rec.S3Key]), int64(len(objects.objects[rec.S3Key])))
	require.NoError(t, err)
	names := []string{}
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"activity_logs.json", "activity_logs.csv", "metadata.json"}, names)

	_, total, err := mem.ListActivityLogs(ctx, store.ActivityQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	body, name, err := arch.Download(ctx, rec.ID)
	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, rec.FileName, name)

	again, err := arch.Archive(ctx, 30)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestArchiveUploadFailureKeepsLogs(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedLogs(t, mem, time.Now())
	arch := NewArchiver(mem, &memObjects{objects: map[string][]byte{}, fail: true})

	_, err := arch.Archive(ctx, 30)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))

	_, total, err := mem.ListActivityLogs(ctx, store.ActivityQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	archives, err := arch.List(ctx)
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, "failed", archives[0].Status)

	_, _, err = arch.Download(ctx, archives[0].ID)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
}

func TestArchiveWithoutStorage(t *testing.T) {
	_, err := NewArchiver(store.NewMemory(), nil).Archive(context.Background(), 30)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
}
