package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"schooldesk_go/services/people"
	"schooldesk_go/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "line-secret"

type recordedReplies struct {
	mu    sync.Mutex
	texts map[string]string
}

func (r *recordedReplies) ReplyText(ctx context.Context, token, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts[token] = text
	return nil
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func setup(t *testing.T) (*fiber.App, *store.Memory, *recordedReplies, uint) {
	t.Helper()
	mem := store.NewMemory()
	svc := people.NewService(mem, "91")
	dob := time.Date(2012, time.March, 7, 0, 0, 0, 0, time.UTC)
	st, _, err := svc.CreateStudent(context.Background(), people.StudentInput{
		Name: "Asha Rao", Class: "5", Section: "A", DOB: &dob, GuardianPhone: "9876543210",
	})
	require.NoError(t, err)

	replies := &recordedReplies{texts: map[string]string{}}
	h := NewLineWebhookHandler(secret, svc, replies)
	app := fiber.New()
	app.Post("/line/webhook", h.Handle)
	return app, mem, replies, st.ID
}

func post(t *testing.T, app *fiber.App, body []byte, signature string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/line/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Line-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func textEvent(token, text string) string {
	return `{"type":"message","replyToken":"` + token + `","timestamp":1700000000000,` +
		`"source":{"type":"user","userId":"U123"},` +
		`"message":{"id":"1","type":"text","text":"` + text + `"}}`
}

func TestRejectsBadSignature(t *testing.T) {
	app, _, _, _ := setup(t)
	body := []byte(`{"events":[]}`)
	assert.Equal(t, fiber.StatusBadRequest, post(t, app, body, ""))
	assert.Equal(t, fiber.StatusUnauthorized, post(t, app, body, "bogus"))
	assert.Equal(t, fiber.StatusOK, post(t, app, body, sign(body)))
}

func TestLinkAndUnlinkGuardian(t *testing.T) {
	app, mem, replies, studentID := setup(t)
	ctx := context.Background()

	body := []byte(`{"events":[` +
		textEvent("r1", "hello") + `,` +
		textEvent("r2", "LINK asha_rao_5_A 01-01-2012") + `,` +
		textEvent("r3", "link asha_rao_5_A 07-03-2012") + `]}`)
	require.Equal(t, fiber.StatusOK, post(t, app, body, sign(body)))

	assert.Equal(t, linkHelp, replies.texts["r1"])
	assert.Contains(t, replies.texts["r2"], "could not match")
	assert.Contains(t, replies.texts["r3"], "Linked to Asha Rao")

	st, err := mem.GetStudent(ctx, studentID)
	require.NoError(t, err)
	assert.Equal(t, "U123", st.GuardianLineID)

	body = []byte(`{"events":[{"type":"unfollow","timestamp":1700000000000,"source":{"type":"user","userId":"U123"}}]}`)
	require.Equal(t, fiber.StatusOK, post(t, app, body, sign(body)))
	st, err = mem.GetStudent(ctx, studentID)
	require.NoError(t, err)
	assert.Empty(t, st.GuardianLineID)
}
