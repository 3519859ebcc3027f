// Package handlers holds inbound webhooks from third-party providers.
package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"schooldesk_go/models"
	"schooldesk_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/line/line-bot-sdk-go/linebot"
	"github.com/sirupsen/logrus"
)

const linkHelp = "To receive school notices here, send: LINK <student username> <date of birth DD-MM-YYYY>"

// Replier answers a LINE event through its reply token.
type Replier interface {
	ReplyText(ctx context.Context, replyToken, text string) error
}

// BotReplier replies with the LINE Messaging API.
type BotReplier struct {
	bot *linebot.Client
}

func NewBotReplier(secret, token string) (*BotReplier, error) {
	bot, err := linebot.New(secret, token)
	if err != nil {
		return nil, err
	}
	return &BotReplier{bot: bot}, nil
}

func (r *BotReplier) ReplyText(ctx context.Context, replyToken, text string) error {
	_, err := r.bot.ReplyMessage(replyToken, linebot.NewTextMessage(text)).WithContext(ctx).Do()
	return err
}

// GuardianLinker is satisfied by *people.Service.
type GuardianLinker interface {
	LinkGuardianLine(ctx context.Context, username string, dob time.Time, lineUserID string) (*models.Student, error)
	UnlinkGuardianLine(ctx context.Context, lineUserID string) (int, error)
}

// LineWebhookHandler links guardians' LINE accounts to students so early
// leave and fee notices can be pushed over LINE.
type LineWebhookHandler struct {
	secret  string
	linker  GuardianLinker
	replier Replier
	log     *logrus.Entry
}

func NewLineWebhookHandler(secret string, linker GuardianLinker, replier Replier) *LineWebhookHandler {
	return &LineWebhookHandler{
		secret:  secret,
		linker:  linker,
		replier: replier,
		log:     logrus.WithField("component", "line_webhook"),
	}
}

// Handle verifies the signature and processes every event in the body.
func (h *LineWebhookHandler) Handle(c *fiber.Ctx) error {
	signature := c.Get("X-Line-Signature")
	if signature == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if !ValidSignature(h.secret, c.Body(), signature) {
		h.log.Warn("LINE webhook signature mismatch")
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var webhook struct {
		Events []*linebot.Event `json:"events"`
	}
	if err := json.Unmarshal(c.Body(), &webhook); err != nil {
		h.log.WithError(err).Warn("Failed to parse LINE webhook body")
		return c.SendStatus(fiber.StatusBadRequest)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, event := range webhook.Events {
		h.handleEvent(ctx, event)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *LineWebhookHandler) handleEvent(ctx context.Context, event *linebot.Event) {
	if event == nil || event.Source == nil || event.Source.UserID == "" {
		return
	}
	lineUser := event.Source.UserID
	switch event.Type {
	case linebot.EventTypeFollow:
		h.reply(ctx, event.ReplyToken, linkHelp)
	case linebot.EventTypeUnfollow:
		if _, err := h.linker.UnlinkGuardianLine(ctx, lineUser); err != nil {
			h.log.WithError(err).WithField("line_user", lineUser).Error("Failed to unlink guardian")
		}
	case linebot.EventTypeMessage:
		msg, ok := event.Message.(*linebot.TextMessage)
		if !ok {
			return
		}
		h.reply(ctx, event.ReplyToken, h.link(ctx, lineUser, msg.Text))
	}
}

// link parses "LINK <username> <dob>" and returns the reply text.
func (h *LineWebhookHandler) link(ctx context.Context, lineUser, text string) string {
	fields := strings.Fields(text)
	if len(fields) != 3 || !strings.EqualFold(fields[0], "link") {
		return linkHelp
	}
	dob, err := utils.ParseDate(fields[2])
	if err != nil {
		if dob, err = time.Parse("02-01-2006", fields[2]); err != nil {
			return "Date of birth must look like 07-03-2012."
		}
	}
	st, err := h.linker.LinkGuardianLine(ctx, fields[1], dob, lineUser)
	if err != nil {
		h.log.WithError(err).WithField("line_user", lineUser).Info("Guardian link refused")
		return "We could not match those details. " + linkHelp
	}
	return "Linked to " + st.Name + " (class " + st.Class + "-" + st.Section + "). You will receive school notices here."
}

func (h *LineWebhookHandler) reply(ctx context.Context, token, text string) {
	if h.replier == nil || token == "" {
		return
	}
	if err := h.replier.ReplyText(ctx, token, text); err != nil {
		h.log.WithError(err).Warn("LINE reply failed")
	}
}

// ValidSignature checks the base64 HMAC-SHA256 of body under the channel secret.
func ValidSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
