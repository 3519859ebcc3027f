package messaging

import (
	"context"
	"strings"
	"time"

	"schooldesk_go/config"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/linebot"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSender sends SMS, or WhatsApp when whatsapp is true, through the Twilio REST API.
type TwilioSender struct {
	client   *twilio.RestClient
	from     string
	whatsapp bool
}

// NewTwilioSender bounds every API call by timeout. CreateMessage takes no
// context, so the HTTP client timeout is what limits a slow provider.
func NewTwilioSender(accountSID, authToken, from string, whatsapp bool, timeout time.Duration) *TwilioSender {
	base := &twclient.Client{Credentials: twclient.NewCredentials(accountSID, authToken)}
	base.SetAccountSid(accountSID)
	if timeout > 0 {
		base.SetTimeout(timeout)
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{Client: base})
	return &TwilioSender{client: client, from: from, whatsapp: whatsapp}
}

func whatsappAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

func (s *TwilioSender) Deliver(ctx context.Context, to, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, "twilio send skipped")
	}
	from := s.from
	if s.whatsapp {
		to = whatsappAddress(to)
		from = whatsappAddress(from)
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(message)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return "", errors.Wrap(err, "twilio create message")
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}

// LineSender pushes a text message to a LINE user id.
type LineSender struct {
	bot *linebot.Client
}

func NewLineSender(channelSecret, channelToken string) (*LineSender, error) {
	bot, err := linebot.New(channelSecret, channelToken)
	if err != nil {
		return nil, errors.Wrap(err, "create LINE bot client")
	}
	return &LineSender{bot: bot}, nil
}

func (s *LineSender) Deliver(ctx context.Context, to, message string) (string, error) {
	if _, err := s.bot.PushMessage(to, linebot.NewTextMessage(message)).WithContext(ctx).Do(); err != nil {
		return "", errors.Wrap(err, "LINE push message")
	}
	return uuid.NewString(), nil
}

// DryRunSender logs the message instead of sending it. Used when the provider
// is not configured; deliveries count as successful.
type DryRunSender struct {
	Channel Channel
}

func (s DryRunSender) Deliver(ctx context.Context, to, message string) (string, error) {
	ref := "dryrun-" + uuid.NewString()
	logrus.WithFields(logrus.Fields{
		"channel":   s.Channel,
		"to":        to,
		"reference": ref,
	}).Infof("Provider not configured, message logged: %s", message)
	return ref, nil
}

// NewGatewayFromConfig wires Twilio for SMS/WhatsApp (or dry-run senders when
// credentials are missing) and LINE when a channel token is present.
func NewGatewayFromConfig(cfg *config.Config) *Gateway {
	g := NewGateway(cfg.PhoneCountryCode)
	if cfg.TwilioConfigured() {
		g.Register(ChannelSMS, NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, false, cfg.NotificationTimeout))
		g.Register(ChannelWhatsApp, NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, true, cfg.NotificationTimeout))
	} else {
		logrus.Warn("Twilio not configured; SMS and WhatsApp messages will be logged only")
		g.Register(ChannelSMS, DryRunSender{Channel: ChannelSMS})
		g.Register(ChannelWhatsApp, DryRunSender{Channel: ChannelWhatsApp})
	}
	if cfg.LineChannelSecret != "" && cfg.LineChannelToken != "" {
		sender, err := NewLineSender(cfg.LineChannelSecret, cfg.LineChannelToken)
		if err != nil {
			logrus.WithError(err).Error("LINE messaging disabled")
		} else {
			g.Register(ChannelLINE, sender)
		}
	}
	return g
}
