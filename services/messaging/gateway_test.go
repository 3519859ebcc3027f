package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twclient "github.com/twilio/twilio-go/client"
)

type recordingSender struct {
	mu    sync.Mutex
	calls []string
	err   error
	panic bool
}

func (s *recordingSender) Deliver(ctx context.Context, to, message string) (string, error) {
	if s.panic {
		panic("provider exploded")
	}
	s.mu.Lock()
	s.calls = append(s.calls, to)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return "SM123", nil
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"9876543210", "+919876543210", true},
		{"98765 43210", "+919876543210", true},
		{"+91-98765-43210", "+919876543210", true},
		{"919876543210", "+919876543210", true},
		{"09876543210", "+919876543210", true},
		{"12345", "", false},
		{"", "", false},
		{"449876543210", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizePhone(tc.raw, "91")
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	got, ok := NormalizePhone("0812345678", "66")
	require.True(t, ok)
	assert.Equal(t, "+660812345678", got)
}

func TestGatewayInvalidPhoneSkipsNetwork(t *testing.T) {
	sender := &recordingSender{}
	g := NewGateway("91").Register(ChannelSMS, sender)

	res := g.Send(context.Background(), ChannelSMS, "123", "hello")
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid phone number format", res.Error)
	assert.Empty(t, sender.calls)
}

func TestGatewaySendAll(t *testing.T) {
	sms := &recordingSender{}
	wa := &recordingSender{err: errors.New("unreachable")}
	g := NewGateway("91").Register(ChannelSMS, sms).Register(ChannelWhatsApp, wa)

	out := g.SendAll(context.Background(), "9876543210", "hello", ChannelSMS, ChannelWhatsApp)
	require.Len(t, out.Results, 2)
	assert.True(t, out.Attempted)
	assert.True(t, out.Results[0].Success)
	assert.Equal(t, "SM123", out.Results[0].ProviderReference)
	assert.False(t, out.Results[1].Success)
	assert.Contains(t, out.Results[1].Error, "unreachable")
	assert.True(t, out.AnySucceeded())
	assert.Equal(t, []string{"+919876543210"}, sms.calls)
}

func TestGatewayRecoversFromPanicsAndMissingChannels(t *testing.T) {
	g := NewGateway("").Register(ChannelSMS, &recordingSender{panic: true})

	res := g.Send(context.Background(), ChannelSMS, "9876543210", "hello")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "panic")

	res = g.Send(context.Background(), ChannelWhatsApp, "9876543210", "hello")
	assert.False(t, res.Success)
	assert.Equal(t, "channel not configured", res.Error)
}

func TestDryRunSenderSucceeds(t *testing.T) {
	g := NewGateway("91").Register(ChannelSMS, DryRunSender{Channel: ChannelSMS})
	res := g.Send(context.Background(), ChannelSMS, "9876543210", "hello")
	assert.True(t, res.Success)
	assert.Contains(t, res.ProviderReference, "dryrun-")
}

func TestWhatsappAddress(t *testing.T) {
	assert.Equal(t, "whatsapp:+919876543210", whatsappAddress("+919876543210"))
	assert.Equal(t, "whatsapp:+919876543210", whatsappAddress("whatsapp:+919876543210"))
	assert.False(t, Skipped("no phone").AnySucceeded())
}

func TestTwilioSenderHonoursTimeouts(t *testing.T) {
	s := NewTwilioSender("AC123", "token", "+15005550006", false, 3*time.Second)
	base, ok := s.client.RequestHandler.Client.(*twclient.Client)
	require.True(t, ok)
	require.NotNil(t, base.HTTPClient)
	assert.Equal(t, 3*time.Second, base.HTTPClient.Timeout)
	assert.Equal(t, "AC123", base.AccountSid())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Deliver(ctx, "+919876543210", "hello")
	assert.ErrorIs(t, err, context.Canceled)
}
