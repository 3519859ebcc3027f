// Package messaging delivers guardian notifications over SMS, WhatsApp and LINE.
// Delivery never fails the caller: every attempt yields a per-channel Result.
package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelLINE     Channel = "line"
)

// Result is the outcome of one delivery attempt on one channel.
type Result struct {
	Channel           Channel `json:"channel"`
	Success           bool    `json:"success"`
	ProviderReference string  `json:"provider_reference,omitempty"`
	Error             string  `json:"error,omitempty"`
}

// Outcome groups the results of one notification fan-out.
type Outcome struct {
	Attempted bool     `json:"attempted"`
	Reason    string   `json:"reason,omitempty"`
	Results   []Result `json:"results"`
}

// AnySucceeded reports whether at least one channel delivered.
func (o Outcome) AnySucceeded() bool {
	for _, r := range o.Results {
		if r.Success {
			return true
		}
	}
	return false
}

// Skipped builds an outcome for a notification that was never attempted.
func Skipped(reason string) Outcome {
	return Outcome{Attempted: false, Reason: reason, Results: []Result{}}
}

// Sender performs the provider call for one channel. to is already normalized.
type Sender interface {
	Deliver(ctx context.Context, to, message string) (reference string, err error)
}

// Notifier is what the ledger and early-leave flows depend on.
type Notifier interface {
	Send(ctx context.Context, channel Channel, to, message string) Result
	SendAll(ctx context.Context, to, message string, channels ...Channel) Outcome
}

// Gateway routes messages to the Sender registered for each channel.
type Gateway struct {
	mu          sync.RWMutex
	senders     map[Channel]Sender
	countryCode string
	log         *logrus.Entry
}

var _ Notifier = (*Gateway)(nil)

func NewGateway(countryCode string) *Gateway {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return &Gateway{
		senders:     make(map[Channel]Sender),
		countryCode: countryCode,
		log:         logrus.WithField("component", "messaging"),
	}
}

// Register installs (or replaces) the sender for a channel.
func (g *Gateway) Register(channel Channel, sender Sender) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.senders[channel] = sender
	return g
}

// Send delivers message on one channel. It never panics and never returns an error.
func (g *Gateway) Send(ctx context.Context, channel Channel, to, message string) (res Result) {
	res = Result{Channel: channel}
	defer func() {
		if r := recover(); r != nil {
			g.log.WithField("channel", channel).Errorf("sender panic: %v", r)
			res.Success = false
			res.Error = fmt.Sprintf("sender panic: %v", r)
		}
	}()

	g.mu.RLock()
	sender, ok := g.senders[channel]
	g.mu.RUnlock()
	if !ok {
		res.Error = "channel not configured"
		return res
	}

	target := to
	if channel != ChannelLINE {
		normalized, valid := NormalizePhone(to, g.countryCode)
		if !valid {
			g.log.WithFields(logrus.Fields{"channel": channel, "to": to}).Warn("Invalid phone number format")
			res.Error = "Invalid phone number format"
			return res
		}
		target = normalized
	} else if target == "" {
		res.Error = "missing LINE recipient"
		return res
	}

	ref, err := sender.Deliver(ctx, target, message)
	if err != nil {
		g.log.WithError(err).WithFields(logrus.Fields{"channel": channel, "to": target}).Error("Notification delivery failed")
		res.Error = err.Error()
		return res
	}
	g.log.WithFields(logrus.Fields{"channel": channel, "to": target, "reference": ref}).Info("Notification delivered")
	res.Success = true
	res.ProviderReference = ref
	return res
}

// SendAll fans out to every listed channel concurrently; results keep the
// order of channels.
func (g *Gateway) SendAll(ctx context.Context, to, message string, channels ...Channel) Outcome {
	out := Outcome{Attempted: true, Results: make([]Result, len(channels))}
	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()
			out.Results[i] = g.Send(ctx, ch, to, message)
		}(i, ch)
	}
	wg.Wait()
	return out
}
