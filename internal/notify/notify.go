// Package notify delivers the one-line external notification the
// scheduler emits for a signal (internal/scheduler.Notifier). Grounded on
// internal/orchestrator/messagebus.go's NATS publish shape for the
// optional cross-process Backend, and on zerolog for the always-on
// logging Backend -- neither backend keeps its own delivery state, so a
// failed publish is a one-line error, not a retried/queued send.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantedge/stratcore/internal/scheduler"
	"github.com/quantedge/stratcore/internal/strategy"
)

// Backend delivers one notification. Implementations are expected to be
// fire-and-forget: a Backend that needs delivery confirmation is out of
// scope for a "notify externally" signal side-effect.
type Backend interface {
	Send(ctx context.Context, n Notification) error
}

// Notification is what a Backend actually transmits, independent of how
// the scheduler models a Bot.
type Notification struct {
	BotID     string    `json:"bot_id"`
	ProfileID string    `json:"profile_id"`
	Exchange  string    `json:"exchange"`
	Pair      string    `json:"pair"`
	Side      string    `json:"side"`
	Price     float64   `json:"price"`
	Emitted   time.Time `json:"emitted"`
}

// Service satisfies scheduler.Notifier by fanning a notification out to
// every configured Backend. A Backend failure is logged and does not
// block the others -- a broadcast outage shouldn't also block the log
// line, and vice versa.
type Service struct {
	backends []Backend
	now      func() time.Time
}

// NewService constructs a Service over the given backends, in the order
// they should be tried.
func NewService(now func() time.Time, backends ...Backend) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{backends: backends, now: now}
}

// Notify satisfies scheduler.Notifier.
func (s *Service) Notify(ctx context.Context, bot scheduler.Bot, side strategy.Direction, price float64) error {
	n := Notification{
		BotID:     bot.ID,
		ProfileID: bot.ProfileID,
		Exchange:  bot.Exchange,
		Pair:      bot.Pair,
		Side:      string(side),
		Price:     price,
		Emitted:   s.now(),
	}

	var lastErr error
	for _, backend := range s.backends {
		if err := backend.Send(ctx, n); err != nil {
			log.Error().
				Err(err).
				Str("bot_id", bot.ID).
				Str("pair", bot.Pair).
				Msg("notification backend failed")
			lastErr = err
		}
	}
	return lastErr
}

// LogBackend logs a notification at info level. Always safe to configure;
// typically the first backend in a Service so a signal is never silently
// lost even if every other backend is down.
type LogBackend struct{}

// Send satisfies Backend.
func (LogBackend) Send(ctx context.Context, n Notification) error {
	log.Info().
		Str("bot_id", n.BotID).
		Str("exchange", n.Exchange).
		Str("pair", n.Pair).
		Str("side", n.Side).
		Float64("price", n.Price).
		Time("emitted", n.Emitted).
		Msg("signal emitted")
	return nil
}

// natsPublisher is the subset of *nats.Conn NATSBackend needs, so tests
// can substitute a fake without a live NATS server.
type natsPublisher interface {
	Publish(subject string, data []byte) error
}

// NATSBackend publishes a notification as JSON to a NATS subject,
// grounded on internal/orchestrator/messagebus.go's Broadcast: the same
// "serialize to JSON, publish to a prefixed subject" shape, without the
// agent-to-agent request/reply and subscription machinery nothing here
// needs.
type NATSBackend struct {
	conn    natsPublisher
	subject string
}

// NewNATSBackend constructs a NATSBackend publishing to
// "<prefix>.signals".
func NewNATSBackend(conn natsPublisher, prefix string) *NATSBackend {
	if prefix == "" {
		prefix = "stratcore"
	}
	return &NATSBackend{conn: conn, subject: fmt.Sprintf("%s.signals", prefix)}
}

// Send satisfies Backend.
func (b *NATSBackend) Send(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
