package notify

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSConfig configures the optional NATS connection backing NATSBackend.
type NATSConfig struct {
	URL    string
	Prefix string
}

// DefaultNATSConfig returns the conventional local-dev NATS target.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{URL: "nats://localhost:4222", Prefix: "stratcore"}
}

// Connect dials NATS with the same reconnect policy as
// internal/orchestrator/messagebus.go's NewMessageBus, and wraps the
// connection in a NATSBackend.
func Connect(cfg NATSConfig) (*NATSBackend, error) {
	nc, err := nats.Connect(
		cfg.URL,
		nats.Name("stratcore-notify"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return NewNATSBackend(nc, cfg.Prefix), nil
}
