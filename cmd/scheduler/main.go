// Bot scheduler daemon: fires C6's tick loop against bots persisted in
// profile storage, dispatching signals to the configured exchange and
// notification backends. Grounded on the teacher's cmd/backtest/main.go
// flag/logging idiom and on internal/orchestrator's NATS wiring, with no
// direct teacher equivalent -- the teacher has no single-process bot
// runner of this shape.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantedge/stratcore/internal/config"
	"github.com/quantedge/stratcore/internal/db"
	"github.com/quantedge/stratcore/internal/exchange"
	"github.com/quantedge/stratcore/internal/exchangecache"
	"github.com/quantedge/stratcore/internal/notify"
	"github.com/quantedge/stratcore/internal/resilience"
	"github.com/quantedge/stratcore/internal/scheduler"
	"github.com/quantedge/stratcore/internal/vault"

	_ "github.com/quantedge/stratcore/internal/strategy/builtin"
)

var (
	configPath = flag.String("config", "", "Path to config file (defaults to ./configs/config.yaml)")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("scheduler failed")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	database, err := db.New(ctx, cfg.Database.GetDSN())
	if err != nil {
		return err
	}
	defer database.Close()

	var vaultClient *vault.Client
	if cfg.Vault.Enabled {
		vaultClient, err = vault.NewClient(vault.Config{
			Address: cfg.Vault.Address,
			Mount:   cfg.Vault.Mount,
			Prefix:  cfg.Vault.Prefix,
		})
		if err != nil {
			return err
		}
	}

	manager := resilience.NewManager()
	router := exchange.NewRouter(exchangecache.New(), manager, vaultClient)

	notifier := buildNotifier(cfg)

	sched := scheduler.New(scheduler.Deps{
		Bots:     db.NewBotRepository(database),
		Quotes:   router,
		Source:   router,
		Orders:   router,
		Notifier: notifier,
	})

	log.Info().Msg("scheduler starting")
	sched.Run(ctx)
	log.Info().Msg("scheduler stopped")
	return nil
}

// buildNotifier always enables the log backend, and adds a NATS backend
// when a broker URL is configured -- signals are never silently dropped
// for lack of network connectivity.
func buildNotifier(cfg *config.Config) *notify.Service {
	backends := []notify.Backend{notify.LogBackend{}}

	if cfg.NATS.URL != "" {
		natsBackend, err := notify.Connect(notify.NATSConfig{URL: cfg.NATS.URL, Prefix: "stratcore"})
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("could not connect to NATS, signals will only be logged")
		} else {
			backends = append(backends, natsBackend)
		}
	}

	return notify.NewService(nil, backends...)
}
