// Job server daemon: exposes C7's back-test job service over HTTP.
// Grounded on the teacher's cmd/api/main.go gin.Default()+ListenAndServe
// shape, scoped down to job submission/status/result -- the dashboard
// auth, decisions, and feedback surfaces in the teacher's API belong to
// components this core does not implement.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantedge/stratcore/internal/config"
	"github.com/quantedge/stratcore/internal/db"
	"github.com/quantedge/stratcore/internal/exchange"
	"github.com/quantedge/stratcore/internal/jobs"
	"github.com/quantedge/stratcore/internal/jobserver"
	"github.com/quantedge/stratcore/internal/resilience"

	_ "github.com/quantedge/stratcore/internal/strategy/builtin"
)

var (
	configPath = flag.String("config", "", "Path to config file (defaults to ./configs/config.yaml)")
	addr       = flag.String("addr", ":8090", "HTTP listen address")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("jobserver failed")
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

	manager := resilience.NewManager()
	source := exchange.NewClient("", "", manager)

	svc := jobs.NewService(jobs.Options{
		MaxConcurrentJobs: cfg.Jobs.MaxConcurrentJobs,
		TTLHours:          cfg.Jobs.TTLHours,
		History:           db.NewBacktestHistory(database),
		WinRateOf:         jobs.WinRateFromBacktestResult,
	})
	go svc.RunReaper(ctx)

	srv := jobserver.New(svc, jobserver.BacktestDeps{
		Repo:   db.NewCandleRepository(database),
		Source: source,
	})

	engine := gin.Default()
	srv.Register(engine)

	log.Info().Str("addr", *addr).Msg("jobserver listening")
	errCh := make(chan error, 1)
	go func() { errCh <- engine.Run(*addr) }()

	select {
	case <-ctx.Done():
		svc.Wait()
		return nil
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}
