// Back-test runner CLI: replays one strategy over one symbol's historical
// candles and prints the resulting trade summary. Grounded on the
// teacher's cmd/backtest/main.go flag/logging idiom (flag.*, zerolog
// console writer gated by -verbose), reworked around this core's
// single-strategy/single-symbol internal/backtest.Run rather than the
// teacher's multi-symbol Engine/Report pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantedge/stratcore/internal/backtest"
	"github.com/quantedge/stratcore/internal/candle"
	"github.com/quantedge/stratcore/internal/config"
	"github.com/quantedge/stratcore/internal/db"
	"github.com/quantedge/stratcore/internal/exchange"
	"github.com/quantedge/stratcore/internal/llm"
	"github.com/quantedge/stratcore/internal/resilience"
	"github.com/quantedge/stratcore/internal/strategy"
	"github.com/quantedge/stratcore/internal/validator"

	_ "github.com/quantedge/stratcore/internal/strategy/builtin"
)

var (
	configPath   = flag.String("config", "", "Path to config file (defaults to ./configs/config.yaml)")
	strategyName = flag.String("strategy", "", "Strategy name (see -list)")
	exchangeName = flag.String("exchange", "binance", "Exchange to read candles from")
	symbol       = flag.String("symbol", "BTCUSDT", "Trading pair to back-test")
	period       = flag.String("period", "1h", "Candle period (1m,3m,5m,15m,30m,1h,4h,1d)")
	hours        = flag.Float64("hours", 24*30, "Hours of history to replay")
	capital      = flag.Float64("capital", 10000, "Initial capital used for PnL sizing")
	useAI        = flag.Bool("use-ai", false, "Confirm entries with the signal validator backend")
	listOnly     = flag.Bool("list", false, "List registered strategies and exit")
	verbose      = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if *listOnly {
		for _, name := range strategy.Names() {
			fmt.Println(name)
		}
		return
	}

	if *strategyName == "" {
		fmt.Fprintln(os.Stderr, "Error: -strategy flag is required (see -list)")
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	p := candle.Period(*period)
	if !candle.Valid(p) {
		return fmt.Errorf("unknown period %q", *period)
	}

	database, err := db.New(ctx, cfg.Database.GetDSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	manager := resilience.NewManager()
	source := sourceFor(manager)

	strat, err := strategy.New(*strategyName, nil)
	if err != nil {
		return fmt.Errorf("construct strategy: %w", err)
	}

	deps := backtest.Deps{
		Repo:   db.NewCandleRepository(database),
		Source: source,
		Now:    func() int64 { return time.Now().Unix() },
	}

	if *useAI {
		backend, err := validatorBackend(cfg)
		if err != nil {
			return fmt.Errorf("construct validator backend: %w", err)
		}
		deps.ValidatorBackend = backend
		deps.ValidatorTimeout = cfg.Validator.Timeout()
	}

	params := backtest.Params{
		Exchange:       *exchangeName,
		Symbol:         strings.ToUpper(*symbol),
		Period:         p,
		Hours:          *hours,
		InitialCapital: *capital,
		UseAI:          *useAI,
	}

	log.Info().
		Str("strategy", *strategyName).
		Str("exchange", params.Exchange).
		Str("symbol", params.Symbol).
		Str("period", string(p)).
		Float64("hours", params.Hours).
		Bool("use_ai", params.UseAI).
		Msg("starting backtest")

	result, err := backtest.Run(ctx, strat, *strategyName, params, deps)
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}

	printSummary(result)
	return nil
}

// sourceFor returns the exchange client to read historical candles from.
// Credentials are not required for market-data reads, so this always
// builds an unauthenticated client rather than resolving Vault secrets.
func sourceFor(manager *resilience.Manager) *exchange.Client {
	return exchange.NewClient("", "", manager)
}

// validatorBackend wires the optional C8 signal confirmation backend to
// internal/llm's HTTP client, the one concrete ChatClient implementation
// in this tree. Its APIKey comes from the environment rather than
// internal/config, since the validator config section only carries an
// endpoint and timeout.
func validatorBackend(cfg *config.Config) (validator.Validator, error) {
	if cfg.Validator.Endpoint == "" {
		return nil, fmt.Errorf("validator.endpoint is not configured")
	}
	client := llm.NewClient(llm.ClientConfig{
		Endpoint: cfg.Validator.Endpoint,
		APIKey:   os.Getenv("STRATCORE_VALIDATOR_API_KEY"),
		Timeout:  cfg.Validator.Timeout(),
	})
	return validator.NewLLMBackend(client), nil
}

func printSummary(r *backtest.Result) {
	fmt.Printf("Strategy:        %s\n", r.StrategyName)
	fmt.Printf("Exchange/Symbol: %s/%s (%s)\n", r.Exchange, r.Symbol, r.Period)
	fmt.Printf("Window:          %s -> %s\n", time.Unix(r.StartTime, 0).UTC().Format(time.RFC3339), time.Unix(r.EndTime, 0).UTC().Format(time.RFC3339))
	fmt.Printf("Candles:         %d\n", len(r.CandlesAsc))
	fmt.Println()
	fmt.Printf("Total trades:    %d (%d profitable, %d losing)\n", r.Summary.TotalTrades, r.Summary.ProfitableTrades, r.Summary.LosingTrades)
	fmt.Printf("Win rate:        %.2f%%\n", r.Summary.WinRatePct)
	fmt.Printf("Total profit:    %.2f%%\n", r.Summary.TotalProfitPct)
	fmt.Printf("Average profit:  %.2f%%\n", r.Summary.AverageProfitPct)
	fmt.Printf("Max drawdown:    %.2f%%\n", r.Summary.MaxDrawdownPct)
	fmt.Printf("Sharpe ratio:    %.3f\n", r.Summary.SharpeRatio)
}
