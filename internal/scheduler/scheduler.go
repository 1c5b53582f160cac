// Package scheduler drives every running bot exactly once per its
// configured period, aligned to the wall-clock minute boundary. Grounded on
// internal/metrics/updater.go's time.NewTicker + select{ticker.C / stopCh /
// ctx.Done()} loop for the tick driver, and on internal/alerts.Alerter /
// Manager.Send for "notify externally" (the Notifier interface here is the
// narrow slice of that shape this package needs).
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantedge/stratcore/internal/candle"
	"github.com/quantedge/stratcore/internal/candles"
	"github.com/quantedge/stratcore/internal/executor"
	"github.com/quantedge/stratcore/internal/strategy"
)

const (
	tickInterval      = time.Minute
	minuteBoundaryLag = 8 * time.Second
	watchThrottle     = 30 * time.Minute
	throttleReapAge   = time.Hour
	housekeepEvery    = time.Hour
)

// Mode selects whether an eligible signal places orders or only notifies.
type Mode string

const (
	ModeWatch Mode = "watch"
	ModeTrade Mode = "trade"
)

// Status is a bot's run state in profile storage.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
)

// Bot is the scheduler's view of a configured bot; ownership lives in
// external profile storage, the scheduler holds only a reference per tick.
type Bot struct {
	ID           string
	ProfileID    string
	Exchange     string
	StrategyName string
	Pair         string
	Period       candle.Period
	Capital      float64
	Mode         Mode
	Status       Status
	Options      map[string]interface{}
}

// BotProvider lists the bots currently eligible to run. Implementations
// typically filter to Status == StatusRunning themselves.
type BotProvider interface {
	RunningBots(ctx context.Context) ([]Bot, error)
}

// Quote is a current bid/ask snapshot for a pair.
type Quote struct {
	Bid float64
	Ask float64
}

// QuoteSource fetches a current market quote ahead of a strategy run.
type QuoteSource interface {
	Quote(ctx context.Context, exchange, pair string) (Quote, error)
}

// OrderExecutor dispatches trade-mode signals to the exchange.
type OrderExecutor interface {
	MarketOrder(ctx context.Context, exchange, pair string, side strategy.Direction, quoteAmount float64) error
	ClosePosition(ctx context.Context, exchange, pair string) error
}

// Notifier delivers a one-line external notification for an emitted signal.
type Notifier interface {
	Notify(ctx context.Context, bot Bot, side strategy.Direction, price float64) error
}

// Deps bundles the scheduler's external collaborators.
type Deps struct {
	Bots     BotProvider
	Quotes   QuoteSource
	Source   candles.MarketDataSource
	Orders   OrderExecutor
	Notifier Notifier
	Now      func() time.Time
}

// Scheduler fires one tick per minute, aligned to the wall-clock boundary
// plus an 8-second lag, and runs every eligible bot within that tick.
type Scheduler struct {
	deps Deps

	mu           sync.Mutex
	lastNotified map[string]time.Time
}

// New constructs a Scheduler over deps.
func New(deps Deps) *Scheduler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Scheduler{deps: deps, lastNotified: map[string]time.Time{}}
}

// Run blocks until ctx is cancelled, firing Tick once per minute and
// reaping stale throttle timestamps once per hour.
func (s *Scheduler) Run(ctx context.Context) {
	initialDelay := delayToNextBoundary(s.deps.Now()) + minuteBoundaryLag
	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	reaper := time.NewTicker(housekeepEvery)
	defer reaper.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-reaper.C:
			s.reapThrottle()
		case <-timer.C:
			s.Tick(ctx)
			timer.Reset(tickInterval)
		}
	}
}

// delayToNextBoundary returns how long until the next wall-clock minute
// boundary after now.
func delayToNextBoundary(now time.Time) time.Duration {
	next := now.Truncate(time.Minute).Add(time.Minute)
	return next.Sub(now)
}

// Tick runs every bot eligible at the current minute. Bots are processed
// sequentially in provider order; a slow or failing bot never aborts the
// tick for the rest.
func (s *Scheduler) Tick(ctx context.Context) {
	m := s.deps.Now().Unix() / 60

	bots, err := s.deps.Bots.RunningBots(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduler: failed to list running bots")
		return
	}

	for _, bot := range bots {
		pMin, err := candle.ToMinutes(bot.Period)
		if err != nil {
			log.Warn().Err(err).Str("bot", bot.ID).Msg("scheduler: bot has invalid period, skipping")
			continue
		}
		if pMin <= 0 || m%int64(pMin) != 0 {
			continue
		}
		s.runBot(ctx, bot)
	}
}

// runBot evaluates and dispatches one bot's signal, recovering from any
// panic so the rest of the tick proceeds.
func (s *Scheduler) runBot(ctx context.Context, bot Bot) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("bot", bot.ID).Msg("scheduler: bot tick panicked")
		}
	}()

	if s.deps.Quotes != nil {
		if _, err := s.deps.Quotes.Quote(ctx, bot.Exchange, bot.Pair); err != nil {
			log.Warn().Err(err).Str("bot", bot.ID).Msg("scheduler: quote fetch failed")
		}
	}

	barsAsc, err := candles.FetchRecent(ctx, s.deps.Source, bot.Exchange, bot.Pair, bot.Period)
	if err != nil {
		log.Error().Err(err).Str("bot", bot.ID).Msg("scheduler: candle fetch failed")
		return
	}
	if len(barsAsc) == 0 {
		return
	}

	strat, err := strategy.New(bot.StrategyName, bot.Options)
	if err != nil {
		log.Error().Err(err).Str("bot", bot.ID).Msg("scheduler: strategy construction failed")
		return
	}

	rows, err := executor.Execute(ctx, strat, barsAsc)
	if err != nil {
		log.Error().Err(err).Str("bot", bot.ID).Msg("scheduler: executor run failed")
		return
	}

	last := rows[len(rows)-1]
	if last.Signal == nil {
		return
	}
	side := *last.Signal

	log.Info().Str("bot", bot.ID).Str("pair", bot.Pair).Str("signal", string(side)).Float64("price", last.Price).Msg("scheduler: signal emitted")

	s.dispatch(ctx, bot, side, last.Price)
}

func (s *Scheduler) dispatch(ctx context.Context, bot Bot, side strategy.Direction, price float64) {
	switch bot.Mode {
	case ModeWatch:
		if !s.allowNotify(bot.ID) {
			return
		}
		s.notify(ctx, bot, side, price)
	case ModeTrade:
		s.notify(ctx, bot, side, price)
		s.placeOrder(ctx, bot, side)
	default:
		log.Warn().Str("bot", bot.ID).Str("mode", string(bot.Mode)).Msg("scheduler: unknown bot mode")
	}
}

func (s *Scheduler) notify(ctx context.Context, bot Bot, side strategy.Direction, price float64) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.Notify(ctx, bot, side, price); err != nil {
		log.Warn().Err(err).Str("bot", bot.ID).Msg("scheduler: notification failed")
	}
}

func (s *Scheduler) placeOrder(ctx context.Context, bot Bot, side strategy.Direction) {
	if s.deps.Orders == nil {
		return
	}

	var err error
	switch side {
	case strategy.Long, strategy.Short:
		err = s.deps.Orders.MarketOrder(ctx, bot.Exchange, bot.Pair, side, bot.Capital)
	case strategy.Close:
		err = s.deps.Orders.ClosePosition(ctx, bot.Exchange, bot.Pair)
	}
	if err != nil {
		log.Error().Err(err).Str("bot", bot.ID).Str("side", string(side)).Msg("scheduler: order dispatch failed")
	}
}

// allowNotify reports whether a watch-mode bot may notify now, and if so
// records the notification time. Bots are throttled to one notification
// every 30 minutes.
func (s *Scheduler) allowNotify(botID string) bool {
	now := s.deps.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastNotified[botID]; ok && now.Sub(last) < watchThrottle {
		return false
	}
	s.lastNotified[botID] = now
	return true
}

// reapThrottle drops throttle timestamps older than an hour, per the
// housekeeping task's retention window.
func (s *Scheduler) reapThrottle() {
	cutoff := s.deps.Now().Add(-throttleReapAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ts := range s.lastNotified {
		if ts.Before(cutoff) {
			delete(s.lastNotified, id)
		}
	}
}
