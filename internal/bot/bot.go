package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/standx-tools/volgate/internal/pkg/apperrors"
	"github.com/standx-tools/volgate/internal/pkg/logger"
	"github.com/standx-tools/volgate/internal/pkg/metrics"
	"github.com/standx-tools/volgate/internal/venue"
	"github.com/visvasity/topic"
)

const (
	// pacingDelay separates the two legs of a cycle.
	pacingDelay = 500 * time.Millisecond
	// errCooldown backs the loop off after a failed iteration.
	errCooldown = 5 * time.Second
	// sweepEvery triggers a stale-order sweep on every Nth placed order.
	sweepEvery = 20
	// staleAge is the resting-order age past which the sweeper cancels.
	staleAge = 2 * time.Minute
)

// Trader is the venue surface the bot needs. *venue.Client satisfies it.
type Trader interface {
	MinOrderQty(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetTicker(ctx context.Context, symbol string) (*venue.Ticker, error)
	PlaceOrder(ctx context.Context, params venue.OrderParams) (json.RawMessage, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]venue.Order, error)
	CancelOrders(ctx context.Context, orderIDs []string) (json.RawMessage, error)
}

type Config struct {
	Symbol        string  `json:"symbol"`
	MinSize       float64 `json:"min_size"`
	MaxSize       float64 `json:"max_size"`
	IntervalMin   float64 `json:"interval_min_sec"`
	IntervalMax   float64 `json:"interval_max_sec"`
	PriceVariance float64 `json:"price_variance"`
}

func (c Config) validate() error {
	if c.Symbol == "" {
		return apperrors.NewInvalidRequest("symbol is required")
	}
	if c.MinSize <= 0 {
		return apperrors.NewInvalidRequest("min_size must be positive")
	}
	if c.MinSize > c.MaxSize {
		return apperrors.NewInvalidRequest("min_size must not exceed max_size")
	}
	if c.IntervalMin < 0 || c.IntervalMin > c.IntervalMax {
		return apperrors.NewInvalidRequest("interval bounds must satisfy 0 <= min <= max")
	}
	if c.PriceVariance < 0 {
		return apperrors.NewInvalidRequest("price_variance must not be negative")
	}
	return nil
}

// Stats is the running tally. Successful means the venue accepted the HTTP
// request; fill status is never queried.
type Stats struct {
	TotalOrders      int64           `json:"totalOrders"`
	SuccessfulOrders int64           `json:"successfulOrders"`
	FailedOrders     int64           `json:"failedOrders"`
	TotalVolume      decimal.Decimal `json:"totalVolume"`
	StartTime        time.Time       `json:"startTime"`
}

type Status struct {
	Running        bool  `json:"running"`
	Stats          Stats `json:"stats"`
	RuntimeSeconds int64 `json:"runtime"`
}

type Options struct {
	Clock Clock
	Rand  *rand.Rand
}

func (o *Options) setDefaults() {
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

// Bot is the volume-generation loop: each cycle places a pair of mirrored
// limit orders around the current price, then sleeps a random interval.
// One loop per Bot; Start while running is rejected.
type Bot struct {
	trader Trader
	clock  Clock
	events *topic.Topic[Event]

	mu      sync.Mutex
	seed    *rand.Rand // derives each run's generator; guarded by mu
	running bool
	cancel  context.CancelFunc
	cur     *run
}

// run owns one loop's mutable state: its config, its own random source and
// its stats. Stop does not wait for an in-flight venue call, so a straggler
// goroutine from a stopped run may still finish an order; it records into
// its own run, never into a later run's freshly-reset counters, and it
// never shares a rand.Rand with the next loop.
type run struct {
	cfg Config
	rng *rand.Rand

	mu    sync.Mutex
	stats Stats
}

func (r *run) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *run) record(qty decimal.Decimal, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.TotalOrders++
	if err != nil {
		r.stats.FailedOrders++
	} else {
		r.stats.SuccessfulOrders++
		r.stats.TotalVolume = r.stats.TotalVolume.Add(qty)
	}
}

func (r *run) orderCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats.TotalOrders
}

func (r *run) uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + r.rng.Float64()*(hi-lo)
}

func New(trader Trader, opts *Options) *Bot {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	return &Bot{
		trader: trader,
		clock:  opts.Clock,
		seed:   opts.Rand,
		events: topic.New[Event](),
	}
}

// Events is the loop's observation stream; subscribe with topic.Subscribe.
func (b *Bot) Events() *topic.Topic[Event] {
	return b.events
}

// Start validates cfg against the venue-reported minimum order quantity and
// launches the loop. Each successful start owns a fresh run with zeroed
// stats; a rejected start attempt leaves the current run intact.
func (b *Bot) Start(ctx context.Context, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return apperrors.New(apperrors.ErrBotRunning, "volume bot already running", nil)
	}
	b.mu.Unlock()

	minQty, err := b.trader.MinOrderQty(ctx, cfg.Symbol)
	if err != nil {
		return err
	}
	if decimal.NewFromFloat(cfg.MinSize).LessThan(minQty) {
		return apperrors.NewInvalidRequest(
			fmt.Sprintf("min_size must be at least %s for %s", minQty, cfg.Symbol))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return apperrors.New(apperrors.ErrBotRunning, "volume bot already running", nil)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	r := &run{
		cfg: cfg,
		rng: rand.New(rand.NewSource(b.seed.Int63())),
	}
	r.stats = Stats{TotalVolume: decimal.Zero, StartTime: b.clock.Now()}
	b.running = true
	b.cancel = cancel
	b.cur = r

	logger.Info("volume bot started", "symbol", cfg.Symbol,
		"min_size", cfg.MinSize, "max_size", cfg.MaxSize)
	b.events.Send(Event{Type: EventStarted, Time: b.clock.Now(), Symbol: cfg.Symbol})

	go b.run(loopCtx, r)
	return nil
}

// Stop flips the state to stopped and returns the final stats snapshot.
// It does not wait for an in-flight venue call; the loop exits at its next
// flag check and any later writes stay inside the stopped run.
func (b *Bot) Stop() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur == nil {
		return Stats{TotalVolume: decimal.Zero}
	}
	snapshot := b.cur.snapshot()
	if b.running {
		b.cancel()
		b.running = false
		logger.Info("volume bot stopped", "symbol", b.cur.cfg.Symbol,
			"total_orders", snapshot.TotalOrders)
		b.events.Send(Event{Type: EventStopped, Time: b.clock.Now(), Symbol: b.cur.cfg.Symbol, Stats: &snapshot})
	}
	return snapshot
}

// Running reports whether the loop is active.
func (b *Bot) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Status returns the running flag, a stats snapshot, and the runtime in
// seconds (0 when never started).
func (b *Bot) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	status := Status{Running: b.running}
	if b.cur != nil {
		status.Stats = b.cur.snapshot()
		if !status.Stats.StartTime.IsZero() {
			status.RuntimeSeconds = int64(b.clock.Now().Sub(status.Stats.StartTime).Seconds())
		}
	}
	return status
}

func (b *Bot) run(ctx context.Context, r *run) {
	for ctx.Err() == nil {
		if err := b.iterate(ctx, r); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("bot iteration failed", "symbol", r.cfg.Symbol, "error", err.Error())
			if !b.clock.Sleep(ctx, errCooldown) {
				return
			}
			continue
		}

		wait := time.Duration(r.uniform(r.cfg.IntervalMin, r.cfg.IntervalMax) * float64(time.Second))
		if !b.clock.Sleep(ctx, wait) {
			return
		}
	}
}

// iterate runs one cycle. Placement failures are counted and swallowed;
// only a failed price fetch is returned, which triggers the cooldown.
func (b *Bot) iterate(ctx context.Context, r *run) error {
	ticker, err := b.trader.GetTicker(ctx, r.cfg.Symbol)
	if err != nil {
		return err
	}
	price := ticker.Price()
	if price.IsZero() {
		return fmt.Errorf("no price available for %s", r.cfg.Symbol)
	}

	qty := decimal.NewFromFloat(r.uniform(r.cfg.MinSize, r.cfg.MaxSize)).Round(4)
	side := venue.SideBuy
	if r.rng.Float64() > 0.5 {
		side = venue.SideSell
	}

	// change is signed; both legs bracket the current price with it.
	u := r.rng.Float64()*2 - 1
	change := price.Mul(decimal.NewFromFloat(r.cfg.PriceVariance * u))

	b.placeLeg(ctx, r, side, qty, price.Add(change).Round(2))

	if !b.clock.Sleep(ctx, pacingDelay) {
		return nil
	}

	mirrored := price.Add(change)
	if side == venue.SideBuy {
		mirrored = price.Sub(change)
	}
	b.placeLeg(ctx, r, side.Opposite(), qty, mirrored.Round(2))

	if r.orderCount()%sweepEvery == 0 {
		b.sweep(ctx, r)
	}
	return nil
}

func (b *Bot) placeLeg(ctx context.Context, r *run, side venue.Side, qty, price decimal.Decimal) {
	_, err := b.trader.PlaceOrder(ctx, venue.OrderParams{
		Symbol: r.cfg.Symbol,
		Side:   side,
		Type:   venue.OrderTypeLimit,
		Qty:    qty,
		Price:  price,
	})

	r.record(qty, err)

	event := Event{Type: EventOrderResult, Time: b.clock.Now(), Symbol: r.cfg.Symbol, Side: side, Qty: qty, Price: price}
	if err != nil {
		event.Err = err.Error()
		metrics.BotOrdersTotal.WithLabelValues("failed", string(side)).Inc()
		logger.Warn("order placement failed", "symbol", r.cfg.Symbol, "side", side, "error", err.Error())
	} else {
		metrics.BotOrdersTotal.WithLabelValues("success", string(side)).Inc()
	}
	b.events.Send(event)
}

// sweep cancels resting orders older than staleAge. Failures are logged
// and swallowed; the loop keeps going.
func (b *Bot) sweep(ctx context.Context, r *run) {
	symbol := r.cfg.Symbol
	orders, err := b.trader.GetOpenOrders(ctx, symbol)
	if err != nil {
		metrics.BotSweepsTotal.WithLabelValues("failed").Inc()
		logger.Warn("stale order sweep failed", "symbol", symbol, "error", err.Error())
		b.events.Send(Event{Type: EventSweep, Time: b.clock.Now(), Symbol: symbol, Err: err.Error()})
		return
	}

	now := b.clock.Now()
	var staleIDs []string
	for _, order := range orders {
		if now.Sub(order.CreatedAt) > staleAge {
			staleIDs = append(staleIDs, order.ID)
		}
	}
	if len(staleIDs) == 0 {
		metrics.BotSweepsTotal.WithLabelValues("success").Inc()
		return
	}

	if _, err := b.trader.CancelOrders(ctx, staleIDs); err != nil {
		metrics.BotSweepsTotal.WithLabelValues("failed").Inc()
		logger.Warn("stale order cancel failed", "symbol", symbol, "count", len(staleIDs), "error", err.Error())
		b.events.Send(Event{Type: EventSweep, Time: now, Symbol: symbol, Err: err.Error()})
		return
	}

	metrics.BotSweepsTotal.WithLabelValues("success").Inc()
	metrics.BotSweptOrders.Add(float64(len(staleIDs)))
	logger.Info("swept stale orders", "symbol", symbol, "count", len(staleIDs))
	b.events.Send(Event{Type: EventSweep, Time: now, Symbol: symbol, Swept: len(staleIDs)})
}
