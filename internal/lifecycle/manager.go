// Package lifecycle owns the signal state machine: forming and watchlist
// setups, activation with per-symbol cooldown, outcome monitoring and
// trade archiving.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"signal-scanner/internal/smc"
	"signal-scanner/internal/storage"
	"signal-scanner/internal/strategy"
)

// PriceSource supplies live prices for monitoring.
type PriceSource interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Notifier receives lifecycle events. Delivery is fire-and-forget;
// failures never affect signal state.
type Notifier interface {
	NotifySignal(event string, rec storage.SignalRecord)
}

// Config tunes the lifecycle manager.
type Config struct {
	// Cooldown is the per-symbol window within which a second active
	// signal is refused.
	Cooldown time.Duration
	// MonitorInterval is how often active signals are checked against
	// the live price.
	MonitorInterval time.Duration
}

// DefaultConfig returns the standard lifecycle tuning.
func DefaultConfig() Config {
	return Config{
		Cooldown:        2 * time.Hour,
		MonitorInterval: 30 * time.Second,
	}
}

// Manager owns every signal record from creation to terminal state. The
// active-signal set per symbol is the one shared resource: the cooldown
// check and the creation that follows run under a per-symbol lock so two
// concurrent scan paths cannot both activate the same symbol.
type Manager struct {
	store    storage.Store
	prices   PriceSource
	cache    *storage.PriceCache
	notifier Notifier
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time

	lockMu      sync.Mutex
	symbolLocks map[string]*sync.Mutex

	stopCh chan struct{}
	wg     sync.WaitGroup
	cron   *cron.Cron
}

// NewManager wires the lifecycle manager. notifier and cache may be nil.
func NewManager(cfg Config, store storage.Store, prices PriceSource, cache *storage.PriceCache, notifier Notifier, logger zerolog.Logger) *Manager {
	def := DefaultConfig()
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = def.MonitorInterval
	}
	return &Manager{
		store:       store,
		prices:      prices,
		cache:       cache,
		notifier:    notifier,
		cfg:         cfg,
		log:         logger.With().Str("component", "LifecycleManager").Logger(),
		now:         time.Now,
		symbolLocks: make(map[string]*sync.Mutex),
		stopCh:      make(chan struct{}),
	}
}

// SetNow overrides the clock, for tests.
func (m *Manager) SetNow(now func() time.Time) { m.now = now }

// Cooldown returns the per-symbol activation cooldown window.
func (m *Manager) Cooldown() time.Duration { return m.cfg.Cooldown }

func (m *Manager) symbolLock(symbol string) *sync.Mutex {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	l, ok := m.symbolLocks[symbol]
	if !ok {
		l = &sync.Mutex{}
		m.symbolLocks[symbol] = l
	}
	return l
}

// TryActivate creates an active signal unless the symbol already has an
// active signal inside the cooldown window. The check and the creation
// are atomic per symbol.
func (m *Manager) TryActivate(ctx context.Context, sig strategy.Signal) (bool, error) {
	lock := m.symbolLock(sig.Symbol)
	lock.Lock()
	defer lock.Unlock()

	active, err := m.store.ListSignals(ctx, storage.SignalFilter{
		Symbol: sig.Symbol,
		Status: storage.StatusActive,
	})
	if err != nil {
		return false, fmt.Errorf("cooldown check %s: %w", sig.Symbol, err)
	}
	now := m.now()
	for _, rec := range active {
		if now.Sub(rec.Signal.CreatedAt) < m.cfg.Cooldown {
			m.log.Debug().Str("symbol", sig.Symbol).Str("existing", rec.Signal.ID).
				Msg("activation refused, symbol in cooldown")
			return false, nil
		}
	}

	rec := storage.SignalRecord{Signal: sig, Status: storage.StatusActive}
	if err := m.store.CreateSignal(ctx, rec); err != nil {
		return false, fmt.Errorf("create signal %s: %w", sig.Symbol, err)
	}

	m.log.Info().Str("symbol", sig.Symbol).Str("id", sig.ID).
		Str("direction", string(sig.Setup.Direction)).
		Int("confidence", sig.Setup.Confidence).
		Msg("signal activated")
	if m.notifier != nil {
		m.notifier.NotifySignal("signal_activated", rec)
	}
	return true, nil
}

// AddWatchlist persists a pending setup for re-evaluation on later
// scans.
func (m *Manager) AddWatchlist(ctx context.Context, setup strategy.PendingSetup) error {
	if err := m.store.CreatePendingSetup(ctx, setup); err != nil {
		return fmt.Errorf("watchlist %s: %w", setup.Symbol, err)
	}
	return nil
}

// SyncPending reconciles a symbol's stored setups with the ones the
// current scan produced. Stored setups the scan did not reproduce no
// longer hold and are dropped rather than left stale.
func (m *Manager) SyncPending(ctx context.Context, symbol string, fresh []strategy.PendingSetup) error {
	stored, err := m.store.ListPendingSetups(ctx, symbol)
	if err != nil {
		return fmt.Errorf("list pending %s: %w", symbol, err)
	}

	freshKeys := make(map[string]bool, len(fresh))
	for _, s := range fresh {
		freshKeys[pendingKey(s)] = true
	}
	for _, s := range stored {
		if !freshKeys[pendingKey(s)] {
			if err := m.store.DeletePendingSetup(ctx, s.ID); err != nil {
				m.log.Warn().Err(err).Str("id", s.ID).Msg("stale setup delete failed")
			} else {
				m.log.Debug().Str("symbol", symbol).Str("id", s.ID).Msg("stale setup invalidated")
			}
		}
	}

	storedKeys := make(map[string]bool, len(stored))
	for _, s := range stored {
		storedKeys[pendingKey(s)] = true
	}
	for _, s := range fresh {
		if storedKeys[pendingKey(s)] {
			continue
		}
		if err := m.AddWatchlist(ctx, s); err != nil {
			m.log.Warn().Err(err).Str("symbol", symbol).Msg("watchlist add failed")
		}
	}
	return nil
}

// pendingKey identifies a setup by its trading shape, not its random id,
// so a re-detected setup survives reconciliation.
func pendingKey(s strategy.PendingSetup) string {
	return fmt.Sprintf("%s|%s|%s|%.5f|%.5f", s.Symbol, s.Setup.Direction, s.Setup.EntryType, s.Setup.EntryPrice, s.Setup.StopLoss)
}

// Start launches the monitoring loop and the daily maintenance job.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.monitorLoop()

	m.cron = cron.New()
	m.cron.AddFunc("0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		m.dailyMaintenance(ctx)
	})
	m.cron.Start()
	m.log.Info().Dur("monitor_interval", m.cfg.MonitorInterval).Msg("lifecycle manager started")
}

// Stop halts monitoring and maintenance.
func (m *Manager) Stop() {
	close(m.stopCh)
	if m.cron != nil {
		m.cron.Stop()
	}
	m.wg.Wait()
}

func (m *Manager) monitorLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.MonitorInterval)
			m.MonitorOnce(ctx)
			cancel()
		}
	}
}

// MonitorOnce checks every active signal against the live price and
// resolves stop, target and expiry outcomes. Price fetch failures
// degrade to the cached price; a symbol with no price at all is skipped
// until the next tick.
func (m *Manager) MonitorOnce(ctx context.Context) {
	active, err := m.store.ListSignals(ctx, storage.SignalFilter{Status: storage.StatusActive})
	if err != nil {
		m.log.Error().Err(err).Msg("monitor: list active failed")
		return
	}

	now := m.now()
	for _, rec := range active {
		price, ok := m.currentPrice(ctx, rec.Signal.Symbol)

		outcome := storage.Status("")
		exitPrice := price
		setup := rec.Signal.Setup

		if ok {
			switch setup.Direction {
			case smc.DirectionBuy:
				if price <= setup.StopLoss {
					outcome = storage.StatusStoppedOut
				} else if price >= setup.TakeProfit {
					outcome = storage.StatusTargetHit
				}
			case smc.DirectionSell:
				if price >= setup.StopLoss {
					outcome = storage.StatusStoppedOut
				} else if price <= setup.TakeProfit {
					outcome = storage.StatusTargetHit
				}
			}
		}
		if outcome == "" && setup.ExpiresAt > 0 && now.UnixMilli() > setup.ExpiresAt {
			outcome = storage.StatusExpired
			if !ok {
				exitPrice = setup.EntryPrice
			}
		}
		if outcome == "" {
			continue
		}

		if err := m.Resolve(ctx, rec.Signal.ID, outcome, exitPrice); err != nil {
			m.log.Error().Err(err).Str("id", rec.Signal.ID).Msg("monitor: resolve failed")
		}
	}
}

func (m *Manager) currentPrice(ctx context.Context, symbol string) (float64, bool) {
	price, err := m.prices.CurrentPrice(ctx, symbol)
	if err == nil && price > 0 {
		if m.cache != nil {
			m.cache.Set(ctx, symbol, price)
		}
		return price, true
	}
	if m.cache != nil {
		if cached, ok := m.cache.Get(ctx, symbol); ok {
			m.log.Debug().Str("symbol", symbol).Msg("price fetch failed, using cached price")
			return cached, true
		}
	}
	m.log.Warn().Err(err).Str("symbol", symbol).Msg("no price available, skipping until next tick")
	return 0, false
}

// Resolve transitions an active signal to a terminal state and archives
// the trade exactly once. Resolving a signal that is not active is a
// logged no-op, not an error.
func (m *Manager) Resolve(ctx context.Context, id string, outcome storage.Status, exitPrice float64) error {
	if !outcome.Terminal() {
		return fmt.Errorf("resolve %s: %q is not a terminal status", id, outcome)
	}

	rec, err := m.store.GetSignal(ctx, id)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", id, err)
	}

	lock := m.symbolLock(rec.Signal.Symbol)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; another path may have resolved it already.
	rec, err = m.store.GetSignal(ctx, id)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", id, err)
	}
	if rec.Status != storage.StatusActive {
		m.log.Warn().Str("id", id).Str("status", string(rec.Status)).
			Msg("resolve ignored, signal not active")
		return nil
	}

	if err := m.store.UpdateSignal(ctx, id, outcome); err != nil {
		return fmt.Errorf("resolve %s: %w", id, err)
	}

	setup := rec.Signal.Setup
	pnl := 0.0
	if setup.EntryPrice != 0 {
		pnl = (exitPrice - setup.EntryPrice) / setup.EntryPrice * 100
		if setup.Direction == smc.DirectionSell {
			pnl = -pnl
		}
	}
	now := m.now()
	trade := storage.TradeRecord{
		SignalID:   id,
		Symbol:     rec.Signal.Symbol,
		Strategy:   rec.Signal.Strategy,
		Direction:  string(setup.Direction),
		EntryPrice: setup.EntryPrice,
		ExitPrice:  exitPrice,
		PnLPercent: pnl,
		Outcome:    outcome,
		Duration:   now.Sub(rec.Signal.CreatedAt),
		OpenedAt:   rec.Signal.CreatedAt,
		ClosedAt:   now,
	}
	if err := m.store.ArchiveTrade(ctx, trade); err != nil {
		m.log.Error().Err(err).Str("id", id).Msg("trade archive failed")
	}

	m.log.Info().Str("id", id).Str("symbol", rec.Signal.Symbol).
		Str("outcome", string(outcome)).Float64("pnl_pct", pnl).
		Msg("signal resolved")

	rec.Status = outcome
	if m.notifier != nil {
		m.notifier.NotifySignal("signal_"+string(outcome), rec)
	}
	return nil
}

// dailyMaintenance drops pending setups that have expired.
func (m *Manager) dailyMaintenance(ctx context.Context) {
	setups, err := m.store.ListPendingSetups(ctx, "")
	if err != nil {
		m.log.Error().Err(err).Msg("maintenance: list setups failed")
		return
	}
	now := m.now().UnixMilli()
	removed := 0
	for _, s := range setups {
		if s.Setup.ExpiresAt > 0 && now > s.Setup.ExpiresAt {
			if err := m.store.DeletePendingSetup(ctx, s.ID); err == nil {
				removed++
			}
		}
	}
	m.log.Info().Int("removed", removed).Msg("daily maintenance complete")
}
