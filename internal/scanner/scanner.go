// Package scanner runs the scan loop: filter the instrument universe by
// market hours, run every enabled strategy per instrument, validate the
// candidates and hand them to the lifecycle manager.
package scanner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/lifecycle"
	"signal-scanner/internal/market"
	"signal-scanner/internal/smc"
	"signal-scanner/internal/storage"
	"signal-scanner/internal/strategy"
	"signal-scanner/internal/validator"
)

// Config tunes the scan loop.
type Config struct {
	// Interval is the scan cadence.
	Interval time.Duration
	// Workers is the per-cycle analysis concurrency across instruments.
	Workers int
	// ScanTimeout bounds one full cycle.
	ScanTimeout time.Duration
}

// DefaultConfig returns the standard scanner tuning.
func DefaultConfig() Config {
	return Config{
		Interval:    time.Minute,
		Workers:     4,
		ScanTimeout: 5 * time.Minute,
	}
}

// Summary describes the most recent completed scan cycle.
type Summary struct {
	StartedAt      time.Time          `json:"started_at"`
	Duration       time.Duration      `json:"duration"`
	Scanned        int                `json:"scanned"`
	Skipped        int                `json:"skipped"`
	SignalsCreated int                `json:"signals_created"`
	PendingSetups  int                `json:"pending_setups"`
	Failures       []strategy.Failure `json:"failures,omitempty"`
}

// Scanner drives scan cycles over the instrument universe. A reentrancy
// guard skips a tick while the previous cycle is still running;
// overlapping triggers are skipped, not queued, and in-flight work is
// never cancelled.
type Scanner struct {
	cfg       Config
	universe  []market.Instrument
	registry  *strategy.Registry
	lifecycle *lifecycle.Manager
	store     storage.Store
	validate  validator.Validator
	log       zerolog.Logger
	now       func() time.Time

	running  atomic.Bool
	scanning atomic.Bool

	mu      sync.RWMutex
	summary Summary

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New wires a scanner. validate may be nil when no AI validator is
// configured.
func New(cfg Config, universe []market.Instrument, registry *strategy.Registry, lc *lifecycle.Manager, store storage.Store, validate validator.Validator, logger zerolog.Logger) *Scanner {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = def.ScanTimeout
	}
	return &Scanner{
		cfg:       cfg,
		universe:  universe,
		registry:  registry,
		lifecycle: lc,
		store:     store,
		validate:  validate,
		log:       logger.With().Str("component", "Scanner").Logger(),
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// SetNow overrides the clock, for tests.
func (s *Scanner) SetNow(now func() time.Time) { s.now = now }

// Start launches the scan loop.
func (s *Scanner) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go s.loop()
	s.log.Info().Dur("interval", s.cfg.Interval).Int("workers", s.cfg.Workers).
		Int("instruments", len(s.universe)).Msg("scanner started")
}

// Stop halts the loop. A cycle in flight is allowed to finish.
func (s *Scanner) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.stopCh)
	s.wg.Wait()
	s.log.Info().Msg("scanner stopped")
}

// Running reports whether the loop is active.
func (s *Scanner) Running() bool { return s.running.Load() }

// Scanning reports whether a cycle is currently in flight.
func (s *Scanner) Scanning() bool { return s.scanning.Load() }

// LastSummary returns the most recent completed cycle's summary.
func (s *Scanner) LastSummary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

func (s *Scanner) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// First cycle immediately; the ticker covers the rest.
	s.tick()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scanner) tick() {
	if !s.scanning.CompareAndSwap(false, true) {
		s.log.Warn().Msg("previous scan still running, tick skipped")
		return
	}
	defer s.scanning.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ScanTimeout)
	defer cancel()
	s.ScanOnce(ctx)
}

// ScanOnce runs one full cycle over the universe and records its
// summary. Per-instrument failures never abort the cycle.
func (s *Scanner) ScanOnce(ctx context.Context) Summary {
	started := s.now()

	filtered := market.FilterTradeable(s.universe, started)
	for _, skipped := range filtered.Skipped {
		s.log.Debug().Str("symbol", skipped.Instrument.Symbol).Str("reason", skipped.Reason).
			Msg("instrument skipped, market closed")
	}

	jobs := make(chan market.Instrument)
	var (
		wg      sync.WaitGroup
		signals atomic.Int64
		pending atomic.Int64
	)
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inst := range jobs {
				created, queued := s.ScanSymbol(ctx, inst)
				signals.Add(int64(created))
				pending.Add(int64(queued))
			}
		}()
	}
	for _, inst := range filtered.Tradeable {
		select {
		case <-ctx.Done():
		case jobs <- inst:
		}
	}
	close(jobs)
	wg.Wait()

	summary := Summary{
		StartedAt:      started,
		Duration:       s.now().Sub(started),
		Scanned:        len(filtered.Tradeable),
		Skipped:        len(filtered.Skipped),
		SignalsCreated: int(signals.Load()),
		PendingSetups:  int(pending.Load()),
		Failures:       s.registry.Failures(),
	}
	s.mu.Lock()
	s.summary = summary
	s.mu.Unlock()

	s.log.Info().Int("scanned", summary.Scanned).Int("skipped", summary.Skipped).
		Int("signals", summary.SignalsCreated).Int("pending", summary.PendingSetups).
		Dur("duration", summary.Duration).Msg("scan cycle complete")
	return summary
}

// ScanSymbol analyzes one instrument and routes the results. Returns the
// number of signals activated and setups queued.
func (s *Scanner) ScanSymbol(ctx context.Context, inst market.Instrument) (int, int) {
	// Cheap pre-check; the lifecycle manager repeats it atomically.
	if s.inCooldown(ctx, inst.Symbol) {
		s.log.Debug().Str("symbol", inst.Symbol).Msg("symbol in cooldown, analysis skipped")
		return 0, 0
	}

	res := s.registry.AnalyzeAll(ctx, inst)

	created := 0
	for _, sig := range res.Signals {
		sig, keep := s.applyValidation(ctx, sig)
		if !keep {
			continue
		}
		ok, err := s.lifecycle.TryActivate(ctx, sig)
		if err != nil {
			s.log.Error().Err(err).Str("symbol", inst.Symbol).Msg("signal activation failed")
			continue
		}
		if ok {
			created++
		}
	}

	if err := s.lifecycle.SyncPending(ctx, inst.Symbol, res.PendingSetups); err != nil {
		s.log.Warn().Err(err).Str("symbol", inst.Symbol).Msg("pending setup sync failed")
	}
	return created, len(res.PendingSetups)
}

// inCooldown reports whether the symbol has an active signal younger
// than the activation cooldown. An older active signal does not block;
// the symbol is eligible for a fresh analysis.
func (s *Scanner) inCooldown(ctx context.Context, symbol string) bool {
	active, err := s.store.ListSignals(ctx, storage.SignalFilter{
		Symbol: symbol,
		Status: storage.StatusActive,
	})
	if err != nil {
		// Let the lifecycle manager make the authoritative call.
		return false
	}
	now := s.now()
	for _, rec := range active {
		if now.Sub(rec.Signal.CreatedAt) < s.lifecycle.Cooldown() {
			return true
		}
	}
	return false
}

// applyValidation runs the optional AI validator. A skip discards the
// candidate; otherwise the confidence adjustment is applied and clamped.
// A failed validation degrades to proceed-unchanged.
func (s *Scanner) applyValidation(ctx context.Context, sig strategy.Signal) (strategy.Signal, bool) {
	if s.validate == nil {
		return sig, true
	}

	assessment, err := s.validate.Validate(ctx, sig)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", sig.Symbol).Msg("validation failed, proceeding unadjusted")
		return sig, true
	}

	if assessment.Recommendation == validator.RecommendSkip {
		s.log.Info().Str("symbol", sig.Symbol).Strs("concerns", assessment.Concerns).
			Msg("candidate vetoed by validator")
		return sig, false
	}
	if assessment.ConfidenceAdjustment != 0 {
		sig.Setup.Confidence = smc.ClampConfidence(sig.Setup.Confidence + assessment.ConfidenceAdjustment)
		sig.Setup.Reasoning = append(sig.Setup.Reasoning, assessment.Strengths...)
		sig.Setup.Reasoning = append(sig.Setup.Reasoning, assessment.Concerns...)
	}
	return sig, true
}
