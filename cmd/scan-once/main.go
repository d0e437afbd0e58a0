// scan-once runs a single scan cycle against the configured (or
// simulated) data source and prints the summary, for debugging detector
// behavior without starting the full service.
package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"signal-scanner/config"
	"signal-scanner/internal/lifecycle"
	"signal-scanner/internal/logging"
	"signal-scanner/internal/market"
	"signal-scanner/internal/scanner"
	"signal-scanner/internal/smc"
	"signal-scanner/internal/storage"
	"signal-scanner/internal/strategy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Pretty: true})

	var provider market.CandleProvider
	if cfg.Provider.MockMode {
		provider = market.NewMockProvider()
	} else {
		provider = market.NewHTTPProvider(market.HTTPProviderConfig{
			BaseURL: cfg.Provider.BaseURL,
			APIKey:  cfg.Provider.APIKey,
		}, logger)
	}

	store := storage.NewMemoryStore()
	lc := lifecycle.NewManager(lifecycle.Config{}, store, provider, nil, nil, logger)

	registry := strategy.NewRegistry(logger)
	registry.Register(strategy.NewSMCStrategy(strategy.SMCConfig{
		PoolLookback: cfg.Scanner.PoolLookback,
		Entry:        smc.EntryConfig{Expiry: time.Duration(cfg.Lifecycle.ExpiryHours) * time.Hour},
	}, provider, logger))

	scan := scanner.New(scanner.Config{
		Workers:     cfg.Scanner.WorkerCount,
		ScanTimeout: time.Duration(cfg.Scanner.TimeoutSeconds) * time.Second,
	}, market.DefaultUniverse(), registry, lc, store, nil, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary := scan.ScanOnce(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(summary)

	signals, _ := store.ListSignals(ctx, storage.SignalFilter{})
	_ = enc.Encode(signals)
}
