package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"signal-scanner/internal/strategy"
)

// PostgresConfig holds database connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// PostgresStore persists signals, setups and trades in PostgreSQL.
// Signal and setup payloads are stored as JSONB alongside the columns
// queries filter on.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresStore connects the pool and creates the tables if missing.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, logger zerolog.Logger) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{
		pool: pool,
		log:  logger.With().Str("component", "PostgresStore").Logger(),
	}
	if err := s.bootstrap(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s.log.Info().Str("database", cfg.Database).Msg("connected to PostgreSQL")
	return s, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) bootstrap(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			strategy TEXT NOT NULL,
			status TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol_status ON signals (symbol, status)`,
		`CREATE TABLE IF NOT EXISTS pending_setups (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			strategy TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_setups_symbol ON pending_setups (symbol)`,
		`CREATE TABLE IF NOT EXISTS trade_history (
			signal_id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			strategy TEXT NOT NULL,
			direction TEXT NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			exit_price DOUBLE PRECISION NOT NULL,
			pnl_percent DOUBLE PRECISION NOT NULL,
			outcome TEXT NOT NULL,
			duration_ms BIGINT NOT NULL,
			opened_at TIMESTAMPTZ NOT NULL,
			closed_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateSignal(ctx context.Context, rec SignalRecord) error {
	payload, err := json.Marshal(rec.Signal)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO signals (id, symbol, strategy, status, payload, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		rec.Signal.ID, rec.Signal.Symbol, rec.Signal.Strategy, rec.Status, payload, rec.Signal.CreatedAt)
	if err != nil {
		return fmt.Errorf("create signal: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateSignal(ctx context.Context, id string, status Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE signals SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update signal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetSignal(ctx context.Context, id string) (SignalRecord, error) {
	var rec SignalRecord
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT status, payload, updated_at FROM signals WHERE id = $1`, id).
		Scan(&rec.Status, &payload, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SignalRecord{}, ErrNotFound
	}
	if err != nil {
		return SignalRecord{}, fmt.Errorf("get signal: %w", err)
	}
	if err := json.Unmarshal(payload, &rec.Signal); err != nil {
		return SignalRecord{}, fmt.Errorf("unmarshal signal: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListSignals(ctx context.Context, f SignalFilter) ([]SignalRecord, error) {
	query := `SELECT status, payload, updated_at FROM signals WHERE 1=1`
	args := []any{}
	if f.Symbol != "" {
		args = append(args, f.Symbol)
		query += fmt.Sprintf(" AND symbol = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		var payload []byte
		if err := rows.Scan(&rec.Status, &payload, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		if err := json.Unmarshal(payload, &rec.Signal); err != nil {
			return nil, fmt.Errorf("unmarshal signal: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreatePendingSetup(ctx context.Context, setup strategy.PendingSetup) error {
	payload, err := json.Marshal(setup)
	if err != nil {
		return fmt.Errorf("marshal setup: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO pending_setups (id, symbol, strategy, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		setup.ID, setup.Symbol, setup.Strategy, payload, setup.CreatedAt)
	if err != nil {
		return fmt.Errorf("create pending setup: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdatePendingSetup(ctx context.Context, setup strategy.PendingSetup) error {
	payload, err := json.Marshal(setup)
	if err != nil {
		return fmt.Errorf("marshal setup: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE pending_setups SET payload = $2 WHERE id = $1`, setup.ID, payload)
	if err != nil {
		return fmt.Errorf("update pending setup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeletePendingSetup(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM pending_setups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pending setup: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPendingSetups(ctx context.Context, symbol string) ([]strategy.PendingSetup, error) {
	query := `SELECT payload FROM pending_setups`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = $1`
		args = append(args, symbol)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending setups: %w", err)
	}
	defer rows.Close()

	var out []strategy.PendingSetup
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan setup: %w", err)
		}
		var setup strategy.PendingSetup
		if err := json.Unmarshal(payload, &setup); err != nil {
			return nil, fmt.Errorf("unmarshal setup: %w", err)
		}
		out = append(out, setup)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ArchiveTrade(ctx context.Context, rec TradeRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trade_history
			(signal_id, symbol, strategy, direction, entry_price, exit_price,
			 pnl_percent, outcome, duration_ms, opened_at, closed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (signal_id) DO NOTHING`,
		rec.SignalID, rec.Symbol, rec.Strategy, rec.Direction, rec.EntryPrice,
		rec.ExitPrice, rec.PnLPercent, rec.Outcome, rec.Duration.Milliseconds(),
		rec.OpenedAt, rec.ClosedAt)
	if err != nil {
		return fmt.Errorf("archive trade: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTrades(ctx context.Context, limit int) ([]TradeRecord, error) {
	query := `SELECT signal_id, symbol, strategy, direction, entry_price, exit_price,
		pnl_percent, outcome, duration_ms, opened_at, closed_at
		FROM trade_history ORDER BY closed_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		var durationMS int64
		if err := rows.Scan(&rec.SignalID, &rec.Symbol, &rec.Strategy, &rec.Direction,
			&rec.EntryPrice, &rec.ExitPrice, &rec.PnLPercent, &rec.Outcome,
			&durationMS, &rec.OpenedAt, &rec.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
