// Package pg implementa store.Store sobre PostgreSQL con pgxpool.
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dropDatabas3/tintero/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Config es el tuning opcional del pool.
type Config struct {
	MaxConns        int
	MinConns        int
	ConnMaxLifetime string
}

func New(ctx context.Context, dsn string, cfg Config, log *zap.Logger) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
			pcfg.MaxConnIdleTime = d
		}
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 8
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	// Arranque no bloqueante: si la base está caída avisamos y seguimos.
	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg_pool_startup_ping_failed", zap.Error(err))
	} else {
		log.Info("pg_pool_ready", zap.Int32("max_conns", pcfg.MaxConns))
	}

	return &Store{pool: pool, log: log}, nil
}

// Pool expone el pool interno para usos avanzados (metrics/migraciones).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// PoolStats devuelve un snapshot del estado del pool.
func (s *Store) PoolStats() *pgxpool.Stat {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Stat()
}

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// ====================== TX ======================

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return &store.StorageError{Op: "commit", Err: err}
	}
	return nil
}

// Rollback tolera la tx ya cerrada para permitir defer incondicional.
func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return &store.StorageError{Op: "rollback", Err: err}
	}
	return nil
}

func (s *Store) BeginTx(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, &store.StorageError{Op: "begin", Err: err}
	}
	return &pgTx{tx: tx}, nil
}

// ====================== SUBSCRIPTIONS ======================

func (s *Store) InsertSubscriber(ctx context.Context, tx store.Tx, email, name string) (string, error) {
	const q = `
INSERT INTO subscriptions (id, email, name, subscribed_at, status)
VALUES (gen_random_uuid(), $1, $2, now(), 'pending_confirmation')
RETURNING id::text`
	var id string
	if err := tx.(*pgTx).tx.QueryRow(ctx, q, email, name).Scan(&id); err != nil {
		return "", &store.StorageError{Op: "insert subscriber", Err: err}
	}
	return id, nil
}

func (s *Store) StoreToken(ctx context.Context, tx store.Tx, subscriberID, token string) error {
	const q = `
INSERT INTO subscription_tokens (subscription_token, subscriber_id)
VALUES ($1, $2)`
	if _, err := tx.(*pgTx).tx.Exec(ctx, q, token, subscriberID); err != nil {
		return &store.StorageError{Op: "store token", Err: err}
	}
	return nil
}

func (s *Store) FindSubscriberByToken(ctx context.Context, token string) (string, error) {
	const q = `SELECT subscriber_id::text FROM subscription_tokens WHERE subscription_token = $1`
	var id string
	if err := s.pool.QueryRow(ctx, q, token).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", &store.StorageError{Op: "find subscriber by token", Err: err}
	}
	return id, nil
}

func (s *Store) ConfirmSubscriber(ctx context.Context, subscriberID string) error {
	const q = `UPDATE subscriptions SET status = 'confirmed' WHERE id = $1`
	if _, err := s.pool.Exec(ctx, q, subscriberID); err != nil {
		return &store.StorageError{Op: "confirm subscriber", Err: err}
	}
	return nil
}

func (s *Store) ListConfirmedSubscriberEmails(ctx context.Context) ([]string, error) {
	const q = `SELECT email FROM subscriptions WHERE status = 'confirmed'`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, &store.StorageError{Op: "list confirmed", Err: err}
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, &store.StorageError{Op: "list confirmed", Err: err}
		}
		out = append(out, email)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.StorageError{Op: "list confirmed", Err: err}
	}
	return out, nil
}

// ====================== EDITORS ======================

func (s *Store) GetEditorByUsername(ctx context.Context, username string) (*store.Editor, error) {
	const q = `SELECT user_id::text, username, password_hash FROM editors WHERE username = $1`
	var ed store.Editor
	if err := s.pool.QueryRow(ctx, q, username).Scan(&ed.UserID, &ed.Username, &ed.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, &store.StorageError{Op: "get editor", Err: err}
	}
	return &ed, nil
}
