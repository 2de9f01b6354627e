package pg

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/tintero/internal/store"
)

// Migrate aplica las migraciones *_up.sql del FS embebido en orden
// lexicográfico, registrando cada una en schema_migrations para no
// reaplicarla.
func (s *Store) Migrate(ctx context.Context, fsys fs.FS) error {
	const qLedger = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    name       text        PRIMARY KEY,
    applied_at timestamptz NOT NULL DEFAULT now()
)`
	if _, err := s.pool.Exec(ctx, qLedger); err != nil {
		return &store.StorageError{Op: "migrate ledger", Err: err}
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return &store.StorageError{Op: "migrate read dir", Err: err}
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), "_up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var applied bool
		const qSeen = `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`
		if err := s.pool.QueryRow(ctx, qSeen, name).Scan(&applied); err != nil {
			return &store.StorageError{Op: "migrate check", Err: err}
		}
		if applied {
			continue
		}

		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return &store.StorageError{Op: "migrate read", Err: err}
		}

		start := time.Now()
		if _, err := s.pool.Exec(ctx, string(b)); err != nil {
			return &store.StorageError{Op: fmt.Sprintf("migrate exec %s", name), Err: err}
		}
		const qMark = `INSERT INTO schema_migrations (name) VALUES ($1)`
		if _, err := s.pool.Exec(ctx, qMark, name); err != nil {
			return &store.StorageError{Op: "migrate mark", Err: err}
		}
		s.log.Info("migration_applied",
			zap.String("name", name),
			zap.Duration("took", time.Since(start).Truncate(time.Millisecond)))
	}
	return nil
}
