package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/city-pulse/internal/db"
	"github.com/sells-group/city-pulse/internal/model"
	"github.com/sells-group/city-pulse/internal/schema"
)

const (
	driverPostgres = "postgres"

	// uniqueViolation is the SQLSTATE for a duplicate key.
	uniqueViolation = "23505"

	migrationLockID = 5318008
)

// PostgresStore implements Store on PostGIS using a pgx pool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres connects to the database at connString.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.NewPool(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. The caller keeps ownership.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate applies pending embedded migrations under an advisory lock.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "store.migrate"), zap.String("driver", driverPostgres))

	if _, err := s.pool.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return eris.Wrap(err, "postgres: acquire migration lock")
	}
	defer func() {
		if _, err := s.pool.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			log.Warn("postgres: release migration lock", zap.Error(err))
		}
	}()

	if _, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
	filename   TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return eris.Wrap(err, "postgres: ensure migration table")
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	names, err := migrationNames(driverPostgres)
	if err != nil {
		return err
	}
	for _, name := range names {
		if applied[name] {
			continue
		}
		data, err := migrationFS.ReadFile(migrationPath(driverPostgres, name))
		if err != nil {
			return eris.Wrapf(err, "postgres: read migration %s", name)
		}
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return eris.Wrapf(err, "postgres: apply migration %s", name)
		}
		if _, err := s.pool.Exec(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", name); err != nil {
			return eris.Wrapf(err, "postgres: record migration %s", name)
		}
		log.Info("migration applied", zap.String("file", name))
	}
	return nil
}

func (s *PostgresStore) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan migration row")
		}
		applied[name] = true
	}
	return applied, eris.Wrap(rows.Err(), "postgres: iterate migrations")
}

// ClearTable truncates table and restarts its identity.
func (s *PostgresStore) ClearTable(ctx context.Context, table string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	sql := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", db.Quote(table))
	if _, err := s.pool.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "postgres: clear %s", table)
	}
	return nil
}

// InsertBatch inserts rows in one transaction. Tables with geometry use
// multi-row INSERT so the WKT can be parsed server side; plain tables use COPY.
func (s *PostgresStore) InsertBatch(ctx context.Context, t schema.Table, rows [][]any, batchSize int) (int64, error) {
	if err := checkTable(t.Name); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	log := zap.L().With(zap.String("component", "store.insert"), zap.String("table", t.Name))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: begin insert %s", t.Name)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	size := min(max(batchSize, 1), db.Postgres.MaxRows(len(t.Columns)))
	copyable := !hasGeometry(t)

	var total int64
	for i, chunk := range db.Chunks(rows, size) {
		start := time.Now()
		var n int64
		if copyable {
			n, err = db.CopyFrom(ctx, tx, t.Name, t.ColumnNames(), chunk)
		} else {
			n, err = execInsert(ctx, tx, t, chunk)
		}
		if err != nil {
			if isPgConflict(err) {
				return 0, conflict(t.Name, driverPostgres, err)
			}
			return 0, eris.Wrapf(err, "postgres: insert %s chunk %d", t.Name, i)
		}
		total += n
		recordInsert(t.Name, driverPostgres, n, time.Since(start))
		log.Debug("inserted chunk", zap.Int("chunk", i), zap.Int64("rows", n))
	}

	if err := tx.Commit(ctx); err != nil {
		if isPgConflict(err) {
			return 0, conflict(t.Name, driverPostgres, err)
		}
		return 0, eris.Wrapf(err, "postgres: commit insert %s", t.Name)
	}
	return total, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func execInsert(ctx context.Context, ex execer, t schema.Table, rows [][]any) (int64, error) {
	sql, args, err := db.InsertSQL(db.Postgres, t, rows)
	if err != nil {
		return 0, err
	}
	tag, err := ex.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func isPgConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) && !errors.As(eris.Cause(err), &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation
}

func hasGeometry(t schema.Table) bool {
	for _, c := range t.Columns {
		if c.Geometry {
			return true
		}
	}
	return false
}

// Regions lists regions in id order.
func (s *PostgresStore) Regions(ctx context.Context) ([]model.Region, error) {
	return listPostgres(ctx, s.pool, schema.RegionTable.Table, scanRegion)
}

// Brands lists brands in id order.
func (s *PostgresStore) Brands(ctx context.Context) ([]model.Brand, error) {
	return listPostgres(ctx, s.pool, schema.BrandTable.Table, scanBrand)
}

// DiningVenues lists dining venues in id order.
func (s *PostgresStore) DiningVenues(ctx context.Context) ([]model.DiningVenue, error) {
	return listPostgres(ctx, s.pool, schema.DiningTable.Table, scanDining)
}

// LeisureVenues lists leisure venues in id order.
func (s *PostgresStore) LeisureVenues(ctx context.Context) ([]model.LeisureVenue, error) {
	return listPostgres(ctx, s.pool, schema.LeisureTable.Table, scanLeisure)
}

// Signals lists signal records in id order.
func (s *PostgresStore) Signals(ctx context.Context) ([]model.SignalRecord, error) {
	return listPostgres(ctx, s.pool, schema.SignalTable.Table, scanSignal)
}

// Alerts lists alerts in id order.
func (s *PostgresStore) Alerts(ctx context.Context) ([]model.Alert, error) {
	return listPostgres(ctx, s.pool, schema.AlertTable.Table, scanAlert)
}

func listPostgres[T any](ctx context.Context, pool db.Pool, t schema.Table, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := pool.Query(ctx, db.SelectSQL(db.Postgres, t))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list %s", t.Name)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", t.Name)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: iterate %s", t.Name)
	}
	return out, nil
}

// Pool returns the underlying pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// Close releases the pool when the store owns it.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func migrationNames(driver string) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations/"+driver)
	if err != nil {
		return nil, eris.Wrapf(err, "store: read %s migrations", driver)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func migrationPath(driver, name string) string {
	return "migrations/" + driver + "/" + name
}
