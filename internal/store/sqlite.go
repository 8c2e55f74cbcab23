package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sells-group/city-pulse/internal/db"
	"github.com/sells-group/city-pulse/internal/model"
	"github.com/sells-group/city-pulse/internal/schema"
)

const driverSQLite = "sqlite"

// SQLiteStore implements Store using modernc.org/sqlite. Geometry is stored
// as WKT text.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection keeps the per-connection pragmas in force.
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn}, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	names, err := migrationNames(driverSQLite)
	if err != nil {
		return err
	}
	for _, name := range names {
		data, err := migrationFS.ReadFile(migrationPath(driverSQLite, name))
		if err != nil {
			return eris.Wrapf(err, "sqlite: read migration %s", name)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return eris.Wrapf(err, "sqlite: apply migration %s", name)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ClearTable deletes every row of table and of the tables that reference it,
// in one transaction. Ids are explicit INTEGER PRIMARY KEYs, so there is no
// sequence to reset.
func (s *SQLiteStore) ClearTable(ctx context.Context, table string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: begin clear %s", table)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, t := range append(schema.Dependents(table), table) {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", db.Quote(t))); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", t)
		}
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrapf(err, "sqlite: commit clear %s", table)
	}
	return nil
}

// InsertBatch inserts rows in chunks inside one transaction.
func (s *SQLiteStore) InsertBatch(ctx context.Context, t schema.Table, rows [][]any, batchSize int) (int64, error) {
	if err := checkTable(t.Name); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	log := zap.L().With(zap.String("component", "store.insert"), zap.String("table", t.Name))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: begin insert %s", t.Name)
	}
	defer tx.Rollback() //nolint:errcheck

	size := min(max(batchSize, 1), db.SQLite.MaxRows(len(t.Columns)))

	var total int64
	for i, chunk := range db.Chunks(rows, size) {
		start := time.Now()
		query, args, err := db.InsertSQL(db.SQLite, t, chunk)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isSQLiteConflict(err) {
				return 0, conflict(t.Name, driverSQLite, err)
			}
			return 0, eris.Wrapf(err, "sqlite: insert %s chunk %d", t.Name, i)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: rows affected %s", t.Name)
		}
		total += n
		recordInsert(t.Name, driverSQLite, n, time.Since(start))
		log.Debug("inserted chunk", zap.Int("chunk", i), zap.Int64("rows", n))
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: commit insert %s", t.Name)
	}
	return total, nil
}

func isSQLiteConflict(err error) bool {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return false
	}
	switch sqErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return sqErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(sqErr.Error(), "UNIQUE constraint failed")
}

// Regions lists regions in id order.
func (s *SQLiteStore) Regions(ctx context.Context) ([]model.Region, error) {
	return listSQLite(ctx, s.db, schema.RegionTable.Table, scanRegion)
}

// Brands lists brands in id order.
func (s *SQLiteStore) Brands(ctx context.Context) ([]model.Brand, error) {
	return listSQLite(ctx, s.db, schema.BrandTable.Table, scanBrand)
}

// DiningVenues lists dining venues in id order.
func (s *SQLiteStore) DiningVenues(ctx context.Context) ([]model.DiningVenue, error) {
	return listSQLite(ctx, s.db, schema.DiningTable.Table, scanDining)
}

// LeisureVenues lists leisure venues in id order.
func (s *SQLiteStore) LeisureVenues(ctx context.Context) ([]model.LeisureVenue, error) {
	return listSQLite(ctx, s.db, schema.LeisureTable.Table, scanLeisure)
}

// Signals lists signal records in id order.
func (s *SQLiteStore) Signals(ctx context.Context) ([]model.SignalRecord, error) {
	return listSQLite(ctx, s.db, schema.SignalTable.Table, scanSignal)
}

// Alerts lists alerts in id order.
func (s *SQLiteStore) Alerts(ctx context.Context) ([]model.Alert, error) {
	return listSQLite(ctx, s.db, schema.AlertTable.Table, scanAlert)
}

func listSQLite[T any](ctx context.Context, conn *sql.DB, t schema.Table, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := conn.QueryContext(ctx, db.SelectSQL(db.SQLite, t))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list %s", t.Name)
	}
	defer rows.Close() //nolint:errcheck

	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", t.Name)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: iterate %s", t.Name)
	}
	return out, nil
}
