// Package store persists city datasets to PostGIS or SQLite and reads them back.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/city-pulse/internal/metrics"
	"github.com/sells-group/city-pulse/internal/model"
	"github.com/sells-group/city-pulse/internal/schema"
)

var (
	// ErrConflict means an insert hit an existing key. The whole call was
	// rolled back; clear the table and retry.
	ErrConflict = eris.New("store: key conflict, rerun with --clear to replace existing rows")

	// ErrUnknownTable means a table name outside the city schema was given.
	ErrUnknownTable = eris.New("store: unknown table")
)

// DefaultBatchSize is the insert chunk size when none is configured.
const DefaultBatchSize = 1000

// Reader lists every collection in id order.
type Reader interface {
	Regions(ctx context.Context) ([]model.Region, error)
	Brands(ctx context.Context) ([]model.Brand, error)
	DiningVenues(ctx context.Context) ([]model.DiningVenue, error)
	LeisureVenues(ctx context.Context) ([]model.LeisureVenue, error)
	Signals(ctx context.Context) ([]model.SignalRecord, error)
	Alerts(ctx context.Context) ([]model.Alert, error)
}

// Writer clears and bulk-inserts tables.
type Writer interface {
	// ClearTable deletes every row of table and of the tables referencing it,
	// and resets any identity sequence.
	ClearTable(ctx context.Context, table string) error
	// InsertBatch inserts rows in chunks of batchSize inside one transaction.
	// A key conflict rolls back every chunk and returns ErrConflict.
	InsertBatch(ctx context.Context, t schema.Table, rows [][]any, batchSize int) (int64, error)
}

// Store is a migratable city database.
type Store interface {
	Reader
	Writer
	Migrate(ctx context.Context) error
	Close() error
}

// LoadOptions controls LoadDataset.
type LoadOptions struct {
	Clear     bool
	BatchSize int
}

// LoadDataset writes ds parents first. With Clear set, every table is
// emptied children first before any insert.
func LoadDataset(ctx context.Context, w Writer, ds *model.Dataset, opts LoadOptions) (map[string]int64, error) {
	log := zap.L().With(zap.String("component", "store.load"))

	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	if opts.Clear {
		for i := len(schema.LoadOrder) - 1; i >= 0; i-- {
			if err := w.ClearTable(ctx, schema.LoadOrder[i]); err != nil {
				return nil, err
			}
		}
		log.Info("cleared tables", zap.Strings("tables", schema.LoadOrder))
	}

	steps := []struct {
		table schema.Table
		rows  [][]any
	}{
		{schema.RegionTable.Table, schema.RegionTable.Rows(ds.Regions)},
		{schema.BrandTable.Table, schema.BrandTable.Rows(ds.Brands)},
		{schema.DiningTable.Table, schema.DiningTable.Rows(ds.DiningVenues)},
		{schema.LeisureTable.Table, schema.LeisureTable.Rows(ds.LeisureVenues)},
		{schema.SignalTable.Table, schema.SignalTable.Rows(ds.Signals)},
		{schema.AlertTable.Table, schema.AlertTable.Rows(ds.Alerts)},
	}

	inserted := make(map[string]int64, len(steps))
	for _, step := range steps {
		start := time.Now()
		n, err := w.InsertBatch(ctx, step.table, step.rows, opts.BatchSize)
		if err != nil {
			return inserted, err
		}
		inserted[step.table.Name] = n
		log.Info("loaded table",
			zap.String("table", step.table.Name),
			zap.Int64("rows", n),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return inserted, nil
}

// Snapshot reads every collection concurrently.
func Snapshot(ctx context.Context, r Reader) (*model.Dataset, error) {
	var ds model.Dataset
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		ds.Regions, err = r.Regions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		ds.Brands, err = r.Brands(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		ds.DiningVenues, err = r.DiningVenues(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		ds.LeisureVenues, err = r.LeisureVenues(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		ds.Signals, err = r.Signals(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		ds.Alerts, err = r.Alerts(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "store: snapshot")
	}
	return &ds, nil
}

func checkTable(name string) error {
	if !schema.Known(name) {
		return eris.Wrapf(ErrUnknownTable, "%q", name)
	}
	return nil
}

func recordInsert(table, driver string, n int64, elapsed time.Duration) {
	metrics.RowsInserted.WithLabelValues(table, driver).Add(float64(n))
	metrics.BatchDurationMs.WithLabelValues(table, driver).Observe(float64(elapsed.Milliseconds()))
}

func conflict(table, driver string, cause error) error {
	metrics.InsertConflicts.WithLabelValues(table, driver).Inc()
	zap.L().Warn("insert rolled back on key conflict",
		zap.String("table", table),
		zap.String("driver", driver),
		zap.Error(cause),
	)
	return eris.Wrapf(ErrConflict, "store: insert %s", table)
}
