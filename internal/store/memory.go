package store

import (
	"context"

	"github.com/sells-group/city-pulse/internal/model"
)

// Memory is a Reader over a dataset already in memory, such as one read back
// from an export directory.
type Memory struct {
	ds *model.Dataset
}

// NewMemory wraps ds. The dataset is not copied.
func NewMemory(ds *model.Dataset) *Memory {
	return &Memory{ds: ds}
}

func (m *Memory) Regions(context.Context) ([]model.Region, error) { return m.ds.Regions, nil }
func (m *Memory) Brands(context.Context) ([]model.Brand, error)   { return m.ds.Brands, nil }
func (m *Memory) DiningVenues(context.Context) ([]model.DiningVenue, error) {
	return m.ds.DiningVenues, nil
}
func (m *Memory) LeisureVenues(context.Context) ([]model.LeisureVenue, error) {
	return m.ds.LeisureVenues, nil
}
func (m *Memory) Signals(context.Context) ([]model.SignalRecord, error) { return m.ds.Signals, nil }
func (m *Memory) Alerts(context.Context) ([]model.Alert, error)         { return m.ds.Alerts, nil }
