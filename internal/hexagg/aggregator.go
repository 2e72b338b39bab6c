// Package hexagg bins GPS records into H3 hexagonal cells.
package hexagg

import (
	"errors"
	"fmt"

	"github.com/uber/h3-go/v4"

	"github.com/jengzang/hexmap-backend-go/internal/models"
)

// Resolution bounds of the H3 grid.
// 8 is roughly 460m hexagons, 9 roughly 170m.
const (
	MinResolution = 0
	MaxResolution = 15
)

// ErrInvalidResolution is returned for a resolution outside MinResolution..MaxResolution
var ErrInvalidResolution = errors.New("invalid resolution")

// ValidateResolution checks that res is a legal H3 resolution
func ValidateResolution(res int) error {
	if res < MinResolution || res > MaxResolution {
		return fmt.Errorf("%w: %d is outside %d-%d", ErrInvalidResolution, res, MinResolution, MaxResolution)
	}
	return nil
}

type cellUnit struct {
	count  int
	ids    map[string]struct{}
	sum    float64
	valued int
}

// Aggregator accumulates records into cells at a fixed resolution
type Aggregator struct {
	resolution int
	column     models.ValueColumn
	cells      map[h3.Cell]*cellUnit
}

// New creates an aggregator for the given resolution and value column
func New(resolution int, column models.ValueColumn) (*Aggregator, error) {
	if err := ValidateResolution(resolution); err != nil {
		return nil, err
	}
	return &Aggregator{
		resolution: resolution,
		column:     column,
		cells:      make(map[h3.Cell]*cellUnit),
	}, nil
}

// Add maps a record to its cell and folds it into that cell's aggregate
func (a *Aggregator) Add(r models.Record) error {
	cell, err := h3.LatLngToCell(h3.NewLatLng(r.Latitude, r.Longitude), a.resolution)
	if err != nil {
		return fmt.Errorf("failed to index record %s at (%f, %f): %w", r.ID, r.Latitude, r.Longitude, err)
	}

	unit, ok := a.cells[cell]
	if !ok {
		unit = &cellUnit{ids: make(map[string]struct{})}
		a.cells[cell] = unit
	}
	unit.count++
	unit.ids[r.ID] = struct{}{}
	if v, ok := r.Value(a.column); ok {
		unit.sum += v
		unit.valued++
	}
	return nil
}

// Buckets returns one bucket per populated cell, in no particular order
func (a *Aggregator) Buckets() ([]models.HexBucket, error) {
	buckets := make([]models.HexBucket, 0, len(a.cells))
	for cell, unit := range a.cells {
		center, err := h3.CellToLatLng(cell)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve center of cell %s: %w", cell, err)
		}

		b := models.HexBucket{
			Latitude:     center.Lat,
			Longitude:    center.Lng,
			Weight:       unit.count,
			UniqueValues: len(unit.ids),
			H3ID:         cell.String(),
		}
		if a.column != models.ColumnNone && unit.valued > 0 {
			avg := unit.sum / float64(unit.valued)
			b.AvgValue = &avg
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}

// Aggregate bins records at resolution and computes the per-cell count,
// distinct id count and, when column is not ColumnNone, the mean of column.
func Aggregate(records []models.Record, column models.ValueColumn, resolution int) ([]models.HexBucket, error) {
	agg, err := New(resolution, column)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := agg.Add(r); err != nil {
			return nil, err
		}
	}
	return agg.Buckets()
}
