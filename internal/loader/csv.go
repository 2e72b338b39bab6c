// Package loader reads telemetry records from the CSV dataset.
package loader

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jengzang/hexmap-backend-go/internal/models"
	"github.com/jengzang/hexmap-backend-go/internal/spatial"
)

// ErrSourceUnavailable marks a missing or malformed record source
var ErrSourceUnavailable = errors.New("record source unavailable")

// Loader produces the full set of records for one aggregation
type Loader interface {
	Load(ctx context.Context) ([]models.Record, error)
}

// columnAliases maps dataset headers to canonical field names
var columnAliases = map[string]string{
	"randomized_id": "id",
	"lat":           "latitude",
	"lng":           "longitude",
	"alt":           "altitude",
	"spd":           "speed",
	"azm":           "azimuth",
}

// CSVLoader reads records from a CSV file on every call to Load
type CSVLoader struct {
	path string
}

// NewCSVLoader creates a loader for the CSV file at path
func NewCSVLoader(path string) *CSVLoader {
	return &CSVLoader{path: path}
}

// Load reads the whole file. Any malformed row fails the load.
func (l *CSVLoader) Load(ctx context.Context) ([]models.Record, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer f.Close()

	return ReadCSV(ctx, f)
}

// ReadCSV parses records from r. The first row must be a header.
func ReadCSV(ctx context.Context, r io.Reader) ([]models.Record, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrSourceUnavailable, err)
	}
	idx, err := indexHeader(header)
	if err != nil {
		return nil, err
	}

	var records []models.Record
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrSourceUnavailable, line, err)
		}
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rec, err := parseRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrSourceUnavailable, line, err)
		}
		records = append(records, rec)
	}

	if records == nil {
		records = []models.Record{}
	}
	return records, nil
}

func indexHeader(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if canonical, ok := columnAliases[name]; ok {
			name = canonical
		}
		idx[name] = i
	}
	for _, required := range []string{"id", "latitude", "longitude"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrSourceUnavailable, required)
		}
	}
	return idx, nil
}

func parseRow(row []string, idx map[string]int) (models.Record, error) {
	field := func(name string) (string, bool) {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}

	var rec models.Record
	id, _ := field("id")
	if id == "" {
		return rec, errors.New("empty id")
	}
	rec.ID = id

	var err error
	latStr, _ := field("latitude")
	if rec.Latitude, err = strconv.ParseFloat(latStr, 64); err != nil {
		return rec, fmt.Errorf("invalid latitude %q", latStr)
	}
	lngStr, _ := field("longitude")
	if rec.Longitude, err = strconv.ParseFloat(lngStr, 64); err != nil {
		return rec, fmt.Errorf("invalid longitude %q", lngStr)
	}
	if !spatial.ValidCoordinate(rec.Latitude, rec.Longitude) {
		return rec, fmt.Errorf("coordinate (%f, %f) out of range", rec.Latitude, rec.Longitude)
	}

	if rec.Altitude, err = optionalFloat(field("altitude")); err != nil {
		return rec, fmt.Errorf("invalid altitude: %v", err)
	}
	if rec.Speed, err = optionalFloat(field("speed")); err != nil {
		return rec, fmt.Errorf("invalid speed: %v", err)
	}
	if rec.Azimuth, err = optionalFloat(field("azimuth")); err != nil {
		return rec, fmt.Errorf("invalid azimuth: %v", err)
	}
	return rec, nil
}

func optionalFloat(s string, present bool) (sql.NullFloat64, error) {
	if !present || s == "" {
		return sql.NullFloat64{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return sql.NullFloat64{Float64: v, Valid: true}, nil
}
