package models

import (
	"database/sql"
	"math"
)

// Record represents a single GPS telemetry sample of a trip
type Record struct {
	ID        string          `json:"id" db:"trip_id"`
	Latitude  float64         `json:"latitude" db:"latitude"`
	Longitude float64         `json:"longitude" db:"longitude"`
	Altitude  sql.NullFloat64 `json:"altitude" db:"altitude"`
	Speed     sql.NullFloat64 `json:"speed" db:"speed"`
	Azimuth   sql.NullFloat64 `json:"azimuth" db:"azimuth"`
}

// Value returns the measurement selected by col.
// The second result is false when the record carries no value for col.
func (r Record) Value(col ValueColumn) (float64, bool) {
	var v sql.NullFloat64
	switch col {
	case ColumnAltitude:
		v = r.Altitude
	case ColumnSpeed:
		v = r.Speed
	case ColumnAzimuth:
		v = r.Azimuth
	default:
		return 0, false
	}
	if !v.Valid || math.IsNaN(v.Float64) {
		return 0, false
	}
	return v.Float64, true
}
