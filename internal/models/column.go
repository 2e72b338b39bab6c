package models

import (
	"errors"
	"strings"
)

// InvalidColumnMessage is the client facing message for a rejected col_name
const InvalidColumnMessage = "Invalid col_name. Must be one of: 'altitude', 'speed', 'azimuth', or None."

// ErrInvalidColumn is returned for a col_name outside the allowed set
var ErrInvalidColumn = errors.New("invalid col_name")

// ValueColumn selects the numeric field averaged per hex cell
type ValueColumn int

const (
	ColumnNone ValueColumn = iota
	ColumnAltitude
	ColumnSpeed
	ColumnAzimuth
)

// ParseValueColumn converts a col_name query value into a ValueColumn.
// An empty value and the literals "None" and "null" select no column.
func ParseValueColumn(s string) (ValueColumn, error) {
	switch strings.TrimSpace(s) {
	case "", "None", "none", "null":
		return ColumnNone, nil
	case "altitude":
		return ColumnAltitude, nil
	case "speed":
		return ColumnSpeed, nil
	case "azimuth":
		return ColumnAzimuth, nil
	}
	return ColumnNone, ErrInvalidColumn
}

// String returns the col_name spelling of the column
func (c ValueColumn) String() string {
	switch c {
	case ColumnAltitude:
		return "altitude"
	case ColumnSpeed:
		return "speed"
	case ColumnAzimuth:
		return "azimuth"
	default:
		return "none"
	}
}
