package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/hexmap-backend-go/internal/database"
	"github.com/jengzang/hexmap-backend-go/internal/loader"
	"github.com/jengzang/hexmap-backend-go/internal/models"
)

// RecordRepository handles database operations for telemetry records
type RecordRepository struct {
	db *sql.DB
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Load reads every stored record. It satisfies loader.Loader.
func (r *RecordRepository) Load(ctx context.Context) ([]models.Record, error) {
	query := `SELECT trip_id, latitude, longitude, altitude, speed, azimuth FROM records ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query records: %w", loader.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	records := []models.Record{}
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.ID, &rec.Latitude, &rec.Longitude, &rec.Altitude, &rec.Speed, &rec.Azimuth); err != nil {
			return nil, fmt.Errorf("%w: failed to scan record: %w", loader.ErrSourceUnavailable, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", loader.ErrSourceUnavailable, err)
	}

	return records, nil
}

// Count returns the number of stored records
func (r *RecordRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return total, nil
}

// InsertRecords stores records in a single transaction
func (r *RecordRepository) InsertRecords(ctx context.Context, records []models.Record) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (trip_id, latitude, longitude, altitude, speed, azimuth)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			if _, err := stmt.ExecContext(ctx, rec.ID, rec.Latitude, rec.Longitude, rec.Altitude, rec.Speed, rec.Azimuth); err != nil {
				return fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

// DeleteAll removes every stored record
func (r *RecordRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	return nil
}
