package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	telemetry "binwatch-cloud/internal/telemetry/domain"
)

const defaultRecordTable = "telemetry_records"

// RecordRepository is a Postgres implementation of the durable record store.
type RecordRepository struct {
	db    *sql.DB
	table string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*RecordRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *RecordRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewRecordRepository constructs a repository with the default table name.
func NewRecordRepository(db *sql.DB, opts ...RepositoryOption) *RecordRepository {
	repo := &RecordRepository{db: db, table: defaultRecordTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Insert persists one classified record and returns its id.
func (r *RecordRepository) Insert(ctx context.Context, record telemetry.ClassifiedRecord) (string, error) {
	if r == nil || r.db == nil {
		return "", errors.New("record repo: nil db")
	}
	if record.Event.UnitID == "" {
		return "", errors.New("record repo: empty unit id")
	}
	if record.Event.ObservedAt.IsZero() {
		return "", errors.New("record repo: zero observed_at")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	unit_id,
	observed_at,
	weight_kg,
	distance_cm,
	fill_level_pct,
	gps_lat,
	gps_lng,
	gps_valid,
	satellite_count,
	error_text,
	error_category,
	priority,
	status,
	reasons
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
)
RETURNING id`, r.table)

	errorText := sql.NullString{}
	if record.Event.ErrorText != "" {
		errorText = sql.NullString{String: record.Event.ErrorText, Valid: true}
	}
	category := sql.NullString{}
	if record.Category != "" {
		category = sql.NullString{String: string(record.Category), Valid: true}
	}

	var id string
	err := r.db.QueryRowContext(ctx, query,
		record.Event.UnitID,
		record.Event.ObservedAt,
		record.Event.WeightKg,
		record.Event.DistanceCm,
		record.Event.FillLevelPct,
		record.Event.GPS.Lat,
		record.Event.GPS.Lng,
		record.Event.GPSValid,
		record.Event.SatelliteCount,
		errorText,
		category,
		string(record.Priority),
		record.Status,
		strings.Join(record.Reasons, ","),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("record repo: insert: %w", err)
	}
	return id, nil
}
