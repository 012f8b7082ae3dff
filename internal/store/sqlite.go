package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/manp-monitoring/report-service/internal/model"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	denr_personnels TEXT NOT NULL,
	other_agency_personnels TEXT,
	activity_date_start TEXT NOT NULL,
	activity_date_end TEXT,
	location TEXT NOT NULL DEFAULT '',
	persons_involved TEXT NOT NULL DEFAULT '',
	complaint_description TEXT NOT NULL DEFAULT '',
	action_taken TEXT NOT NULL DEFAULT '',
	recommendation TEXT NOT NULL DEFAULT '',
	photos TEXT,
	synced INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_user_created ON reports (user_id, created_at DESC);
`

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite database at the given path and ensures the
// reports schema exists.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// UpsertReport inserts a report with synced forced to 1 and updated_at set
// equal to created_at. A duplicate id is a silent no-op: the conflict clause
// keeps the first-written row untouched.
func (s *SQLiteStore) UpsertReport(ctx context.Context, r *model.Report) error {
	personnelsJSON, err := json.Marshal(r.DENRPersonnels)
	if err != nil {
		return fmt.Errorf("marshal denr_personnels: %w", err)
	}

	otherAgency, err := nullableJSON(r.OtherAgencyPersonnels)
	if err != nil {
		return fmt.Errorf("marshal other_agency_personnels: %w", err)
	}
	photos, err := nullableJSON(r.Photos)
	if err != nil {
		return fmt.Errorf("marshal photos: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (
			id, user_id, denr_personnels, other_agency_personnels,
			activity_date_start, activity_date_end, location,
			persons_involved, complaint_description, action_taken,
			recommendation, photos, synced, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		r.ID, r.UserID, string(personnelsJSON), otherAgency,
		r.ActivityDateStart, nullString(r.ActivityDateEnd), r.Location,
		r.PersonsInvolved, r.ComplaintDescription, r.ActionTaken,
		r.Recommendation, photos, r.CreatedAt, r.CreatedAt)
	return err
}

// ListReportsByUser returns the user's reports ordered by created_at
// descending, reversing the JSON encoding applied at write time.
func (s *SQLiteStore) ListReportsByUser(ctx context.Context, userID string) ([]*model.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, denr_personnels, other_agency_personnels,
		        activity_date_start, activity_date_end, location,
		        persons_involved, complaint_description, action_taken,
		        recommendation, photos, synced, created_at, updated_at
		 FROM reports WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func scanReport(rows *sql.Rows) (*model.Report, error) {
	var r model.Report
	var personnelsJSON string
	var otherAgencyJSON, activityEnd, photosJSON sql.NullString
	err := rows.Scan(&r.ID, &r.UserID, &personnelsJSON, &otherAgencyJSON,
		&r.ActivityDateStart, &activityEnd, &r.Location,
		&r.PersonsInvolved, &r.ComplaintDescription, &r.ActionTaken,
		&r.Recommendation, &photosJSON, &r.Synced, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(personnelsJSON), &r.DENRPersonnels); err != nil {
		return nil, fmt.Errorf("unmarshal denr_personnels for %s: %w", r.ID, err)
	}
	if otherAgencyJSON.Valid {
		if err := json.Unmarshal([]byte(otherAgencyJSON.String), &r.OtherAgencyPersonnels); err != nil {
			return nil, fmt.Errorf("unmarshal other_agency_personnels for %s: %w", r.ID, err)
		}
	}
	if photosJSON.Valid {
		if err := json.Unmarshal([]byte(photosJSON.String), &r.Photos); err != nil {
			return nil, fmt.Errorf("unmarshal photos for %s: %w", r.ID, err)
		}
	}
	r.ActivityDateEnd = activityEnd.String
	return &r, nil
}

// nullableJSON encodes v as JSON, mapping an absent value to SQL NULL rather
// than the literal string "null".
func nullableJSON(v any) (any, error) {
	switch val := v.(type) {
	case []string:
		if val == nil {
			return nil, nil
		}
	case []model.Photo:
		if val == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
