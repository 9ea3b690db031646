package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dvo-fracture-risk-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite feedback store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	// Create schema
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanFeedback scans a row into a Feedback struct.
func scanFeedback(s scanner) (*Feedback, error) {
	fb := &Feedback{}
	var sex, band, suggested, chosen string

	err := s.Scan(
		&fb.ID, &fb.CaseKey, &sex, &fb.Age, &band,
		&suggested, &chosen, &fb.ChosenSubstanceID, &fb.UserAgreed,
		&fb.Notes, &fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	fb.Sex = domain.Sex(sex)
	fb.Band = domain.RiskBand(band)
	fb.SuggestedStrategy = domain.TherapyStrategy(suggested)
	fb.ChosenStrategy = domain.TherapyStrategy(chosen)
	return fb, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS recommendation_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		case_key TEXT NOT NULL,
		sex TEXT NOT NULL,
		age INTEGER NOT NULL,
		band TEXT NOT NULL,
		suggested_strategy TEXT NOT NULL,
		chosen_strategy TEXT NOT NULL,
		chosen_substance_id TEXT DEFAULT '',
		user_agreed INTEGER NOT NULL DEFAULT 0,
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(case_key)
	);

	CREATE INDEX IF NOT EXISTS idx_case_key ON recommendation_feedback(case_key);
	CREATE INDEX IF NOT EXISTS idx_band ON recommendation_feedback(band);
	CREATE INDEX IF NOT EXISTS idx_created_at ON recommendation_feedback(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates feedback for a case.
func (s *SQLiteStore) Save(ctx context.Context, feedback *Feedback) error {
	now := time.Now()

	// Check if exists
	var existingID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM recommendation_feedback WHERE case_key = ?",
		feedback.CaseKey,
	).Scan(&existingID)

	if err == nil {
		// Update existing
		feedback.ID = existingID
		feedback.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE recommendation_feedback SET
				sex = ?,
				age = ?,
				band = ?,
				suggested_strategy = ?,
				chosen_strategy = ?,
				chosen_substance_id = ?,
				user_agreed = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			string(feedback.Sex),
			feedback.Age,
			string(feedback.Band),
			string(feedback.SuggestedStrategy),
			string(feedback.ChosenStrategy),
			feedback.ChosenSubstanceID,
			feedback.UserAgreed,
			feedback.Notes,
			now,
			existingID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	// Insert new
	feedback.CreatedAt = now
	feedback.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO recommendation_feedback (
			case_key, sex, age, band,
			suggested_strategy, chosen_strategy, chosen_substance_id,
			user_agreed, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		feedback.CaseKey,
		string(feedback.Sex),
		feedback.Age,
		string(feedback.Band),
		string(feedback.SuggestedStrategy),
		string(feedback.ChosenStrategy),
		feedback.ChosenSubstanceID,
		feedback.UserAgreed,
		feedback.Notes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	feedback.ID = id

	return nil
}

// Get retrieves the stored feedback for a case key.
func (s *SQLiteStore) Get(ctx context.Context, caseKey string) (*Feedback, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, case_key, sex, age, band,
			suggested_strategy, chosen_strategy, chosen_substance_id, user_agreed,
			notes, created_at, updated_at
		FROM recommendation_feedback
		WHERE case_key = ?
		LIMIT 1
	`, caseKey)

	fb, err := scanFeedback(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return fb, nil
}

// List returns all feedback entries with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, case_key, sex, age, band,
			suggested_strategy, chosen_strategy, chosen_substance_id, user_agreed,
			notes, created_at, updated_at
		FROM recommendation_feedback
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Feedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, fb)
	}
	return result, rows.Err()
}

// Count returns the total number of feedback entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM recommendation_feedback").Scan(&count)
	return count, err
}

// Summarize returns aggregate agreement statistics.
func (s *SQLiteStore) Summarize(ctx context.Context) (*Summary, error) {
	summary := &Summary{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(user_agreed), 0)
		FROM recommendation_feedback
	`).Scan(&summary.Total, &summary.Agreed)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize: %w", err)
	}
	if summary.Total > 0 {
		summary.AgreementRate = float64(summary.Agreed) / float64(summary.Total)
	}
	return summary, nil
}

// Delete removes a feedback entry by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM recommendation_feedback WHERE id = ?", id)
	return err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all feedback to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports feedback from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, fb := range export.Feedback {
		// Check if exists
		existing, err := s.Get(ctx, fb.CaseKey)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if existing != nil {
			skipped++
			continue
		}

		// Import
		if err := s.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
