package reportlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dharsanguruparan/intake/internal/model"
)

// SQLite stores records in a single-table SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	waktu TEXT NOT NULL,
	path TEXT NOT NULL,
	ip TEXT NOT NULL
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create reports table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Append inserts rec.
func (s *SQLite) Append(ctx context.Context, rec model.ReportRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (waktu, path, ip) VALUES (?, ?, ?)`,
		rec.Waktu, rec.Path, rec.IP)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// List returns all records in insertion order.
func (s *SQLite) List(ctx context.Context) ([]model.ReportRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT waktu, path, ip FROM reports ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select reports: %w", err)
	}
	defer rows.Close()
	records := []model.ReportRecord{}
	for rows.Next() {
		var rec model.ReportRecord
		if err := rows.Scan(&rec.Waktu, &rec.Path, &rec.IP); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}
