package reportlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/intake/internal/database"
	"github.com/dharsanguruparan/intake/internal/model"
)

// Postgres stores records in the reports table of a Postgres database.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := database.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewPostgres(pool), nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Append inserts rec.
func (p *Postgres) Append(ctx context.Context, rec model.ReportRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO reports (waktu, path, ip)
		VALUES ($1,$2,$3)
	`, rec.Waktu, rec.Path, rec.IP)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// List returns all records in insertion order.
func (p *Postgres) List(ctx context.Context) ([]model.ReportRecord, error) {
	rows, err := p.pool.Query(ctx, `SELECT waktu, path, ip FROM reports ORDER BY id`)
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

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
