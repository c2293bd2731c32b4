// Package reportlog persists report records. Every backend implements Log so
// the HTTP layer never knows which store sits underneath.
package reportlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/dharsanguruparan/intake/internal/model"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown report store driver")

// Log is an ordered, append-only sequence of report records. Append must be
// atomic with respect to other Append calls on the same Log.
type Log interface {
	Append(ctx context.Context, rec model.ReportRecord) error
	List(ctx context.Context) ([]model.ReportRecord, error)
	Close() error
}

const (
	DriverJSON     = "json"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Driver      string
	JSONPath    string
	SQLitePath  string
	DatabaseURL string
}

// Open returns the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Log, error) {
	switch opts.Driver {
	case DriverJSON, "":
		return NewJSONFile(opts.JSONPath)
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, opts.SQLitePath)
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, errors.New("postgres report store requires INTAKE_DATABASE_URL")
		}
		return OpenPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
