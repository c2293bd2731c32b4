package reportlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/intake/internal/model"
)

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	opts := Options{
		JSONPath:   filepath.Join(dir, "laporan.json"),
		SQLitePath: filepath.Join(dir, "laporan.db"),
	}

	for _, driver := range []string{"", DriverJSON, DriverMemory, DriverSQLite} {
		t.Run("driver="+driver, func(t *testing.T) {
			opts.Driver = driver
			log, err := Open(ctx, opts)
			require.NoError(t, err)
			defer log.Close()

			rec := model.ReportRecord{Waktu: "2024-01-02T03:04:05.000Z", Path: "/" + driver + "x.html", IP: "10.0.0.1"}
			require.NoError(t, log.Append(ctx, rec))

			records, err := log.List(ctx)
			require.NoError(t, err)
			require.NotEmpty(t, records)
			assert.Equal(t, rec, records[len(records)-1])
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mongo"})
	require.ErrorIs(t, err, ErrUnknownDriver)
}

func TestOpen_PostgresRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: DriverPostgres})
	require.Error(t, err)
}

func TestMemory_ListReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Append(ctx, model.ReportRecord{Path: "/a.html"}))

	records, err := m.List(ctx)
	require.NoError(t, err)
	records[0].Path = "/mutated.html"

	again, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/a.html", again[0].Path)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "laporan.db")

	first, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Append(ctx, model.ReportRecord{Waktu: "w1", Path: "/1.html", IP: "a"}))
	require.NoError(t, first.Append(ctx, model.ReportRecord{Waktu: "w2", Path: "/2.html", IP: "b"}))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	records, err := second.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "/1.html", records[0].Path)
	assert.Equal(t, "/2.html", records[1].Path)
}
