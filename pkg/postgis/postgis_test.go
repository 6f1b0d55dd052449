package postgis

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1F47E/grid9/pkg/grid9"
	"github.com/1F47E/grid9/pkg/models"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, User: "grid9", Password: "secret", Database: "geodb"}
	assert.Equal(t, "host=db port=5432 user=grid9 password=secret dbname=geodb sslmode=disable", cfg.DSN())
}

// Runs against a live PostGIS when GRID9_POSTGIS_DSN_TEST is set.
func TestStore(t *testing.T) {
	dsn := os.Getenv("GRID9_POSTGIS_DSN_TEST")
	if dsn == "" {
		t.Skip("GRID9_POSTGIS_DSN_TEST not set")
	}
	ctx := context.Background()

	store, err := Open(ctx, dsn, 4)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.InitSchema(ctx))
	_, err = store.db.ExecContext(ctx, "TRUNCATE grid9_codes")
	require.NoError(t, err)

	err = store.BulkInsert(ctx, []models.Entry{
		{ID: "nyc", Code: "Q7K-H2B-BYE"},
		{ID: "london", Code: "S50M3ZX2X"},
	})
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	results, err := store.QueryBox(ctx, models.BoundingBox{MinLat: 40, MaxLat: 41, MinLon: -75, MaxLon: -73})
	require.NoError(t, err)
	assert.Equal(t, []models.Entry{{ID: "nyc", Code: "Q7KH2BBYE"}}, results)

	err = store.BulkInsert(ctx, []models.Entry{{ID: "bad", Code: "Q7KH2BBYI"}})
	assert.ErrorIs(t, err, grid9.ErrInvalidCharacter)
}
