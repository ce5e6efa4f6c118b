package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedSampleDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ecommerce.sqlite")

	summary, err := SeedSampleDatabase(context.Background(), path, false)
	require.NoError(t, err)
	assert.Equal(t, path, summary.Path)
	assert.Equal(t, 10, summary.Customers)
	assert.Equal(t, 10, summary.Products)
	assert.Equal(t, 18, summary.Orders)
	assert.InDelta(t, 7574.73, summary.Revenue, 0.001)
}

func TestSeedSampleDatabase_Existing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecommerce.sqlite")
	_, err := SeedSampleDatabase(context.Background(), path, false)
	require.NoError(t, err)

	_, err = SeedSampleDatabase(context.Background(), path, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDatabaseExists))

	summary, err := SeedSampleDatabase(context.Background(), path, true)
	require.NoError(t, err)
	assert.Equal(t, 18, summary.Orders)
}
