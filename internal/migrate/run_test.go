package migrate

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions_SortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_b.sql":   {Data: []byte("SELECT 2")},
		"migrations/0001_a.sql":   {Data: []byte("SELECT 1")},
		"migrations/README.md":    {Data: []byte("docs")},
		"migrations/0003_c.sql":   {Data: []byte("SELECT 3")},
		"migrations/nested/x.sql": {Data: []byte("SELECT 4")},
	}
	got, err := versions(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a", "0002_b", "0003_c"}, got)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := versions(migrationsFS)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_profiles", "0002_profile_audit"}, got)
}
