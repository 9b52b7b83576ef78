package names

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeNames(t *testing.T, lines string) string {
	t.Helper()
	var path = filepath.Join(t.TempDir(), "system_names.txt")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func TestSearchScenarios(t *testing.T) {
	ix, err := Load(writeNames(t, "Alpha\nAlpha Centauri\nBeta\n"))
	require.NoError(t, err)

	var cases = []struct {
		query  string
		limit  int
		expect []string
	}{
		{"alp", 10, []string{"Alpha", "Alpha Centauri"}},
		{"Alpha", 10, []string{"Alpha", "Alpha Centauri"}},
		{"", 10, nil},
		{"z", 10, nil},
		{"alp", 1, []string{"Alpha"}},
		{"beta", 10, []string{"Beta"}},
	}
	for _, tc := range cases {
		require.Equal(t, tc.expect, ix.Search(tc.query, tc.limit),
			"query %q limit %d", tc.query, tc.limit)
	}
}

func TestLoadResortsUnsortedFile(t *testing.T) {
	ix, err := Load(writeNames(t, "Beta\nAlpha\nGamma\n"))
	require.NoError(t, err)

	require.Equal(t, 3, ix.Len())
	require.Equal(t, []string{"Alpha"}, ix.Search("a", 10))
	require.Equal(t, []string{"Beta"}, ix.Search("b", 10))
}

func TestLoadToleratesBlankLines(t *testing.T) {
	ix, err := Load(writeNames(t, "Alpha\n\nBeta\n\n"))
	require.NoError(t, err)
	require.Equal(t, 2, ix.Len())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}

func TestStats(t *testing.T) {
	var path = writeNames(t, "Alpha\nBeta\n")
	ix, err := Load(path)
	require.NoError(t, err)

	var stats = ix.Stats()
	require.True(t, stats.Loaded)
	require.Equal(t, 2, stats.TotalSystems)
	require.Equal(t, path, stats.NamesFile)
	require.Greater(t, stats.EstimatedMemoryMB, 0.0)
}
