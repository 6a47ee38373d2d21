package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "repeat311", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommand_NoFlags(t *testing.T) {
	assert.False(t, rootCmd.Flags().HasFlags())
	assert.False(t, rootCmd.PersistentFlags().HasFlags())
}

func TestRootCommand_RejectsArgs(t *testing.T) {
	require.Error(t, rootCmd.Args(rootCmd, []string{"extra"}))
	require.NoError(t, rootCmd.Args(rootCmd, nil))
}

const cmdInput = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-81.69, 41.49]},
   "properties": {"Location": "10 Elm St", "CaseID": "SR24-0012345", "CaseType": "Pothole", "OpenedDateTime": 1705340700000}},
  {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-81.69, 41.49]},
   "properties": {"Location": "10 ELM ST", "CaseID": "SR24-0012346", "OpenedDateTime": 1710053940000}}
]}`

func TestRootCommand_RunsInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	require.NoError(t, os.WriteFile("311-2.geojson", []byte(cmdInput), 0o644))
	t.Setenv("REPEAT311_STORE_SQLITE_PATH", "runs.db")

	rootCmd.SetArgs([]string{})
	require.NoError(t, rootCmd.Execute())

	for _, name := range []string{"filtered_features.geojson", "addresses_w_multiple_requests.txt", "sorted_features.csv", "runs.db"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	report, err := os.ReadFile(filepath.Join(dir, "addresses_w_multiple_requests.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "Total addresses with multiple features: 1\n\n10 Elm St (2 requests)\n")
}

func TestRootCommand_MissingInputFails(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	rootCmd.SetArgs([]string{})
	require.Error(t, rootCmd.Execute())

	_, err := os.Stat(filepath.Join(dir, "sorted_features.csv"))
	assert.True(t, os.IsNotExist(err))
}
