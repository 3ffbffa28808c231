package dlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerWritesWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir))
	Enable(true)
	t.Cleanup(func() { Enable(false); _ = CloseAll() })

	Get(CategoryFixpoint).Infof("iteration %d produced %d rows", 1, 3)
	require.NoError(t, CloseAll())

	data, err := os.ReadFile(filepath.Join(dir, "fixpoint.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "iteration 1 produced 3 rows")
}

func TestLoggerSilentWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir))
	Enable(false)

	Get(CategorySchema).Infof("should not be written")

	_, err := os.Stat(filepath.Join(dir, "schema.log"))
	require.True(t, os.IsNotExist(err))
}

func TestTimerStop(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir))
	Enable(true)
	t.Cleanup(func() { Enable(false); _ = CloseAll() })

	timer := StartTimer(CategoryLoad, "bulk-load")
	timer.Stop()
	require.NoError(t, CloseAll())

	data, err := os.ReadFile(filepath.Join(dir, "load.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "bulk-load took")
}
