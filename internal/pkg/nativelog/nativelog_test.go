package nativelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodayFilename(t *testing.T) {
	day := time.Date(2024, time.March, 7, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "stdout_3-7-24.log", TodayFilename(day))
}

func TestWriterRollsByDay(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	w, err := NewWriter(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, w.Dir())

	day := time.Date(2024, time.March, 7, 23, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return day }
	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)

	day = day.Add(2 * time.Minute)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	first, err := os.ReadFile(filepath.Join(dir, "stdout_3-7-24.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(first))

	second, err := os.ReadFile(filepath.Join(dir, "stdout_3-8-24.log"))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(second))
}

func TestWriterIgnoresEmptyWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	n, err := w.Write(nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func writeLog(t *testing.T, dir, name string, mod time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("line\n"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestListAndPrune(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, time.March, 20, 10, 0, 0, 0, time.Local)

	writeLog(t, dir, "stdout_3-1-24.log", now.Add(-19*24*time.Hour))
	writeLog(t, dir, "stdout_3-18-24.log", now.Add(-2*24*time.Hour))
	writeLog(t, dir, TodayFilename(now), now)
	writeLog(t, dir, "notes.txt", now.Add(-30*24*time.Hour))

	files, err := List(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, TodayFilename(now), files[0].Filename)
	assert.Equal(t, "stdout_3-1-24.log", files[2].Filename)

	removed, err := Prune(dir, 7*24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"stdout_3-1-24.log"}, removed)

	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)

	missing, err := List(filepath.Join(dir, "absent"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, time.March, 20, 10, 0, 0, 0, time.Local)
	writeLog(t, dir, "stdout_3-18-24.log", now)
	writeLog(t, dir, TodayFilename(now), now)

	for _, bad := range []string{"", "../stdout_3-18-24.log", "notes.txt", "sub/stdout_1-1-24.log"} {
		assert.ErrorIs(t, Remove(dir, bad, now), ErrBadFilename, bad)
	}

	require.NoError(t, Remove(dir, "stdout_3-18-24.log", now))
	_, err := os.Stat(filepath.Join(dir, "stdout_3-18-24.log"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, Remove(dir, TodayFilename(now), now))
	info, err := os.Stat(filepath.Join(dir, TodayFilename(now)))
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	assert.NoError(t, Remove(dir, "stdout_1-1-20.log", now))
}
