package schedule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	feed := loadTestFeed(t)
	feed.Stops[0].ParentStation = "alpha"
	filename := filepath.Join(t.TempDir(), "timetable.bz2")

	require.NoError(t, WriteSnapshot(filename, feed))
	got, err := ReadSnapshot(filename)
	require.NoError(t, err)
	assert.Equal(t, feed, got)
}

func TestReadSnapshotRejectsOtherFiles(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(filename, []byte("stops 0\n"), 0o644))

	_, err := ReadSnapshot(filename)
	assert.Error(t, err)

	_, err = ReadSnapshot(filepath.Join(t.TempDir(), "missing.bz2"))
	assert.Error(t, err)
}
