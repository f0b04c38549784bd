package chain

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestoreChain_OrdersFullFirstTargetLast(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	full := NewFull(now.Add(-10 * 24 * time.Hour))
	i1 := NewIncremental(now.Add(-8*24*time.Hour), full)
	i2 := NewIncremental(now.Add(-6*24*time.Hour), i1)
	for _, rec := range []*Record{full, i1, i2} {
		writeBackupDir(t, root, rec)
	}

	records, err := RestoreChain(root, i2.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, full.ID, records[0].ID)
	assert.Equal(t, i1.ID, records[1].ID)
	assert.Equal(t, i2.ID, records[2].ID)

	seen := make(map[string]bool)
	for i, rec := range records {
		assert.False(t, seen[rec.ID], "duplicate %s", rec.ID)
		seen[rec.ID] = true
		if i > 0 {
			assert.True(t, rec.Timestamp.After(records[i-1].Timestamp))
		}
	}

	paths := RestorePaths(root, records)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(root, full.ID), paths[0])
}

func TestRestoreChain_FullBackupRestoresAlone(t *testing.T) {
	root := t.TempDir()
	full := NewFull(time.Date(2026, 8, 20, 3, 0, 0, 0, time.UTC))
	writeBackupDir(t, root, full)

	records, err := RestoreChain(root, full.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, full.ID, records[0].ID)
}

func TestRestoreChain_IntermediateTargetStopsThere(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	full := NewFull(now.Add(-10 * 24 * time.Hour))
	i1 := NewIncremental(now.Add(-8*24*time.Hour), full)
	i2 := NewIncremental(now.Add(-6*24*time.Hour), i1)
	for _, rec := range []*Record{full, i1, i2} {
		writeBackupDir(t, root, rec)
	}

	records, err := RestoreChain(root, i1.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, i1.ID, records[1].ID)
}

func TestRestoreChain_MissingAncestorBreaksChain(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	full := NewFull(now.Add(-10 * 24 * time.Hour))
	i1 := NewIncremental(now.Add(-8*24*time.Hour), full)
	i2 := NewIncremental(now.Add(-6*24*time.Hour), i1)
	for _, rec := range []*Record{full, i1, i2} {
		writeBackupDir(t, root, rec)
	}
	require.NoError(t, os.RemoveAll(filepath.Join(root, i1.ID)))

	_, err := RestoreChain(root, i2.ID)
	assert.ErrorIs(t, err, ErrBrokenChain)
}

func TestRestoreChain_CorruptAncestorBreaksChain(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	full := NewFull(now.Add(-10 * 24 * time.Hour))
	i1 := NewIncremental(now.Add(-8*24*time.Hour), full)
	for _, rec := range []*Record{full, i1} {
		writeBackupDir(t, root, rec)
	}
	require.NoError(t, os.WriteFile(
		filepath.Join(root, full.ID, MetadataFilename), []byte("garbage"), 0o644))

	_, err := RestoreChain(root, i1.ID)
	assert.ErrorIs(t, err, ErrBrokenChain)
}

func TestRestoreChain_UnknownTargetBreaksChain(t *testing.T) {
	root := t.TempDir()

	_, err := RestoreChain(root, "2026-08-01T03-00-00_full")
	assert.ErrorIs(t, err, ErrBrokenChain)
}

func TestRestoreChain_ParentCycleIsDetected(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	full := NewFull(now.Add(-10 * 24 * time.Hour))
	i1 := NewIncremental(now.Add(-8*24*time.Hour), full)
	i2 := NewIncremental(now.Add(-6*24*time.Hour), i1)
	// Hand-corrupt i1 to point back at i2.
	i1.Parent = i2.ID
	for _, rec := range []*Record{full, i1, i2} {
		writeBackupDir(t, root, rec)
	}

	_, err := RestoreChain(root, i2.ID)
	assert.ErrorIs(t, err, ErrBrokenChain)
}
