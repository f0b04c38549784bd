package chain

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeBackupDir materializes a record as an on-disk backup directory.
func writeBackupDir(t *testing.T, root string, rec *Record) {
	t.Helper()
	dir := filepath.Join(root, rec.ID)
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, WriteRecord(dir, rec))
}

// makeChain writes a full backup aged fullAgeDays plus one incremental
// per entry of incrAgeDays, each chained to its predecessor. Ages are
// relative to now, larger meaning older.
func makeChain(t *testing.T, root string, now time.Time, fullAgeDays int, incrAgeDays ...int) *Record {
	t.Helper()
	full := NewFull(now.Add(-time.Duration(fullAgeDays) * 24 * time.Hour))
	writeBackupDir(t, root, full)

	parent := full
	for _, age := range incrAgeDays {
		incr := NewIncremental(now.Add(-time.Duration(age)*24*time.Hour), parent)
		writeBackupDir(t, root, incr)
		parent = incr
	}
	return full
}

func TestScan_GroupsChainsByChainStart(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	oldFull := makeChain(t, root, now, 40, 39, 38)
	newFull := makeChain(t, root, now, 5, 2)

	res, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, res.Chains, 2)
	assert.Empty(t, res.Corrupt)
	assert.Empty(t, res.Orphans)

	// Oldest chain first, most recent last.
	assert.Equal(t, oldFull.ID, res.Chains[0].Start)
	assert.Len(t, res.Chains[0].Incrementals, 2)
	assert.Equal(t, newFull.ID, res.Chains[1].Start)
	assert.Len(t, res.Chains[1].Incrementals, 1)
	assert.Equal(t, newFull.ID, res.Latest().Start)

	// Members are chronological within a chain.
	members := res.Chains[0].Members()
	for i := 1; i < len(members); i++ {
		assert.True(t, members[i].Timestamp.After(members[i-1].Timestamp))
	}
}

func TestScan_IgnoresDirectoriesWithoutRecords(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	makeChain(t, root, now, 5)

	require.NoError(t, os.Mkdir(filepath.Join(root, "lost+found"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	res, err := Scan(root)
	require.NoError(t, err)
	assert.Len(t, res.Chains, 1)
	assert.Empty(t, res.Corrupt)
}

func TestScan_ClassifiesCorruptRecords(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	makeChain(t, root, now, 5)

	bad := filepath.Join(root, "2026-08-20T00-00-00_full")
	require.NoError(t, os.Mkdir(bad, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, MetadataFilename), []byte("{"), 0o644))

	res, err := Scan(root)
	require.NoError(t, err)
	assert.Len(t, res.Chains, 1)
	assert.Equal(t, []string{bad}, res.Corrupt)
}

func TestScan_SurfacesOrphanedChains(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	makeChain(t, root, now, 5)

	// An incremental whose chain_start resolves to nothing on disk.
	ghost := NewFull(now.Add(-30 * 24 * time.Hour))
	stray := NewIncremental(now.Add(-29*24*time.Hour), ghost)
	writeBackupDir(t, root, stray)

	res, err := Scan(root)
	require.NoError(t, err)
	assert.Len(t, res.Chains, 1)
	require.Len(t, res.Orphans, 1)
	assert.Equal(t, ghost.ID, res.Orphans[0].Start)
	assert.Nil(t, res.Orphans[0].Full)
	require.Len(t, res.Orphans[0].Incrementals, 1)
	assert.Equal(t, stray.ID, res.Orphans[0].Incrementals[0].ID)
}

func TestScan_SkipsQuarantinedDirectories(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	makeChain(t, root, now, 5)

	dir := filepath.Join(root, QuarantinePrefix+"2026-08-20T00-00-00_full")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFilename), []byte("{"), 0o644))

	res, err := Scan(root)
	require.NoError(t, err)
	assert.Len(t, res.Chains, 1)
	assert.Empty(t, res.Corrupt)
}
