package chain

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kebairia/pgchain/internal/logger"
)

func pruneOnce(t *testing.T, root string, now time.Time, pol Policy) *ScanResult {
	t.Helper()
	res, err := Scan(root)
	require.NoError(t, err)
	require.NoError(t, Apply(root, Plan(res.Chains, now, pol), logger.Global()))

	after, err := Scan(root)
	require.NoError(t, err)
	return after
}

func chainIDs(res *ScanResult) map[string][]string {
	out := make(map[string][]string)
	for _, c := range res.Chains {
		for _, rec := range c.Members() {
			out[c.Start] = append(out[c.Start], rec.ID)
		}
	}
	return out
}

func TestPlan_AgedFullChainIsDeletedWhole(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	old := makeChain(t, root, now, 45, 44)
	recent := makeChain(t, root, now, 5)

	after := pruneOnce(t, root, now, Policy{KeepFullDays: 30, KeepIncrementalDays: 7})

	ids := chainIDs(after)
	assert.NotContains(t, ids, old.ID)
	assert.Contains(t, ids, recent.ID)
}

func TestPlan_AgedIncrementalSetIsRetiredAtomically(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	mid := makeChain(t, root, now, 20, 10, 9)
	recent := makeChain(t, root, now, 1)

	after := pruneOnce(t, root, now, Policy{KeepFullDays: 30, KeepIncrementalDays: 7})

	ids := chainIDs(after)
	require.Contains(t, ids, mid.ID)
	assert.Equal(t, []string{mid.ID}, ids[mid.ID], "full kept, every incremental of its set gone")
	assert.Contains(t, ids, recent.ID)
}

func TestPlan_MostRecentChainIsAlwaysKeptWhole(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	// Old enough to violate both windows, but it is the only chain.
	full := makeChain(t, root, now, 500, 499, 400)

	after := pruneOnce(t, root, now, Policy{KeepFullDays: 30, KeepIncrementalDays: 7})

	ids := chainIDs(after)
	require.Contains(t, ids, full.ID)
	assert.Len(t, ids[full.ID], 3)
}

func TestPlan_RecentChainWithinWindowsIsUntouched(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	full := makeChain(t, root, now, 5, 2)

	after := pruneOnce(t, root, now, Policy{KeepFullDays: 30, KeepIncrementalDays: 7})
	assert.Len(t, chainIDs(after)[full.ID], 2)
}

func TestPlan_LongTermChainKeepsFullSheddingIncrementals(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	longTerm := makeChain(t, root, now, 200, 20)
	recent := makeChain(t, root, now, 3)

	after := pruneOnce(t, root, now, Policy{KeepFullDays: 365, KeepIncrementalDays: 14})

	ids := chainIDs(after)
	assert.Equal(t, []string{longTerm.ID}, ids[longTerm.ID])
	assert.Contains(t, ids, recent.ID)
}

func TestPlan_DecisionsCarryReasons(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	makeChain(t, root, now, 45)
	makeChain(t, root, now, 20, 10)
	makeChain(t, root, now, 1)

	res, err := Scan(root)
	require.NoError(t, err)

	decisions := Plan(res.Chains, now, Policy{KeepFullDays: 30, KeepIncrementalDays: 7})
	require.Len(t, decisions, 3)
	assert.Equal(t, DeleteWhole, decisions[0].Action)
	assert.Equal(t, KeepFullOnly, decisions[1].Action)
	assert.Equal(t, KeepWhole, decisions[2].Action)
	assert.Equal(t, "most recent chain", decisions[2].Reason)
}

func TestPrune_IsIdempotent(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	makeChain(t, root, now, 45, 44)
	makeChain(t, root, now, 20, 10, 9)
	makeChain(t, root, now, 1)

	pol := Policy{KeepFullDays: 30, KeepIncrementalDays: 7}
	first := pruneOnce(t, root, now, pol)
	second := pruneOnce(t, root, now, pol)

	assert.Equal(t, chainIDs(first), chainIDs(second))

	// The second run must plan no deletions at all.
	decisions := Plan(second.Chains, now, pol)
	for _, d := range decisions {
		assert.Equal(t, KeepWhole, d.Action, "chain %s", d.Chain.Start)
	}
}

func TestApply_NeverTouchesQuarantinedOrCorrupt(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	makeChain(t, root, now, 45)
	makeChain(t, root, now, 1)

	bad := filepath.Join(root, "2020-01-01T00-00-00_full")
	require.NoError(t, os.Mkdir(bad, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, MetadataFilename), []byte("junk"), 0o644))

	res, err := Scan(root)
	require.NoError(t, err)
	require.NoError(t, Quarantine(res.Corrupt, logger.Global()))
	require.NoError(t, Apply(root, Plan(res.Chains, now, Policy{KeepFullDays: 30, KeepIncrementalDays: 7}), logger.Global()))

	// The corrupt directory survives a full prune cycle, renamed.
	_, err = os.Stat(bad)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, QuarantinePrefix+"2020-01-01T00-00-00_full"))
	assert.NoError(t, err)
}
