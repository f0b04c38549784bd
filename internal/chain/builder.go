package chain

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Chain is a full backup plus its ordered incrementals, grouped by the
// chain_start identifier every member carries.
type Chain struct {
	Start        string // id of the full backup that begins the chain
	Full         *Record
	Incrementals []*Record // sorted by id, i.e. chronologically
}

// Members returns the full backup followed by its incrementals.
func (c *Chain) Members() []*Record {
	members := make([]*Record, 0, len(c.Incrementals)+1)
	if c.Full != nil {
		members = append(members, c.Full)
	}
	return append(members, c.Incrementals...)
}

// OldestIncremental returns the earliest incremental of the chain, or
// nil if the chain has none. It gates the incremental retention rule.
func (c *Chain) OldestIncremental() *Record {
	if len(c.Incrementals) == 0 {
		return nil
	}
	return c.Incrementals[0]
}

// ScanResult partitions the immediate subdirectories of a backup root.
//
// Chains holds every well-formed chain ordered by full-backup
// timestamp, oldest first. Orphans holds chains whose chain_start does
// not resolve to a valid full backup in the same root; they are
// surfaced to the operator and excluded from retention. Corrupt holds
// paths whose record exists but is unreadable; those are quarantined,
// never deleted.
type ScanResult struct {
	Chains  []*Chain
	Orphans []*Chain
	Corrupt []string
}

// Latest returns the most recent chain by full-backup timestamp, or
// nil when the root holds no complete chain.
func (s *ScanResult) Latest() *Chain {
	if len(s.Chains) == 0 {
		return nil
	}
	return s.Chains[len(s.Chains)-1]
}

// Scan enumerates the immediate subdirectories of root and groups
// every readable backup record into chains keyed by chain_start.
// Directories without a record file are ignored; quarantined
// directories are never inspected.
func Scan(root string) (*ScanResult, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read backup root %q: %w", root, err)
	}

	result := &ScanResult{}
	groups := make(map[string][]*Record)

	for _, entry := range entries {
		if !entry.IsDir() || IsQuarantined(entry.Name()) {
			continue
		}
		dir := filepath.Join(root, entry.Name())

		rec, err := ReadRecord(dir)
		if err != nil {
			result.Corrupt = append(result.Corrupt, dir)
			continue
		}
		if rec == nil {
			// Not a backup directory at all.
			continue
		}
		groups[rec.ChainStart] = append(groups[rec.ChainStart], rec)
	}

	for start, members := range groups {
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })

		c := &Chain{Start: start}
		for _, rec := range members {
			if rec.ID == start && rec.IsFull() {
				c.Full = rec
			} else {
				c.Incrementals = append(c.Incrementals, rec)
			}
		}
		if c.Full == nil {
			result.Orphans = append(result.Orphans, c)
			continue
		}
		result.Chains = append(result.Chains, c)
	}

	sort.Slice(result.Chains, func(i, j int) bool {
		return result.Chains[i].Full.Timestamp.Before(result.Chains[j].Full.Timestamp)
	})
	sort.Slice(result.Orphans, func(i, j int) bool {
		return result.Orphans[i].Start < result.Orphans[j].Start
	})
	sort.Strings(result.Corrupt)

	return result, nil
}
