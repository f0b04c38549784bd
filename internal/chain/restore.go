package chain

import (
	"fmt"
	"path/filepath"
)

// RestoreChain assembles the minimal ordered set of backups needed to
// restore to target, a backup directory name under root. The result is
// ordered oldest first: the chain's full backup leads, the target ends
// it, and timestamps ascend strictly.
//
// Any missing, corrupt, or unresolvable ancestor aborts with an error
// wrapping ErrBrokenChain. A partial chain is never returned; the
// combine tool must only ever see a complete one.
func RestoreChain(root, target string) ([]*Record, error) {
	var ordered []*Record
	seen := make(map[string]bool)

	current := target
	for {
		if seen[current] {
			return nil, fmt.Errorf("%w: cycle through %q", ErrBrokenChain, current)
		}
		seen[current] = true

		rec, err := ReadRecord(filepath.Join(root, current))
		if err != nil {
			return nil, fmt.Errorf("%w: ancestor %q: %v", ErrBrokenChain, current, err)
		}
		if rec == nil {
			return nil, fmt.Errorf("%w: ancestor %q does not exist in %q", ErrBrokenChain, current, root)
		}

		ordered = append([]*Record{rec}, ordered...)
		if rec.Parent == "" {
			if !rec.IsFull() {
				return nil, fmt.Errorf("%w: %q has no parent but is not a full backup", ErrBrokenChain, current)
			}
			break
		}
		current = rec.Parent
	}

	for i := 1; i < len(ordered); i++ {
		if !ordered[i].Timestamp.After(ordered[i-1].Timestamp) {
			return nil, fmt.Errorf("%w: %q is not newer than its parent %q",
				ErrBrokenChain, ordered[i].ID, ordered[i-1].ID)
		}
	}
	return ordered, nil
}

// RestorePaths maps a reconstructed chain to the on-disk directories
// handed to the combine tool, preserving order.
func RestorePaths(root string, records []*Record) []string {
	paths := make([]string, len(records))
	for i, rec := range records {
		paths[i] = filepath.Join(root, rec.ID)
	}
	return paths
}
