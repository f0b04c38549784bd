package chain

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kebairia/pgchain/internal/logger"
)

// Policy holds the two retention windows, in days. Both are threaded
// explicitly into Plan so that policies can be evaluated side by side.
type Policy struct {
	KeepFullDays        int
	KeepIncrementalDays int
}

// Action is the per-chain retention outcome. Incrementals are only
// ever removed as the complete set of their own chain, so a chain can
// never be left with a gap in the middle.
type Action int

const (
	KeepWhole Action = iota
	KeepFullOnly
	DeleteWhole
)

func (a Action) String() string {
	switch a {
	case KeepFullOnly:
		return "keep-full-only"
	case DeleteWhole:
		return "delete-whole"
	default:
		return "keep-whole"
	}
}

// Decision pairs a chain with the action retention chose for it.
type Decision struct {
	Chain  *Chain
	Action Action
	Reason string
}

// Plan decides the fate of every chain. chains must be ordered by
// full-backup timestamp, oldest first, as Scan returns them. The most
// recent chain is always kept whole regardless of age, so a restore
// point survives any policy value. Plan never mutates state; Apply
// executes it.
func Plan(chains []*Chain, now time.Time, pol Policy) []Decision {
	keepFull := time.Duration(pol.KeepFullDays) * 24 * time.Hour
	keepIncr := time.Duration(pol.KeepIncrementalDays) * 24 * time.Hour

	decisions := make([]Decision, 0, len(chains))
	for i, c := range chains {
		if i == len(chains)-1 {
			decisions = append(decisions, Decision{
				Chain:  c,
				Action: KeepWhole,
				Reason: "most recent chain",
			})
			continue
		}

		if age := now.Sub(c.Full.Timestamp); age > keepFull {
			decisions = append(decisions, Decision{
				Chain:  c,
				Action: DeleteWhole,
				Reason: fmt.Sprintf("full backup age %s exceeds %dd", age.Round(time.Hour), pol.KeepFullDays),
			})
			continue
		}

		// The incremental set is only useful as a complete, gap-free
		// sequence; once its oldest member ages out, the whole set is
		// retired at once.
		if oldest := c.OldestIncremental(); oldest != nil {
			if age := now.Sub(oldest.Timestamp); age > keepIncr {
				decisions = append(decisions, Decision{
					Chain:  c,
					Action: KeepFullOnly,
					Reason: fmt.Sprintf("oldest incremental age %s exceeds %dd", age.Round(time.Hour), pol.KeepIncrementalDays),
				})
				continue
			}
		}

		decisions = append(decisions, Decision{Chain: c, Action: KeepWhole})
	}
	return decisions
}

// Apply executes the planned deletions under root. Failures for one
// chain are logged and do not stop the remaining chains; the first
// error is returned after every chain has been attempted. Re-running
// Apply on the resulting state plans no further deletions.
func Apply(root string, decisions []Decision, log logger.Logger) error {
	var firstErr error
	for _, d := range decisions {
		var doomed []*Record
		switch d.Action {
		case DeleteWhole:
			doomed = d.Chain.Members()
		case KeepFullOnly:
			doomed = d.Chain.Incrementals
		default:
			continue
		}

		log.Info("pruning chain",
			"chain", d.Chain.Start,
			"action", d.Action.String(),
			"reason", d.Reason,
			"backups", len(doomed),
		)
		for _, rec := range doomed {
			dir := filepath.Join(root, rec.ID)
			if err := os.RemoveAll(dir); err != nil {
				log.Error("prune failed",
					"chain", d.Chain.Start,
					"backup", rec.ID,
					"error", err.Error(),
				)
				if firstErr == nil {
					firstErr = fmt.Errorf("prune %q: %w", rec.ID, err)
				}
				continue
			}
			log.Info("backup removed", "backup", rec.ID)
		}
	}
	return firstErr
}
