package operations

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kebairia/pgchain/internal/chain"
	"github.com/kebairia/pgchain/internal/pgtool"
)

// Backup runs one backup cycle: take a snapshot, record it, then
// quarantine and prune. A failed snapshot is fatal and stops the cycle
// before any pruning, so a bad run can never eat history.
func (op *Operator) Backup() error {
	root := op.cfg.Backup.Directory
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("mkdir backup root %q: %w", root, err)
	}

	unlock, err := op.lockRoot()
	if err != nil {
		return err
	}
	defer unlock()

	scanRes, err := chain.Scan(root)
	if err != nil {
		return err
	}
	op.reportScan(scanRes)

	now := time.Now().UTC()
	rec, err := op.createSnapshot(scanRes, now)
	if err != nil {
		return err
	}

	// The record is written only after the tool reported success and
	// its output verified; until then the directory is not a backup.
	if err := chain.WriteRecord(filepath.Join(root, rec.ID), rec); err != nil {
		return fmt.Errorf("record backup %q: %w", rec.ID, err)
	}
	op.log.Info("backup recorded",
		"backup", rec.ID,
		"kind", rec.Kind,
		"chain", rec.ChainStart,
	)

	return op.pruneLocked()
}

// createSnapshot decides full versus incremental and invokes the
// snapshot tool. A full backup starts a new chain when none exists or
// when the latest chain's full backup has aged past the configured
// interval; otherwise the new snapshot extends the latest chain from
// its newest member.
func (op *Operator) createSnapshot(scanRes *chain.ScanResult, now time.Time) (*chain.Record, error) {
	root := op.cfg.Backup.Directory
	interval := time.Duration(op.cfg.Backup.FullIntervalDays) * 24 * time.Hour

	latest := scanRes.Latest()
	if latest == nil || now.Sub(latest.Full.Timestamp) >= interval {
		rec := chain.NewFull(now)
		if err := op.tool.CreateFull(op.ctx, filepath.Join(root, rec.ID)); err != nil {
			return nil, err
		}
		return rec, nil
	}

	members := latest.Members()
	parent := members[len(members)-1]
	manifest := filepath.Join(root, parent.ID, pgtool.ManifestFilename)

	rec := chain.NewIncremental(now, parent)
	if err := op.tool.CreateIncremental(op.ctx, filepath.Join(root, rec.ID), manifest); err != nil {
		return nil, err
	}
	return rec, nil
}
