package operations

import (
	"fmt"
	"path/filepath"

	"github.com/kebairia/pgchain/internal/chain"
)

// Restore reconstructs the chain leading to target and combines it
// into outputDir. target may be a backup directory name or a path to
// one; empty target means the newest backup on the most recent chain.
// A broken chain aborts before the combine tool is ever invoked.
func (op *Operator) Restore(target, outputDir string) error {
	root := op.cfg.Backup.Directory
	if outputDir == "" {
		outputDir = op.cfg.Restore.OutputDirectory
	}
	if outputDir == "" {
		return fmt.Errorf("no restore output directory configured")
	}

	if target == "" {
		latest, err := latestBackup(root)
		if err != nil {
			return err
		}
		target = latest
	}
	target = filepath.Base(filepath.Clean(target))

	records, err := chain.RestoreChain(root, target)
	if err != nil {
		return fmt.Errorf("assemble restore chain for %q: %w", target, err)
	}
	op.log.Info("restore chain assembled",
		"target", target,
		"chain", records[0].ChainStart,
		"backups", len(records),
	)

	return op.tool.Combine(op.ctx, chain.RestorePaths(root, records), outputDir)
}

// latestBackup picks the newest member of the most recent chain.
func latestBackup(root string) (string, error) {
	scanRes, err := chain.Scan(root)
	if err != nil {
		return "", err
	}
	latest := scanRes.Latest()
	if latest == nil {
		return "", fmt.Errorf("no complete chain found in %q", root)
	}
	members := latest.Members()
	return members[len(members)-1].ID, nil
}
