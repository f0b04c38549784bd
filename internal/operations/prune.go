package operations

import (
	"time"

	"github.com/kebairia/pgchain/internal/chain"
)

// Prune runs one standalone quarantine-then-prune cycle under the root
// lock.
func (op *Operator) Prune() error {
	unlock, err := op.lockRoot()
	if err != nil {
		return err
	}
	defer unlock()
	return op.pruneLocked()
}

// pruneLocked quarantines corrupt directories, then plans and applies
// retention. Quarantine runs first so a damaged backup is renamed out
// of reach before any deletion is considered. Per-chain failures are
// logged inside Apply and do not stop the remaining chains.
func (op *Operator) pruneLocked() error {
	root := op.cfg.Backup.Directory

	scanRes, err := chain.Scan(root)
	if err != nil {
		return err
	}
	op.reportScan(scanRes)

	if err := chain.Quarantine(scanRes.Corrupt, op.log); err != nil {
		op.log.Error("quarantine incomplete", "error", err.Error())
	}

	policy := chain.Policy{
		KeepFullDays:        op.cfg.Retention.KeepFullDays,
		KeepIncrementalDays: op.cfg.Retention.KeepIncrementalDays,
	}
	decisions := chain.Plan(scanRes.Chains, time.Now().UTC(), policy)
	return chain.Apply(root, decisions, op.log)
}
