package operations

import (
	"fmt"
	"io"
	"time"

	"github.com/kebairia/pgchain/internal/chain"
)

// List writes a chain-by-chain summary of the backup root to w.
func (op *Operator) List(w io.Writer) error {
	scanRes, err := chain.Scan(op.cfg.Backup.Directory)
	if err != nil {
		return err
	}
	op.reportScan(scanRes)

	now := time.Now().UTC()
	for i, c := range scanRes.Chains {
		marker := ""
		if i == len(scanRes.Chains)-1 {
			marker = " (most recent)"
		}
		fmt.Fprintf(w, "chain %s%s\n", c.Start, marker)
		for _, rec := range c.Members() {
			age := now.Sub(rec.Timestamp).Round(time.Hour)
			fmt.Fprintf(w, "  %-12s %s  age %s\n", rec.Kind, rec.ID, age)
		}
	}
	for _, orphan := range scanRes.Orphans {
		fmt.Fprintf(w, "orphaned chain %s (%d backups, chain_start missing)\n",
			orphan.Start, len(orphan.Incrementals))
	}
	for _, path := range scanRes.Corrupt {
		fmt.Fprintf(w, "corrupt: %s\n", path)
	}
	if len(scanRes.Chains) == 0 && len(scanRes.Orphans) == 0 && len(scanRes.Corrupt) == 0 {
		fmt.Fprintln(w, "no backups found")
	}
	return nil
}
