package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kebairia/pgchain/internal/operations"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Take a snapshot, then quarantine and prune",
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := operations.NewOperator(ConfigFile)
		if err != nil {
			return err
		}
		return op.Backup()
	},
}
