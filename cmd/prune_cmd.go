package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kebairia/pgchain/internal/operations"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Quarantine corrupt backups and apply retention",
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := operations.NewOperator(ConfigFile)
		if err != nil {
			return err
		}
		return op.Prune()
	},
}
