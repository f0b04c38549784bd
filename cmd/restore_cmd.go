package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kebairia/pgchain/internal/operations"
)

var restoreOutputDir string

var restoreCmd = &cobra.Command{
	Use:   "restore [backup-id]",
	Short: "Combine a backup chain into a restorable data directory",
	Long: `restore walks the parent links from the target backup back to its
full backup and hands the ordered chain to pg_combinebackup. Without a
backup id, the newest backup on the most recent chain is restored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := operations.NewOperator(ConfigFile)
		if err != nil {
			return err
		}
		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		return op.Restore(target, restoreOutputDir)
	},
}

func init() {
	restoreCmd.Flags().
		StringVarP(&restoreOutputDir, "output", "o", "", "output directory (defaults to restore.output_directory)")
}
