package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kebairia/pgchain/internal/operations"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every chain, its members and their ages",
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := operations.NewOperator(ConfigFile)
		if err != nil {
			return err
		}
		return op.List(os.Stdout)
	},
}
