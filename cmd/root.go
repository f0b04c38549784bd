package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/kebairia/pgchain/internal/chain"
	"github.com/kebairia/pgchain/internal/config"
	"github.com/kebairia/pgchain/internal/logger"
	"github.com/kebairia/pgchain/internal/pgtool"
)

// Exit codes, so schedulers can tell failure classes apart.
const (
	exitOK      = 0
	exitConfig  = 1
	exitBackup  = 2
	exitRestore = 3
)

// ConfigFile is the path to the YAML configuration.
var (
	ConfigFile string
	// rootCmd is the base command for pgchain.
	rootCmd = &cobra.Command{
		Use:   "pgchain",
		Short: "Manage chains of full and incremental PostgreSQL backups",
		Long: `pgchain takes pg_basebackup snapshots, tracks the dependency
chains between full and incremental backups, prunes aged chains under
a two-tier retention policy, and reconstructs chains for restore with
pg_combinebackup.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command and exits with a code that identifies
// the failure class.
func Execute() {
	log, err := logger.Init()
	if err != nil {
		os.Exit(exitConfig)
	}
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		log.Error("command failed", "error", err.Error())
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, config.ErrLoadConfig), errors.Is(err, config.ErrValidateConfig):
		return exitConfig
	case errors.Is(err, chain.ErrBrokenChain), errors.Is(err, pgtool.ErrCombineFailed):
		return exitRestore
	case errors.Is(err, pgtool.ErrSnapshotFailed):
		return exitBackup
	default:
		return exitConfig
	}
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&ConfigFile, "config", "c", "./configs/config.yaml", "path to YAML config file")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(configCmd)
}
