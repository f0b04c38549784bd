package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kebairia/pgchain/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(ConfigFile); err == nil {
			return fmt.Errorf("%s already exists", ConfigFile)
		}
		if err := os.MkdirAll(filepath.Dir(ConfigFile), 0o755); err != nil {
			return err
		}

		data, err := yaml.Marshal(config.Default())
		if err != nil {
			return fmt.Errorf("marshal default config: %w", err)
		}
		if err := os.WriteFile(ConfigFile, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", ConfigFile)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
