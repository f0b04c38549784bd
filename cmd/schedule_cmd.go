package cmd

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/kebairia/pgchain/internal/config"
	"github.com/kebairia/pgchain/internal/logger"
	"github.com/kebairia/pgchain/internal/operations"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run backup cycles on the configured cron schedule",
	Long: `schedule keeps the process alive and runs one backup cycle per
cron tick. Deployments that already have a timer unit should call
"pgchain backup" from it instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg config.Config
		if err := cfg.Load(ConfigFile); err != nil {
			return err
		}
		if cfg.Schedule.Cron == "" {
			return fmt.Errorf("%w: schedule.cron is required", config.ErrValidateConfig)
		}
		log := logger.Global()

		c := cron.New()
		// A fresh Operator per tick, so Vault leases are renewed.
		_, err := c.AddFunc(cfg.Schedule.Cron, func() {
			op, err := operations.NewOperator(ConfigFile)
			if err != nil {
				log.Error("scheduled backup skipped", "error", err.Error())
				return
			}
			if err := op.Backup(); err != nil {
				log.Error("scheduled backup failed", "error", err.Error())
			}
		})
		if err != nil {
			return fmt.Errorf("%w: schedule.cron %q: %v", config.ErrValidateConfig, cfg.Schedule.Cron, err)
		}

		log.Info("scheduler started", "cron", cfg.Schedule.Cron)
		c.Run()
		return nil
	},
}
