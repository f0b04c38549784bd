package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// ErrLoadConfig indicates a failure to read or parse the YAML configuration.
var ErrLoadConfig = errors.New("config load failed")

// ErrValidateConfig indicates that the loaded configuration is invalid.
var ErrValidateConfig = errors.New("configuration validation failed")

// Config represents the top-level YAML configuration file.
type Config struct {
	Include   []string        `mapstructure:"include"   yaml:"include,omitempty"`
	Backup    BackupConfig    `mapstructure:"backup"    yaml:"backup"`
	Retention RetentionConfig `mapstructure:"retention" yaml:"retention"`
	Postgres  PostgresConfig  `mapstructure:"postgres"  yaml:"postgres"`
	Vault     VaultConfig     `mapstructure:"vault"     yaml:"vault"`
	Restore   RestoreConfig   `mapstructure:"restore"   yaml:"restore"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"  yaml:"schedule"`
}

// BackupConfig contains the backup root and snapshot creation options.
type BackupConfig struct {
	Directory        string        `mapstructure:"directory"          yaml:"directory"`
	Timeout          time.Duration `mapstructure:"timeout"            yaml:"timeout"`
	FullIntervalDays int           `mapstructure:"full_interval_days" yaml:"full_interval_days"`
}

// RetentionConfig holds the two day-based retention windows.
type RetentionConfig struct {
	KeepFullDays        int `mapstructure:"keep_full_days"        yaml:"keep_full_days"`
	KeepIncrementalDays int `mapstructure:"keep_incremental_days" yaml:"keep_incremental_days"`
}

// PostgresConfig holds connection settings for the cluster being
// backed up. Password comes from Vault (role_path) or PGPASSWORD.
type PostgresConfig struct {
	Host     string `mapstructure:"host"      yaml:"host"`
	Port     string `mapstructure:"port"      yaml:"port"`
	Username string `mapstructure:"username"  yaml:"username"`
	RolePath string `mapstructure:"role_path" yaml:"role_path,omitempty"`
}

// VaultConfig holds connection settings for HashiCorp Vault.
type VaultConfig struct {
	Address     string `mapstructure:"address"      yaml:"address,omitempty"`
	ApproleName string `mapstructure:"approle_name" yaml:"approle_name,omitempty"`
	RoleID      string `mapstructure:"role_id"      yaml:"role_id,omitempty"`
}

// RestoreConfig holds where combined restores are materialized.
type RestoreConfig struct {
	OutputDirectory string `mapstructure:"output_directory" yaml:"output_directory"`
}

// ScheduleConfig enables the optional in-process scheduler.
type ScheduleConfig struct {
	Cron string `mapstructure:"cron" yaml:"cron,omitempty"`
}

// Load reads the configuration from the given YAML file using Viper,
// merges any included files, and unmarshals into the Config struct.
func (c *Config) Load(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PGCHAIN")
	v.AutomaticEnv()

	v.SetDefault("backup.timeout", "1h")
	v.SetDefault("backup.full_interval_days", 30)
	v.SetDefault("retention.keep_full_days", 90)
	v.SetDefault("retention.keep_incremental_days", 14)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")

	// Read base configuration
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: read base config %s: %v", ErrLoadConfig, path, err)
	}

	// Merge include files (if any)
	for _, inc := range v.GetStringSlice("include") {
		data, err := os.ReadFile(inc)
		if err != nil {
			return fmt.Errorf("%w: read include %s: %v", ErrLoadConfig, inc, err)
		}
		if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("%w: merge include %s: %v", ErrLoadConfig, inc, err)
		}
	}

	// Unmarshal into the Config struct; durations like "90m" decode
	// through the string-to-duration hook.
	if err := v.Unmarshal(c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return fmt.Errorf("%w: unmarshal config: %v", ErrLoadConfig, err)
	}

	return c.Validate()
}

// Validate rejects configurations that cannot drive a backup cycle.
func (c *Config) Validate() error {
	if c.Backup.Directory == "" {
		return fmt.Errorf("%w: backup.directory is required", ErrValidateConfig)
	}
	if c.Backup.FullIntervalDays <= 0 {
		return fmt.Errorf("%w: backup.full_interval_days must be positive", ErrValidateConfig)
	}
	if c.Retention.KeepFullDays <= 0 || c.Retention.KeepIncrementalDays <= 0 {
		return fmt.Errorf("%w: retention windows must be positive", ErrValidateConfig)
	}
	if c.Retention.KeepIncrementalDays > c.Retention.KeepFullDays {
		return fmt.Errorf("%w: keep_incremental_days exceeds keep_full_days", ErrValidateConfig)
	}
	return nil
}

// Default returns the configuration written by `pgchain config init`.
func Default() Config {
	return Config{
		Backup: BackupConfig{
			Directory:        "/backups",
			Timeout:          time.Hour,
			FullIntervalDays: 30,
		},
		Retention: RetentionConfig{
			KeepFullDays:        90,
			KeepIncrementalDays: 14,
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     "5432",
			Username: "backup",
		},
		Restore: RestoreConfig{
			OutputDirectory: "/restore",
		},
	}
}
