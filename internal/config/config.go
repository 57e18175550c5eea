// Package config loads dkvfvr's runtime configuration from command-line
// flags, environment variables (prefixed DKVFVR_), and .env files, layered
// in that order by viper.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fvrstore/fvrstore/mdm"
)

// Init loads .env files and wires viper's environment-variable layer. Call
// once from cobra.OnInitialize.
func Init() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("dkvfvr")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindFlags registers the flags common to every command that opens a data
// root, with defaults matching mdm.DefaultConfig.
func BindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("data-dir", "data", "root directory holding one subdirectory per logical database")
	cmd.PersistentFlags().Int("max-open-db", 300, "maximum number of simultaneously resident databases")
	cmd.PersistentFlags().Duration("max-idle-time", 60*time.Minute, "evict a resident database this long after it was loaded")
	cmd.PersistentFlags().Float64("max-disk-usage-gb", 0, "total disk quota for data-dir in gigabytes (0 disables enforcement)")
	cmd.PersistentFlags().Duration("clean-task-delay", time.Minute, "initial delay before the first maintenance run")
	cmd.PersistentFlags().Duration("clean-task-period", 10*time.Minute, "interval between maintenance runs")
	cmd.PersistentFlags().Int32("db-version-count", 64, "per-database FVR record capacity")
	cmd.PersistentFlags().Duration("db-version-expire", 30*time.Minute, "per-database open-handle lifetime, counted from when the handle was opened")
	cmd.PersistentFlags().Duration("db-version-clean-time", 24*time.Hour, "per-database version reclamation window")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
}

// Load binds cmd's flags into viper and returns an mdm.Config populated
// from the layered flag/env/file configuration.
func Load(cmd *cobra.Command) (mdm.Config, string, error) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return mdm.Config{}, "", err
	}

	cfg := mdm.Config{
		DataDir:            viper.GetString("data-dir"),
		MaxOpenDB:          viper.GetInt("max-open-db"),
		MaxIdleTime:        viper.GetDuration("max-idle-time"),
		MaxDiskUsageGB:     viper.GetFloat64("max-disk-usage-gb"),
		CleanTaskDelay:     viper.GetDuration("clean-task-delay"),
		CleanTaskPeriod:    viper.GetDuration("clean-task-period"),
		DBVersionCount:     int32(viper.GetInt("db-version-count")),
		DBVersionExpire:    viper.GetDuration("db-version-expire"),
		DBVersionCleanTime: viper.GetDuration("db-version-clean-time"),
	}

	return cfg, viper.GetString("log-level"), nil
}
