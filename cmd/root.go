package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"margin/internal/annotate"
	"margin/internal/config"
	"margin/internal/store"
	"margin/internal/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "margin",
	Short: "Qualitative coding for free text",
	Long: "Margin lets an analyst load texts, tag substrings with named codes,\n" +
		"and review all coded segments — from the terminal.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .margin.yaml)")
	rootCmd.PersistentFlags().String("db", "", "path to the annotation database")
	rootCmd.PersistentFlags().Bool("ephemeral", false, "keep everything in memory, persist nothing")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	_ = viper.BindPFlag("db_path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("ephemeral", rootCmd.PersistentFlags().Lookup("ephemeral"))
	_ = viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".margin")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("MARGIN")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}

// openStores opens the configured backend: SQLite by default, memory in
// ephemeral mode. The returned closer is never nil.
func openStores(ctx context.Context, cfg config.Config) (annotate.Stores, func() error, error) {
	if cfg.Ephemeral {
		return store.NewMemory().Stores(), func() error { return nil }, nil
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return annotate.Stores{}, nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := store.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return annotate.Stores{}, nil, err
	}
	return db.Stores(), db.Close, nil
}

// openEmitter opens the telemetry emitter when configured; a nil emitter
// is a valid no-op.
func openEmitter(cfg config.Config) *telemetry.Emitter {
	if cfg.TelemetryPath == "" {
		return nil
	}
	em, err := telemetry.NewEmitter(cfg.TelemetryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
		return nil
	}
	return em
}
