// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paperwatch CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperwatch/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the paperwatch CLI.
var rootCmd = &cobra.Command{
	Use:   "paperwatch",
	Short: "Watch arXiv for new papers matching your subscriptions",
	Long: `paperwatch searches arXiv for the keywords and categories of each
configured subscription, records new papers in a local SQLite database,
downloads their PDFs, and keeps a short text preview of each one.

Run a single pass with crawl, or keep a daily schedule running with schedule.
Subscriptions and every other setting live in paperwatch.yaml; create one
with init.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paperwatch.yaml or ~/.config/paperwatch/paperwatch.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paperwatch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paperwatch"))
		}
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
