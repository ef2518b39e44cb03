package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperwatch/internal/config"
	"github.com/pdiddy/paperwatch/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file, data directories, and database",
	Long: `Init writes a default paperwatch.yaml (unless one exists), creates the
documents directory and the database directory, and initializes the
database schema. Running it again is harmless.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("write-config")
	if path != "" {
		wrote, err := config.WriteDefault(path)
		if err != nil {
			return err
		}
		if wrote {
			fmt.Printf("Wrote default config to %s\n", path)
		} else {
			fmt.Printf("Config %s already exists, leaving it unchanged\n", path)
		}
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	for _, dir := range []string{cfg.Pipeline.DocumentsDir, filepath.Dir(cfg.Store.Path)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	st, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Printf("Database ready at %s\n", cfg.Store.Path)
	fmt.Printf("Documents will be saved to %s\n", cfg.Pipeline.DocumentsDir)
	return nil
}

func init() {
	initCmd.Flags().String("write-config", "paperwatch.yaml", "path for the default config file (empty to skip)")
	rootCmd.AddCommand(initCmd)
}
