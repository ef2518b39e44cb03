// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperwatch/internal/store"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove downloaded documents and clear the database",
	Long: `Clean deletes the files in the documents directory and empties every
database table, leaving the schema and the config file in place. The next
crawl starts from scratch. It refuses to run without --yes.`,
	RunE: runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	keepFiles, _ := cmd.Flags().GetBool("keep-files")
	if !yes {
		return errors.New("clean deletes all stored papers; pass --yes to confirm")
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	if !keepFiles {
		n, err := removeFiles(cfg.Pipeline.DocumentsDir)
		if err != nil {
			return err
		}
		log.Info().Str("dir", cfg.Pipeline.DocumentsDir).Int("files", n).Msg("documents removed")
		fmt.Printf("Removed %d files from %s\n", n, cfg.Pipeline.DocumentsDir)
	}

	st, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	papers, err := st.Clear(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Cleared database %s (%d papers)\n", cfg.Store.Path, papers)
	return nil
}

// removeFiles deletes the regular files directly inside dir and returns how
// many were removed. Subdirectories are left alone; a missing dir is not an
// error.
func removeFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", dir, err)
	}

	var n int
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return n, fmt.Errorf("removing %s: %w", path, err)
		}
		n++
	}
	return n, nil
}

func init() {
	cleanCmd.Flags().Bool("yes", false, "confirm deleting all stored papers")
	cleanCmd.Flags().Bool("keep-files", false, "clear the database but leave downloaded documents")
	rootCmd.AddCommand(cleanCmd)
}
