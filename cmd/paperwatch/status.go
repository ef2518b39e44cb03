package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperwatch/internal/scheduler"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database counts, subscriptions, and the daily schedule",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	counts, err := st.Counts(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Database:  %s\n", cfg.Store.Path)
	fmt.Printf("Papers:    %d (%d with PDF)\n", counts.Papers, counts.WithDocument)
	fmt.Printf("Previews:  %d\n", counts.Previews)

	hour, minute, err := scheduler.ParseTimeOfDay(cfg.Schedule.TimeOfDay)
	if err != nil {
		return err
	}
	fmt.Printf("Schedule:  daily at %02d:%02d %s\n", hour, minute, cfg.Schedule.Timezone)

	fmt.Printf("\nSubscriptions (%d):\n", len(cfg.Subscriptions))
	for _, s := range cfg.Subscriptions {
		state := "enabled"
		if !s.Enabled {
			state = "disabled"
		}
		if err := s.Validate(); err != nil {
			state = "invalid: " + err.Error()
		}
		fmt.Printf("  %-24s  %-8s  keywords: %s", s.Name, state, strings.Join(s.Keywords, ", "))
		if len(s.Categories) > 0 {
			fmt.Printf("  categories: %s", strings.Join(s.Categories, ", "))
		}
		fmt.Println()
	}
	return nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
