// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperwatch/internal/pipeline"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one pass over the subscriptions",
	Long: `Crawl searches arXiv for every enabled subscription (or only the one
named with --subscription), stores new papers, downloads missing documents,
and saves a preview of each download. Papers already stored with a document
are skipped.

Ctrl+C stops the run after the papers in flight; the summary is still
printed.`,
	RunE: runCrawl,
}

func runCrawl(cmd *cobra.Command, args []string) error {
	sub, _ := cmd.Flags().GetString("subscription")

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Interrupts close Stop; in-flight requests keep their own timeouts.
	summary, err := a.pipeline.Run(context.WithoutCancel(ctx), pipeline.RunOptions{
		Subscription: sub,
		Stop:         ctx.Done(),
	})
	if err != nil {
		return err
	}
	summary.Print(os.Stdout)

	if summary.HasFailures() {
		return fmt.Errorf("%d paper(s) and %d subscription(s) failed", summary.Failed, summary.SubscriptionsFailed)
	}
	return nil
}

func init() {
	crawlCmd.Flags().String("subscription", "", "run only this subscription, even if disabled")
	rootCmd.AddCommand(crawlCmd)
}
