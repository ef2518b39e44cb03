// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperwatch/internal/metrics"
	"github.com/pdiddy/paperwatch/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline every day at a fixed time",
	Long: `Schedule stays in the foreground and runs the pipeline once a day at
--at (default schedule.time_of_day) in schedule.timezone. SIGUSR1 requests
an immediate run; a request that arrives while a run is in progress is
dropped.

With --metrics-addr, Prometheus metrics are served at /metrics.

Ctrl+C stops the timer, lets the current paper finish, and exits.`,
	RunE: runSchedule,
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	at, _ := cmd.Flags().GetString("at")
	if at == "" {
		at = a.cfg.Schedule.TimeOfDay
	}
	addr, _ := cmd.Flags().GetString("metrics-addr")
	if addr == "" {
		addr = a.cfg.Metrics.Addr
	}
	runNow, _ := cmd.Flags().GetBool("run-now")

	loc, err := time.LoadLocation(a.cfg.Schedule.Timezone)
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}

	s := scheduler.New(a.pipeline, loc, a.log)
	if err := s.StartRecurring(at); err != nil {
		return err
	}
	s.Start(context.WithoutCancel(ctx))

	var srv *http.Server
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(a.registry))
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, s.State())
		})
		srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
			}
		}()
		fmt.Printf("Serving metrics on %s/metrics\n", addr)
	}

	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	defer signal.Stop(usr1)

	if runNow {
		s.RunNow("")
	}
	fmt.Printf("Next run: %s\n", s.NextRun().Format(time.RFC1123))

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-usr1:
			if !s.RunNow("") {
				fmt.Println("Run already in progress, request dropped")
			}
		}
	}

	fmt.Println("Shutting down...")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if srv != nil {
		srv.Shutdown(sctx)
	}
	if err := s.Shutdown(sctx); err != nil {
		return fmt.Errorf("waiting for the current run: %w", err)
	}
	if last, ok := s.LastSummary(); ok {
		last.Print(os.Stdout)
	}
	return nil
}

func init() {
	scheduleCmd.Flags().String("at", "", "daily run time as HH:MM (default schedule.time_of_day)")
	scheduleCmd.Flags().String("metrics-addr", "", "listen address for /metrics, e.g. :9090 (default metrics.addr)")
	scheduleCmd.Flags().Bool("run-now", false, "also run once at startup")
	rootCmd.AddCommand(scheduleCmd)
}
