package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hobbotdev/hobbot/internal/config"
	"github.com/hobbotdev/hobbot/internal/engine"
	"github.com/hobbotdev/hobbot/internal/llm"
	"github.com/hobbotdev/hobbot/internal/server"
	"github.com/hobbotdev/hobbot/internal/store"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Default()

	// Check for ANTHROPIC_API_KEY env override
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.LLM.Provider = "anthropic"
		cfg.LLM.AnthropicKey = key
	}

	// Resolve database path
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var llmClient llm.Client
	llmClient, err = llm.NewClient(cfg.LLM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: LLM not configured (%v), reflection disabled\n", err)
		llmClient = nil
	} else {
		fmt.Fprintf(os.Stderr, "  llm: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
	}

	eng := engine.New(db, llmClient, cfg.Memory)

	// Run decay+prune at startup, then on the configured cadence.
	if _, _, err := eng.Maintain(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: maintenance pass failed: %v\n", err)
	}
	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Memory.MaintainSchedule, func() {
		if _, _, err := eng.Maintain(); err != nil {
			fmt.Fprintf(os.Stderr, "maintenance pass failed: %v\n", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule maintenance (%q): %w", cfg.Memory.MaintainSchedule, err)
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(db, eng, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "hobbot memory serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
