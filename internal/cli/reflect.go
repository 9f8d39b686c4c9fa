package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hobbotdev/hobbot/internal/config"
	"github.com/hobbotdev/hobbot/internal/engine"
	"github.com/hobbotdev/hobbot/internal/llm"
	"github.com/spf13/cobra"
)

var reflectCmd = &cobra.Command{
	Use:   "reflect [events.json]",
	Short: "Run one reflection cycle, optionally from a cycle-events JSON file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReflect,
}

func runReflect(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.LLM.Provider = "anthropic"
		cfg.LLM.AnthropicKey = key
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("llm client: %w", err)
	}

	db, err := openDefaultDB()
	if err != nil {
		return err
	}
	defer db.Close()

	events := engine.NewCycleEvents()
	if len(args) == 1 {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read events file: %w", err)
		}
		if err := json.Unmarshal(raw, events); err != nil {
			return fmt.Errorf("parse events file: %w", err)
		}
	}

	eng := engine.New(db, client, cfg.Memory)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ref, err := eng.Reflect(ctx, events.Snapshot())
	if err != nil {
		return err
	}

	fmt.Printf("reflection recorded (cost $%.4f):\n%s\n", ref.EstimatedCost, ref.LearningSummary)
	return nil
}
