package cli

import (
	"fmt"

	"github.com/hobbotdev/hobbot/internal/config"
	"github.com/hobbotdev/hobbot/internal/engine"
	"github.com/spf13/cobra"
)

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run one decay+prune pass over the knowledge store",
	RunE:  runMaintain,
}

func runMaintain(cmd *cobra.Command, args []string) error {
	db, err := openDefaultDB()
	if err != nil {
		return err
	}
	defer db.Close()

	eng := engine.New(db, nil, config.Default().Memory)
	decayed, pruned, err := eng.Maintain()
	if err != nil {
		return err
	}
	fmt.Printf("decayed %d, pruned %d\n", decayed, pruned)
	return nil
}
