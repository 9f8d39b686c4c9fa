package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hobbotdev/hobbot/internal/store"
	"github.com/spf13/cobra"
)

var knowledgeLimit int

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge [type]",
	Short: "List stored knowledge, optionally filtered by type",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runKnowledge,
}

func init() {
	knowledgeCmd.Flags().IntVar(&knowledgeLimit, "limit", 20, "max records per type")
}

func runKnowledge(cmd *cobra.Command, args []string) error {
	db, err := openDefaultDB()
	if err != nil {
		return err
	}
	defer db.Close()

	types := []store.KnowledgeType{
		store.KnowledgeUserNarrative,
		store.KnowledgeCommunityInsight,
		store.KnowledgeTopicExpertise,
		store.KnowledgeEngagementStrategy,
	}
	if len(args) == 1 {
		if !store.ValidKnowledgeType(args[0]) {
			return fmt.Errorf("unknown knowledge type %q", args[0])
		}
		types = []store.KnowledgeType{store.KnowledgeType(args[0])}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tKEY\tCONF\tEVIDENCE\tLAST EVIDENCE\tCONTENT")
	for _, t := range types {
		recs, err := db.GetKnowledgeByType(t, 0, knowledgeLimit)
		if err != nil {
			return fmt.Errorf("list %s: %w", t, err)
		}
		for _, rec := range recs {
			content := rec.Content
			if len(content) > 60 {
				content = content[:57] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%s\t%s\n",
				rec.Type, rec.Key, rec.Confidence, rec.EvidenceCount,
				time.UnixMilli(rec.LastEvidenceAt).Format("2006-01-02 15:04"), content)
		}
	}
	return w.Flush()
}

func openDefaultDB() (*store.DB, error) {
	path, err := store.DefaultDBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}
