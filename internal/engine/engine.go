package engine

import (
	"log"

	"github.com/hobbotdev/hobbot/internal/config"
	"github.com/hobbotdev/hobbot/internal/llm"
	"github.com/hobbotdev/hobbot/internal/store"
)

// Engine owns the knowledge lifecycle: budgeted retrieval, context assembly,
// per-cycle reflection, and decay/prune maintenance.
type Engine struct {
	DB  *store.DB
	LLM llm.Client
	cfg config.MemoryConfig
}

// New creates an Engine. client may be nil; reflection then reports an error
// instead of calling out.
func New(db *store.DB, client llm.Client, cfg config.MemoryConfig) *Engine {
	if cfg.StaleDays <= 0 {
		cfg.StaleDays = store.DefaultStaleDays
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = store.DefaultMinConfidence
	}
	if cfg.CharBudget <= 0 {
		cfg.CharBudget = defaultCharBudget
	}
	return &Engine{DB: db, LLM: client, cfg: cfg}
}

// Maintain runs one decay+prune pass. Safe to run on any cadence; decay is
// rate-limited per record at the store.
func (e *Engine) Maintain() (decayed, pruned int, err error) {
	decayed, err = e.DB.DecayStaleKnowledge(e.cfg.StaleDays)
	if err != nil {
		return 0, 0, err
	}
	if decayed > 0 {
		log.Printf("maintain: decayed %d stale records", decayed)
	}

	pruned, err = e.DB.PruneDeadKnowledge(e.cfg.MinConfidence)
	if err != nil {
		return decayed, 0, err
	}
	if pruned > 0 {
		log.Printf("maintain: pruned %d dead records", pruned)
	}
	return decayed, pruned, nil
}
