package engine

import (
	"log"

	"github.com/hobbotdev/hobbot/internal/store"
)

// Retrieval thresholds. General knowledge qualifies at 0.2; strategies need
// more backing before they steer behavior.
const (
	defaultCharBudget  = 800
	minRetrievalConf   = 0.2
	minStrategyConf    = 0.4
	maxTopicRecords    = 3
	maxStrategyRecords = 3
)

// SelectKnowledge picks knowledge records for a request context under a
// character budget. Selection walks strict priority tiers — author narrative,
// community insight, topic expertise (input order), engagement strategies —
// and within a tier accepts each candidate greedily iff its formatted length
// fits the remaining budget. A candidate that doesn't fit never blocks a
// smaller one later in the same tier, but an exhausted budget stops all
// remaining tiers. The result keeps tier order; it is never re-sorted.
func (e *Engine) SelectKnowledge(authorKey, communityKey string, topics []string, charBudget int) []store.KnowledgeRecord {
	if charBudget <= 0 {
		charBudget = defaultCharBudget
	}
	remaining := charBudget
	var selected []store.KnowledgeRecord

	take := func(rec *store.KnowledgeRecord, minConf float64) {
		if rec == nil || rec.Confidence < minConf {
			return
		}
		n := len(FormatEntry(rec))
		if n > remaining {
			return
		}
		selected = append(selected, *rec)
		remaining -= n
	}

	// Tier 1: the post author's narrative.
	if authorKey != "" && remaining > 0 {
		rec, err := e.DB.GetKnowledge(store.KnowledgeUserNarrative, authorKey)
		if err != nil {
			log.Printf("retrieval: author lookup %q: %v", authorKey, err)
		} else {
			take(rec, minRetrievalConf)
		}
	}

	// Tier 2: the submolt's community insight.
	if communityKey != "" && remaining > 0 {
		rec, err := e.DB.GetKnowledge(store.KnowledgeCommunityInsight, communityKey)
		if err != nil {
			log.Printf("retrieval: community lookup %q: %v", communityKey, err)
		} else {
			take(rec, minRetrievalConf)
		}
	}

	// Tier 3: topic expertise, in input order. Input order is deliberate —
	// the caller ranks topics by signal strength, not by our confidence.
	if len(topics) > maxTopicRecords {
		topics = topics[:maxTopicRecords]
	}
	for _, topic := range topics {
		if remaining <= 0 {
			break
		}
		rec, err := e.DB.GetKnowledge(store.KnowledgeTopicExpertise, topic)
		if err != nil {
			log.Printf("retrieval: topic lookup %q: %v", topic, err)
			continue
		}
		take(rec, minRetrievalConf)
	}

	// Tier 4: proven engagement strategies fill whatever budget is left.
	if remaining > 0 {
		recs, err := e.DB.GetKnowledgeByType(store.KnowledgeEngagementStrategy, minStrategyConf, maxStrategyRecords)
		if err != nil {
			log.Printf("retrieval: strategy lookup: %v", err)
		} else {
			for i := range recs {
				take(&recs[i], minStrategyConf)
			}
		}
	}

	return selected
}
