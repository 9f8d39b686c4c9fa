package engine

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/hobbotdev/hobbot/internal/store"
)

// Section and block limits for the assembled context. The knowledge section
// limit leaves headroom over the retrieval budget for its header line.
const (
	maxDigestChars    = 700
	maxKnowledgeChars = 900
	maxLearningsChars = 400
	maxContextChars   = 2000
	maxLearningLines  = 3
)

// contextPrefix heads the assembled block handed to the generation prompt.
const contextPrefix = "PLATFORM INTELLIGENCE:"

// FormatEntry renders a knowledge record as a single line:
// [type] key (conf:0.37): payload. The payload is the structured data
// re-serialized compactly when present and parseable, otherwise the content.
func FormatEntry(rec *store.KnowledgeRecord) string {
	payload := rec.Content
	if rec.StructuredData != "" {
		var v any
		if err := json.Unmarshal([]byte(rec.StructuredData), &v); err == nil {
			if compact, err := json.Marshal(v); err == nil {
				payload = string(compact)
			}
		}
	}
	return fmt.Sprintf("[%s] %s (conf:%.2f): %s", rec.Type, rec.Key, rec.Confidence, payload)
}

// digest is the structured form of the externally supplied landscape digest.
type digest struct {
	LandscapeSummary string   `json:"landscape_summary"`
	DominantPatterns []string `json:"dominant_patterns"`
	EmergingTrends   []string `json:"emerging_trends"`
	GenerationSeeds  []string `json:"generation_seeds"`
}

// FormatDigest renders a raw digest into prompt-ready text. Structured input
// (JSON with any subset of the digest fields) gets field-wise rendering;
// anything that fails to parse is treated as legacy prose. Either way the
// result passes through TruncateAtSentence.
func FormatDigest(rawDigest string, maxChars int) string {
	rawDigest = strings.TrimSpace(rawDigest)
	if rawDigest == "" {
		return ""
	}

	var d digest
	if err := json.Unmarshal([]byte(rawDigest), &d); err != nil {
		return TruncateAtSentence(rawDigest, maxChars)
	}

	var parts []string
	if d.LandscapeSummary != "" {
		parts = append(parts, d.LandscapeSummary)
	}
	if len(d.DominantPatterns) > 0 {
		parts = append(parts, "Patterns: "+strings.Join(d.DominantPatterns, ", "))
	}
	if len(d.EmergingTrends) > 0 {
		parts = append(parts, "Trends: "+strings.Join(d.EmergingTrends, "; "))
	}
	if len(d.GenerationSeeds) > 0 {
		var b strings.Builder
		b.WriteString("Seeds:")
		for _, s := range d.GenerationSeeds {
			b.WriteString("\n- ")
			b.WriteString(s)
		}
		parts = append(parts, b.String())
	}
	// Parsed but carried none of the known fields: nothing worth injecting.
	if len(parts) == 0 {
		return ""
	}

	return TruncateAtSentence(strings.Join(parts, "\n"), maxChars)
}

// TruncateAtSentence cuts text to maxChars, preferring a sentence boundary
// (terminal punctuation followed by a space or line break) at or past the 50%
// mark, then a line break at or past the 50% mark, then a hard cut. Text that
// already fits is returned unchanged.
func TruncateAtSentence(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if len(text) <= maxChars {
		return text
	}

	cut := text[:maxChars]
	half := maxChars / 2

	for i := len(cut) - 1; i >= half; i-- {
		switch cut[i] {
		case '.', '!', '?':
			next := text[i+1]
			if next == ' ' || next == '\n' || next == '\r' {
				return cut[:i+1]
			}
		}
	}

	if nl := strings.LastIndexByte(cut, '\n'); nl >= half {
		return cut[:nl]
	}

	return cut
}

// BuildContext assembles the prompt block for one request: the formatted
// digest, the retrieval engine's knowledge lines, and the most recent
// learning summaries, each section independently limited and any section
// free to be absent. Returns "" when nothing is available.
func (e *Engine) BuildContext(rawDigest, authorKey, communityKey string, topics []string) string {
	var sections []string

	if d := FormatDigest(rawDigest, maxDigestChars); d != "" {
		sections = append(sections, d)
	}

	// Knowledge and learnings reads are best-effort: a failed lookup costs
	// the section, never the block.
	if recs := e.SelectKnowledge(authorKey, communityKey, topics, e.cfg.CharBudget); len(recs) > 0 {
		var b strings.Builder
		b.WriteString("RELEVANT KNOWLEDGE:")
		for i := range recs {
			b.WriteString("\n")
			b.WriteString(FormatEntry(&recs[i]))
		}
		sections = append(sections, TruncateAtSentence(b.String(), maxKnowledgeChars))
	}

	learnings, err := e.DB.GetRecentLearnings(maxLearningLines)
	if err != nil {
		log.Printf("context: recent learnings: %v", err)
		learnings = nil
	}
	if len(learnings) > 0 {
		var b strings.Builder
		b.WriteString("RECENT LEARNINGS:")
		for _, l := range learnings {
			b.WriteString("\n- ")
			b.WriteString(l)
		}
		sections = append(sections, TruncateAtSentence(b.String(), maxLearningsChars))
	}

	if len(sections) == 0 {
		return ""
	}

	joined := TruncateAtSentence(strings.Join(sections, "\n\n"), maxContextChars)
	return contextPrefix + "\n" + joined
}
