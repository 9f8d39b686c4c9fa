package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hobbotdev/hobbot/internal/llm"
	"github.com/hobbotdev/hobbot/internal/store"
)

// Reflection pipeline bounds.
const (
	maxKnowledgeUpdates = 5
	maxSummaryChars     = 500
	maxUpdateKeyChars   = 120
	maxUpdateChars      = 500
	maxStructuredChars  = 2000

	recentReflections = 4
	recentOutcomes    = 10
	activeAgents      = 5
)

// fallbackSummary stands in when the synthesis response cannot be parsed.
const fallbackSummary = "Cycle completed. Synthesis output was not parseable; no knowledge updates applied."

// KnowledgeUpdate is one knowledge mutation proposed by the synthesis call.
type KnowledgeUpdate struct {
	Type           string          `json:"type"`
	Key            string          `json:"key"`
	Content        string          `json:"content"`
	StructuredData json.RawMessage `json:"structured_data,omitempty"`
}

// reflectionResponse is the JSON shape requested from the synthesis call.
type reflectionResponse struct {
	LearningSummary  string            `json:"learning_summary"`
	KnowledgeUpdates []KnowledgeUpdate `json:"knowledge_updates"`
}

// Reflect turns one cycle's events into a persisted reflection record and a
// bounded set of knowledge mutations. Telemetry reads are best-effort; the
// synthesis call is not — its failure aborts the cycle's reflection with no
// state written. Everything after the call is isolated per item so a single
// bad mutation can't lose the rest.
func (e *Engine) Reflect(ctx context.Context, events CycleEvents) (*store.Reflection, error) {
	if e.LLM == nil {
		return nil, fmt.Errorf("reflection: no LLM client configured")
	}

	prior, err := e.DB.GetRecentReflections(recentReflections)
	if err != nil {
		log.Printf("reflect: load prior reflections: %v", err)
		prior = nil
	}

	outcomes, err := e.DB.GetRecentOutcomes(time.Hour, recentOutcomes)
	if err != nil {
		log.Printf("reflect: load outcomes: %v", err)
		outcomes = nil
	}

	agents, err := e.DB.GetActiveAgents(2*time.Hour, activeAgents)
	if err != nil {
		log.Printf("reflect: load active agents: %v", err)
		agents = nil
	}

	prompt := llm.ReflectionPrompt(
		renderPriorLearnings(prior),
		renderCycleMetrics(events),
		renderNotables(events.Notables),
		renderOutcomes(outcomes),
		renderAgents(agents),
	)

	resp, err := e.LLM.Complete(ctx, &llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: llm.ReflectionSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
		MaxTokens:   1024,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("reflection synthesis: %w", err)
	}

	parsed := parseReflectionResponse(resp.Content)
	updates := validateUpdates(parsed.KnowledgeUpdates)

	var updatesJSON string
	if len(updates) > 0 {
		if raw, err := json.Marshal(updates); err == nil {
			updatesJSON = string(raw)
		} else {
			log.Printf("reflect: marshal updates: %v", err)
		}
	}

	now := time.Now()
	ref := &store.Reflection{
		CycleTimestamp:  now.UnixMilli(),
		CycleHour:       now.Hour(),
		PostsDiscovered: events.PostsDiscovered,
		PostsEngaged:    events.PostsEngaged,
		PostsCataloged:  events.PostsCataloged,
		PostsFailed:     events.PostsFailed,
		RepliesSent:     events.RepliesSent,
		LearningSummary: parsed.LearningSummary,
		KnowledgeUpdate: updatesJSON,
		EstimatedCost:   resp.EstimatedCost,
	}
	if err := e.DB.AddReflection(ref); err != nil {
		// The mutations are still worth applying; losing the log entry
		// shouldn't lose the learning.
		log.Printf("reflect: persist reflection: %v", err)
	}

	applied := 0
	for _, u := range updates {
		structured := ""
		if len(u.StructuredData) > 0 {
			structured = string(u.StructuredData)
		}
		if _, _, err := e.DB.UpsertKnowledge(store.KnowledgeType(u.Type), u.Key, u.Content, structured, 1); err != nil {
			log.Printf("reflect: apply update %s/%s: %v", u.Type, u.Key, err)
			continue
		}
		applied++
	}
	if applied > 0 {
		log.Printf("reflect: applied %d/%d knowledge updates", applied, len(updates))
	}

	if err := e.DB.LogUsage("reflection", resp.Provider, resp.Model,
		resp.InputTokens, resp.OutputTokens, resp.EstimatedCost); err != nil {
		log.Printf("reflect: log usage: %v", err)
	}

	return ref, nil
}

// parseReflectionResponse extracts the JSON object from the synthesis output.
// The response might carry markdown code fences or stray wrapper text, and a
// truncated or malformed payload must not abort the cycle — it degrades to
// the fallback summary with no updates.
func parseReflectionResponse(content string) reflectionResponse {
	fallback := reflectionResponse{LearningSummary: fallbackSummary}

	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return fallback
	}

	var parsed reflectionResponse
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		log.Printf("reflect: unparseable synthesis response: %v", err)
		return fallback
	}

	parsed.LearningSummary = strings.TrimSpace(parsed.LearningSummary)
	if parsed.LearningSummary == "" {
		parsed.LearningSummary = fallbackSummary
	}
	if len(parsed.LearningSummary) > maxSummaryChars {
		parsed.LearningSummary = parsed.LearningSummary[:maxSummaryChars]
	}
	return parsed
}

// validateUpdates keeps the first 5 proposals that name a known type, a
// non-empty key, and non-empty content, clamping each field. Invalid
// candidates drop silently.
func validateUpdates(proposed []KnowledgeUpdate) []KnowledgeUpdate {
	var valid []KnowledgeUpdate
	for _, u := range proposed {
		if len(valid) >= maxKnowledgeUpdates {
			break
		}
		u.Key = strings.TrimSpace(u.Key)
		u.Content = strings.TrimSpace(u.Content)
		if !store.ValidKnowledgeType(u.Type) || u.Key == "" || u.Content == "" {
			continue
		}
		if len(u.Key) > maxUpdateKeyChars {
			u.Key = u.Key[:maxUpdateKeyChars]
		}
		if len(u.Content) > maxUpdateChars {
			u.Content = u.Content[:maxUpdateChars]
		}
		if len(u.StructuredData) > maxStructuredChars {
			u.StructuredData = nil
		}
		valid = append(valid, u)
	}
	return valid
}

func renderPriorLearnings(refs []store.Reflection) string {
	var b strings.Builder
	for _, r := range refs {
		if r.LearningSummary == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- [hour %02d] %s", r.CycleHour, r.LearningSummary)
	}
	return b.String()
}

func renderCycleMetrics(events CycleEvents) string {
	return fmt.Sprintf("discovered=%d engaged=%d cataloged=%d failed=%d replies=%d",
		events.PostsDiscovered, events.PostsEngaged, events.PostsCataloged,
		events.PostsFailed, events.RepliesSent)
}

func renderNotables(notables []NotableInteraction) string {
	var b strings.Builder
	for _, n := range notables {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s in %s by %s (score %.2f, threat %d)",
			n.Action, n.Submolt, agentLabel(n.AgentHash, n.AgentName), n.Score, n.ThreatLevel)
		if len(n.Topics) > 0 {
			fmt.Fprintf(&b, " topics=%s", strings.Join(n.Topics, ","))
		}
		if n.Summary != "" {
			fmt.Fprintf(&b, ": %s", n.Summary)
		}
	}
	return b.String()
}

func renderOutcomes(outcomes []store.InteractionOutcome) string {
	var b strings.Builder
	for _, o := range outcomes {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s in %s", o.HobbotAction, o.Submolt)
		if o.TopicSignals != "" {
			fmt.Fprintf(&b, " (%s)", o.TopicSignals)
		}
	}
	return b.String()
}

func renderAgents(agents []store.AgentProfile) string {
	var b strings.Builder
	for _, a := range agents {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s quality=%.2f interactions=%d",
			agentLabel(a.AgentHash, a.Username), a.QualityScore, a.InteractionCount)
	}
	return b.String()
}

func agentLabel(hash, name string) string {
	if name != "" {
		return name
	}
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
