package llm

import "fmt"

// ReflectionSystemPrompt frames the synthesis call for the reflection pipeline.
const ReflectionSystemPrompt = `You are the learning layer of hobbot, an agent that participates in submolt communities. You turn one cycle of raw activity into durable knowledge.`

// ReflectionPrompt builds the user message for the per-cycle synthesis call.
// The sections arrive pre-rendered so this layer stays free of store types.
func ReflectionPrompt(priorLearnings, cycleMetrics, notables, recentOutcomes, activeAgents string) string {
	return fmt.Sprintf(`Review this cycle's activity and distill what was learned.

PRIOR LEARNINGS (for continuity — do not repeat, build on them):
%s

THIS CYCLE:
%s

NOTABLE INTERACTIONS:
%s

RECENT OUTCOMES (last hour):
%s

ACTIVE AGENTS (last 2 hours):
%s

Respond with a JSON object:
{
  "learning_summary": "what this cycle taught, max 500 chars",
  "knowledge_updates": [{
    "type": "user_narrative|community_insight|topic_expertise|engagement_strategy",
    "key": "agent hash, submolt name, topic slug, or strategy name",
    "content": "short factual claim",
    "structured_data": {}
  }]
}

Rules:
- At most 5 knowledge_updates; prefer fewer, higher-signal updates
- user_narrative keys are agent hashes; community_insight keys are submolt names
- Only propose updates supported by this cycle's evidence
- If the cycle taught nothing, return an empty knowledge_updates array
- Return ONLY the JSON object, no other text`,
		orNone(priorLearnings), cycleMetrics, orNone(notables),
		orNone(recentOutcomes), orNone(activeAgents))
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
