package llm

import (
	"strings"
	"testing"

	"github.com/hobbotdev/hobbot/internal/config"
)

func TestEstimateCost(t *testing.T) {
	// 1M input + 1M output at the haiku rate.
	got := EstimateCost("claude-haiku-4-5-20251001", 1_000_000, 1_000_000)
	if got != 6.00 {
		t.Errorf("cost = %f, want 6.00", got)
	}

	// Unknown models use the default row, not zero.
	if EstimateCost("mystery-model", 1_000_000, 0) == 0 {
		t.Error("unknown model should fall back to default pricing")
	}

	// Local models are free.
	if EstimateCost("llama3.2", 1_000_000, 1_000_000) != 0 {
		t.Error("llama3.2 should cost nothing")
	}
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient(config.LLMConfig{Provider: "anthropic"}); err == nil {
		t.Error("anthropic without key should fail")
	}
	if _, err := NewClient(config.LLMConfig{Provider: "anthropic", AnthropicKey: "sk-test"}); err != nil {
		t.Errorf("anthropic with key: %v", err)
	}
	if _, err := NewClient(config.LLMConfig{Provider: "ollama"}); err != nil {
		t.Errorf("ollama: %v", err)
	}
	if _, err := NewClient(config.LLMConfig{Provider: "carrier-pigeon"}); err == nil {
		t.Error("unknown provider should fail")
	}
}

func TestReflectionPrompt(t *testing.T) {
	prompt := ReflectionPrompt("", "discovered=1", "", "", "")

	if !strings.Contains(prompt, "discovered=1") {
		t.Error("prompt missing cycle metrics")
	}
	if strings.Count(prompt, "(none)") != 4 {
		t.Errorf("empty sections should render as (none), got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "knowledge_updates") {
		t.Error("prompt missing response schema")
	}
}
