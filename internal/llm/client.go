package llm

import (
	"context"
	"fmt"

	"github.com/hobbotdev/hobbot/internal/config"
)

// Message is one role-tagged entry in a completion request.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Request describes a single completion call.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	JSONMode    bool // ask the provider for machine-parseable output
}

// Response holds the result of a completion.
type Response struct {
	Content       string
	Provider      string
	Model         string
	InputTokens   int
	OutputTokens  int
	EstimatedCost float64
}

// Client is the interface for text-generation providers.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Per-million-token prices used for cost estimates. Unknown models fall back
// to the default row.
type pricing struct {
	inputPerMTok  float64
	outputPerMTok float64
}

var modelPricing = map[string]pricing{
	"claude-haiku-4-5-20251001":  {1.00, 5.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"llama3.2":                   {0, 0},
}

var defaultPricing = pricing{1.00, 5.00}

// EstimateCost derives a monetary cost estimate from token usage.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := modelPricing[model]
	if !ok {
		p = defaultPricing
	}
	return float64(inputTokens)/1e6*p.inputPerMTok + float64(outputTokens)/1e6*p.outputPerMTok
}

// NewClient creates an LLM client based on the config provider setting.
func NewClient(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY or config")
		}
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return NewAnthropic(cfg.AnthropicKey, model), nil
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.OllamaModel
		if model == "" {
			model = "llama3.2"
		}
		return NewOllama(url, model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}
