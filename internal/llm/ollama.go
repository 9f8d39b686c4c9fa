package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Ollama calls a local Ollama instance via the chat endpoint.
type Ollama struct {
	url    string
	model  string
	client *http.Client
}

// NewOllama creates a new Ollama client.
func NewOllama(url, model string) *Ollama {
	return &Ollama{
		url:    url,
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// Complete sends a chat request to Ollama.
func (o *Ollama) Complete(ctx context.Context, req *Request) (*Response, error) {
	var messages []map[string]string
	for _, m := range req.Messages {
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	reqBody := map[string]any{
		"model":    o.model,
		"messages": messages,
		"stream":   false,
		"options": map[string]any{
			"temperature": req.Temperature,
			"num_predict": maxTokens,
		},
	}
	if req.JSONMode {
		reqBody["format"] = "json"
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.url+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama api status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		PromptEvalCount int `json:"prompt_eval_count"`
		EvalCount       int `json:"eval_count"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &Response{
		Content:       result.Message.Content,
		Provider:      "ollama",
		Model:         o.model,
		InputTokens:   result.PromptEvalCount,
		OutputTokens:  result.EvalCount,
		EstimatedCost: 0, // local inference
	}, nil
}
