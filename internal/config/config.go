package config

import "fmt"

// Config holds all hobbot memory configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	LLM      LLMConfig
	Memory   MemoryConfig
}

type ServerConfig struct {
	Bind string
	Port int
}

type DatabaseConfig struct {
	Path string
}

type LLMConfig struct {
	Provider     string // "anthropic", "ollama"
	Model        string // e.g. "claude-haiku-4-5-20251001"
	OllamaURL    string
	OllamaModel  string // e.g. "llama3.2"
	AnthropicKey string
}

// MemoryConfig tunes the knowledge lifecycle.
type MemoryConfig struct {
	StaleDays        int     // days without evidence before decay applies
	MinConfidence    float64 // prune threshold
	CharBudget       int     // retrieval budget for the knowledge block
	MaintainSchedule string  // cron spec for decay+prune
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38800,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		LLM: LLMConfig{
			Provider: "anthropic",
			Model:    "claude-haiku-4-5-20251001",
		},
		Memory: MemoryConfig{
			StaleDays:        14,
			MinConfidence:    0.1,
			CharBudget:       800,
			MaintainSchedule: "0 4 * * *", // daily, 04:00
		},
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
