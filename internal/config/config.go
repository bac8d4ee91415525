package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"medichat-backend/internal/router"
)

// BotConfig carries the tunable parts of the chat behavior. Everything
// has a working default so deployments without a config file still run.
type BotConfig struct {
	// Greetings are matched verbatim (or as a "hi i am ..." style prefix)
	// before any engine call.
	Greetings []string `yaml:"greetings"`

	// PolicyDocuments lists object keys inside the policy bucket. Empty
	// means every object in the bucket.
	PolicyDocuments []string `yaml:"policy_documents"`

	// HistoryWindow is how many recent turns are replayed into prompts.
	HistoryWindow int `yaml:"history_window"`

	// RetrievalTopK is how many policy chunks back a document answer.
	RetrievalTopK int `yaml:"retrieval_top_k"`
}

func DefaultBotConfig() BotConfig {
	return BotConfig{
		Greetings:     router.DefaultGreetings,
		HistoryWindow: 6,
		RetrievalTopK: 4,
	}
}

// LoadBotConfig reads the YAML file at path, filling anything it does
// not set from the defaults. An empty path returns the defaults.
func LoadBotConfig(path string) (BotConfig, error) {
	cfg := DefaultBotConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return BotConfig{}, fmt.Errorf("error reading bot config %s: %w", path, err)
	}

	var loaded BotConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return BotConfig{}, fmt.Errorf("error parsing bot config %s: %w", path, err)
	}

	if len(loaded.Greetings) > 0 {
		cfg.Greetings = loaded.Greetings
	}
	if len(loaded.PolicyDocuments) > 0 {
		cfg.PolicyDocuments = loaded.PolicyDocuments
	}
	if loaded.HistoryWindow > 0 {
		cfg.HistoryWindow = loaded.HistoryWindow
	}
	if loaded.RetrievalTopK > 0 {
		cfg.RetrievalTopK = loaded.RetrievalTopK
	}

	return cfg, nil
}
