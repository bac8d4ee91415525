package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBotConfigEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadBotConfig("")
	require.NoError(t, err)
	assert.Contains(t, cfg.Greetings, "hi")
	assert.Equal(t, 6, cfg.HistoryWindow)
	assert.Equal(t, 4, cfg.RetrievalTopK)
	assert.Empty(t, cfg.PolicyDocuments)
}

func TestLoadBotConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
greetings:
  - howdy
policy_documents:
  - visitor_policy.pdf
history_window: 10
`), 0644))

	cfg, err := LoadBotConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"howdy"}, cfg.Greetings)
	assert.Equal(t, []string{"visitor_policy.pdf"}, cfg.PolicyDocuments)
	assert.Equal(t, 10, cfg.HistoryWindow)
	// Unset fields keep their defaults.
	assert.Equal(t, 4, cfg.RetrievalTopK)
}

func TestLoadBotConfigMissingFile(t *testing.T) {
	_, err := LoadBotConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBotConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`greetings: [unterminated`), 0644))

	_, err := LoadBotConfig(path)
	assert.Error(t, err)
}
