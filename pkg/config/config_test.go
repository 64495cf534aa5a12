package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botchat/pkg/chat"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "botchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
bots:
  - id: helper
    name: Helper
    system_prompt: "You are helpful."
    provider: anthropic
settings:
  preprocessing_enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Bots, 1)

	bot := cfg.Bots[0]
	assert.Equal(t, ModelClaudeSonnetLatest, bot.Model)
	assert.Equal(t, DefaultMaxTokens, bot.MaxTokens)
	assert.InDelta(t, DefaultTemperature, bot.Temperature, 0.001)
	assert.Equal(t, chat.DefaultMaxReprocessingDepth, cfg.Settings.MaxReprocessingDepth)
}

func TestLoadFullBot(t *testing.T) {
	path := writeConfig(t, `
bots:
  - id: critic
    name: Critic
    system_prompt: "Be critical."
    provider: openai
    model: gpt-4o
    temperature: 0.2
    max_tokens: 512
    use_tools: true
    enable_reprocessing: true
    reprocessing_criteria: "must cite a source"
    reprocessing_instructions: "add citations"
settings:
  max_reprocessing_depth: 2
  enabled_tools: [current_time]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	bot := cfg.FindBot("critic")
	require.NotNil(t, bot)
	assert.True(t, bot.EnableReprocessing)
	assert.Equal(t, "must cite a source", bot.ReprocessingCriteria)
	assert.Equal(t, 2, cfg.Settings.MaxReprocessingDepth)
	assert.Equal(t, []string{"current_time"}, cfg.Settings.EnabledTools)

	assert.Nil(t, cfg.FindBot("missing"))
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no bots", `bots: []`},
		{"missing id", `
bots:
  - name: Nameless
`},
		{"duplicate id", `
bots:
  - id: twin
  - id: twin
`},
		{"bad temperature", `
bots:
  - id: hot
    temperature: 3.5
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestValidateAllowsBlankCriterionWithReprocessing(t *testing.T) {
	// A blank criterion is not a config error; the evaluator decides
	// "no reprocessing" for it at runtime.
	cfg, err := Load(writeConfig(t, `
bots:
  - id: quiet
    enable_reprocessing: true
`))
	require.NoError(t, err)
	assert.True(t, cfg.Bots[0].EnableReprocessing)
	assert.Empty(t, cfg.Bots[0].ReprocessingCriteria)
}

func TestDefaultModelPerProvider(t *testing.T) {
	assert.Equal(t, ModelGPT4o, defaultModelFor(ProviderOpenAI))
	assert.Equal(t, ModelLlama3, defaultModelFor(ProviderOllama))
	assert.Equal(t, ModelGeminiFlash, defaultModelFor(ProviderGemini))
	assert.Equal(t, ModelClaudeSonnetLatest, defaultModelFor(ProviderAnthropic))
	assert.Equal(t, ModelClaudeSonnetLatest, defaultModelFor(""))
}
