package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, SecretsExist(dir))

	secrets := map[string]string{
		ProviderAnthropic: "sk-ant-test",
		ProviderOpenAI:    "sk-test",
	}
	require.NoError(t, SaveSecrets(dir, "correct horse", secrets))
	assert.True(t, SecretsExist(dir))

	loaded, err := LoadSecrets(dir, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, secrets, loaded)
}

func TestSecretsWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveSecrets(dir, "right", map[string]string{ProviderOpenAI: "sk"}))

	_, err := LoadSecrets(dir, "wrong")
	assert.Error(t, err)
}

func TestLoadSecretsMissingFile(t *testing.T) {
	_, err := LoadSecrets(t.TempDir(), "any")
	assert.Error(t, err)
}
