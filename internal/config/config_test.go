package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STEEL_API_URL", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("STEEL_MODEL", "")
	t.Setenv("STEEL_TASK", "")

	cfg := FromEnv()

	assert.Equal(t, "http://localhost:3000", cfg.APIURL)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, DefaultTask, cfg.Task)
	assert.Empty(t, cfg.OpenAIKey)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STEEL_API_URL", "http://steel.internal:3000")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STEEL_MODEL", "gpt-4o-mini")
	t.Setenv("STEEL_TASK", "go to example.org")

	cfg := FromEnv()

	assert.Equal(t, "http://steel.internal:3000", cfg.APIURL)
	assert.Equal(t, "sk-test", cfg.OpenAIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "go to example.org", cfg.Task)
}

func TestResolveMode(t *testing.T) {
	withKey := &Config{OpenAIKey: "sk-test"}
	assert.Equal(t, ModeFullAgent, withKey.ResolveMode())
	assert.Equal(t, "full-agent", withKey.ResolveMode().String())

	withoutKey := &Config{}
	assert.Equal(t, ModeConnectionOnly, withoutKey.ResolveMode())
	assert.Equal(t, "connection-only", withoutKey.ResolveMode().String())
}
