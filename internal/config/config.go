// Package config resolves the environment configuration for a run before
// the session lifecycle starts. There is no validation beyond presence
// checks; a missing model key degrades the run rather than failing it.
package config

import "os"

// Mode decides what a run does with the session once it exists.
type Mode int

const (
	// ModeConnectionOnly attaches to the CDP endpoint and verifies the
	// browser is reachable. Chosen when no model API key is configured.
	ModeConnectionOnly Mode = iota

	// ModeFullAgent hands the browser to the LLM-driven agent.
	ModeFullAgent
)

func (m Mode) String() string {
	if m == ModeFullAgent {
		return "full-agent"
	}
	return "connection-only"
}

// DefaultTask is the browsing task used when STEEL_TASK is not set.
const DefaultTask = `1. Go to https://example.com
2. Read the page
3. Report the page title and what the page says`

// Config is the environment surface of a run.
type Config struct {
	// APIURL is the base URL of the Steel session service.
	APIURL string

	// OpenAIKey is the model credential. Empty routes the run to
	// ModeConnectionOnly.
	OpenAIKey string

	// Model is the chat model the agent uses.
	Model string

	// Task is the natural-language instruction set for the agent.
	Task string

	// LogLevel feeds logging.Setup.
	LogLevel string
}

// FromEnv reads the configuration from the process environment, applying
// defaults for everything except the model credential.
func FromEnv() *Config {
	cfg := &Config{
		APIURL:    os.Getenv("STEEL_API_URL"),
		OpenAIKey: os.Getenv("OPENAI_API_KEY"),
		Model:     os.Getenv("STEEL_MODEL"),
		Task:      os.Getenv("STEEL_TASK"),
		LogLevel:  os.Getenv("STEEL_LOG_LEVEL"),
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "http://localhost:3000"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.Task == "" {
		cfg.Task = DefaultTask
	}
	return cfg
}

// ResolveMode picks the run mode from the credentials that are present.
// The decision happens here, up front, so nothing inside the lifecycle
// ever has to stop and ask.
func (c *Config) ResolveMode() Mode {
	if c.OpenAIKey != "" {
		return ModeFullAgent
	}
	return ModeConnectionOnly
}
