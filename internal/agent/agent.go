// Package agent runs a language-model-driven browsing loop against one
// attached browser. The model picks one action per turn as a small JSON
// object; the agent executes it and feeds the observation back until the
// model declares the task done or the step budget runs out.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/asadmujeeb/steeldrive/internal/automation"
	"github.com/asadmujeeb/steeldrive/internal/llm"
)

const (
	defaultMaxSteps = 15

	// maxObservation caps how much page text goes back to the model per
	// turn.
	maxObservation = 4000
)

const systemPrompt = `You are a browsing agent controlling a real browser.
Each turn, reply with exactly one JSON object and nothing else:
  {"action":"navigate","url":"https://..."}  load a page
  {"action":"read_page"}                     get the page title and text
  {"action":"screenshot"}                    capture the page
  {"action":"done","summary":"..."}          finish, summarizing what you found
Work through the user's task step by step, one action per turn.`

// TaskError is a failure of the browsing task itself. The caller logs it
// and moves on to cleanup; it never prevents the browser close or the
// session release from running.
type TaskError struct {
	Step int
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("agent task failed at step %d: %v", e.Step, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Step is one executed action and what came back.
type Step struct {
	Action      string `json:"action"`
	Detail      string `json:"detail,omitempty"`
	Observation string `json:"observation"`
}

// Result is the outcome of a completed task.
type Result struct {
	Summary string `json:"summary"`
	Steps   []Step `json:"steps"`
}

type action struct {
	Action  string `json:"action"`
	URL     string `json:"url,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Agent drives one browser through one task.
type Agent struct {
	provider llm.Provider
	browser  automation.Browser
	log      *slog.Logger
	maxSteps int
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxSteps bounds how many model turns a task may take.
func WithMaxSteps(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxSteps = n
		}
	}
}

// WithLogger sets the agent's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.log = logger }
}

// New creates an agent over the given model and browser.
func New(provider llm.Provider, browser automation.Browser, opts ...Option) *Agent {
	a := &Agent{
		provider: provider,
		browser:  browser,
		log:      slog.Default(),
		maxSteps: defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the task to completion. It returns *TaskError on model
// failures, cancellation, or an exhausted step budget; browser-level
// errors are reported back to the model instead, which may recover.
func (a *Agent) Run(ctx context.Context, task string) (*Result, error) {
	messages := []*llm.Message{
		llm.System(systemPrompt),
		llm.User(task),
	}

	result := &Result{}

	for step := 1; step <= a.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, &TaskError{Step: step, Err: err}
		}

		reply, err := a.provider.Complete(ctx, messages)
		if err != nil {
			return nil, &TaskError{Step: step, Err: err}
		}
		messages = append(messages, reply)

		act, err := parseAction(reply.Content)
		if err != nil {
			a.log.Warn("unparseable agent reply", "step", step, "error", err)
			messages = append(messages, llm.User(fmt.Sprintf(
				"Could not parse that reply (%v). Answer with exactly one JSON action object.", err)))
			continue
		}

		if act.Action == "done" {
			a.log.Info("agent finished task", "steps", step)
			result.Summary = act.Summary
			return result, nil
		}

		observation := a.execute(act)
		result.Steps = append(result.Steps, Step{
			Action:      act.Action,
			Detail:      act.URL,
			Observation: observation,
		})
		a.log.Info("agent step", "step", step, "action", act.Action, "url", act.URL)

		messages = append(messages, llm.User(observation))
	}

	return nil, &TaskError{
		Step: a.maxSteps,
		Err:  fmt.Errorf("step budget of %d exhausted before the task finished", a.maxSteps),
	}
}

// execute runs one action against the browser. Failures come back as
// observations so the model can route around them.
func (a *Agent) execute(act *action) string {
	switch act.Action {
	case "navigate":
		if act.URL == "" {
			return "navigate needs a url"
		}
		if err := a.browser.Navigate(act.URL); err != nil {
			return fmt.Sprintf("navigation failed: %v", err)
		}
		return fmt.Sprintf("navigated to %s", act.URL)

	case "read_page":
		title, err := a.browser.Title()
		if err != nil {
			return fmt.Sprintf("could not read page title: %v", err)
		}
		text, err := a.browser.TextContent()
		if err != nil {
			return fmt.Sprintf("could not read page text: %v", err)
		}
		if len(text) > maxObservation {
			total := len(text)
			// Back off to a rune boundary so the cut never splits a
			// multi-byte character.
			cut := maxObservation
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut] + fmt.Sprintf("\n[truncated, %d characters total]", total)
		}
		return fmt.Sprintf("title: %s\n%s", title, text)

	case "screenshot":
		data, err := a.browser.Screenshot()
		if err != nil {
			return fmt.Sprintf("screenshot failed: %v", err)
		}
		return fmt.Sprintf("captured screenshot (%d bytes)", len(data))

	default:
		return fmt.Sprintf("unknown action %q", act.Action)
	}
}

// parseAction extracts the single JSON action object from a model reply,
// tolerating prose around it.
func parseAction(content string) (*action, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var act action
	if err := json.Unmarshal([]byte(content[start:end+1]), &act); err != nil {
		return nil, fmt.Errorf("invalid action JSON: %w", err)
	}
	if act.Action == "" {
		return nil, fmt.Errorf("action field is empty")
	}
	return &act, nil
}
