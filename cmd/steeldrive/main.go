// steeldrive runs a browsing task against a Steel Browser session. With an
// OpenAI key in the environment it hands the session to the LLM agent;
// without one it degrades to a connection check. Either way the session is
// released before the process exits, and failures end the run with a log
// line rather than a crash.
package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/asadmujeeb/steeldrive/internal/automation"
	"github.com/asadmujeeb/steeldrive/internal/automation/pwbrowser"
	"github.com/asadmujeeb/steeldrive/internal/config"
	"github.com/asadmujeeb/steeldrive/internal/llm/openai"
	"github.com/asadmujeeb/steeldrive/internal/logging"
	"github.com/asadmujeeb/steeldrive/internal/run"
	"github.com/asadmujeeb/steeldrive/internal/steel"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using system environment variables")
	}

	cfg := config.FromEnv()
	logging.Setup(cfg.LogLevel)
	log := logging.Component("steeldrive")

	mode := cfg.ResolveMode()
	log.Info("starting run", "mode", mode.String(), "api", cfg.APIURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := steel.NewClient(cfg.APIURL, logging.Component("steel"))
	runner := run.NewRunner(client, log)

	var phase run.Phase
	switch mode {
	case config.ModeFullAgent:
		provider, err := openai.NewProvider(cfg.OpenAIKey, openai.WithModel(cfg.Model))
		if err != nil {
			log.Error("failed to create model provider", "error", err)
			return
		}
		connect := func(wsURL string) (automation.Browser, error) {
			return pwbrowser.Connect(wsURL)
		}
		phase = run.AgentPhase(provider, connect, cfg.Task, logging.Component("agent"))
	default:
		log.Info("no OPENAI_API_KEY set, running connection check only")
		phase = run.CheckPhase("https://example.com", logging.Component("cdp"))
	}

	outcome, err := runner.Run(ctx, phase)
	if err != nil {
		// Creation failures are the one fatal path; nothing was allocated.
		log.Error("could not create session", "error", err)
		return
	}

	if outcome.Result != nil {
		log.Info("task finished", "summary", outcome.Result.Summary, "steps", len(outcome.Result.Steps))
	}
	if outcome.TaskErr != nil {
		log.Error("run completed with task failure", "error", outcome.TaskErr)
	}
	if outcome.Details != nil {
		log.Info("session recording available",
			"viewerUrl", outcome.Details.SessionViewerURL,
			"debugUrl", outcome.Details.DebugURL)
	}
}
