// Package run orchestrates one session lifecycle around one unit of
// browser work: create the session, hand its endpoint to a phase, and
// release the session on every exit path. Only session creation can abort
// a run; everything the phase does wrong is logged and carried in the
// outcome.
package run

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/asadmujeeb/steeldrive/internal/agent"
	"github.com/asadmujeeb/steeldrive/internal/automation"
	"github.com/asadmujeeb/steeldrive/internal/cdp"
	"github.com/asadmujeeb/steeldrive/internal/llm"
	"github.com/asadmujeeb/steeldrive/internal/steel"
	"github.com/asadmujeeb/steeldrive/pkg/models"
)

// Phase is the work performed while the session is active. It gets the
// live session and may return a result.
type Phase func(ctx context.Context, sess *models.Session) (*agent.Result, error)

// Outcome is what a run produced. TaskErr holds the phase failure, if any;
// it never aborted the cleanup.
type Outcome struct {
	Session *models.Session
	Details *models.SessionDetails
	Result  *agent.Result
	TaskErr error
}

// Runner owns the lifecycle around a phase.
type Runner struct {
	steel *steel.Client
	log   *slog.Logger
}

// NewRunner creates a runner over the given session client.
func NewRunner(client *steel.Client, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{steel: client, log: logger}
}

// Run creates a session, executes the phase, and releases the session no
// matter how the phase went. The returned error is non-nil only when the
// session could not be created, in which case nothing was allocated and
// nothing is released.
func (r *Runner) Run(ctx context.Context, phase Phase) (*Outcome, error) {
	sess, err := r.steel.Create(ctx)
	if err != nil {
		return nil, err
	}

	// Release must survive a cancelled run context.
	defer r.steel.Release(context.WithoutCancel(ctx), sess)

	out := &Outcome{Session: sess}

	result, err := phase(ctx, sess)
	if err != nil {
		r.log.Error("automation task failed", "sessionId", sess.ID, "error", err)
		out.TaskErr = err
	}
	out.Result = result

	// Best-effort diagnostic read before the session goes away; absence
	// is fine.
	if details, ok := r.steel.Details(ctx, sess.ID); ok {
		out.Details = details
	}

	return out, nil
}

// AgentPhase runs a browsing task through the LLM agent on a browser
// attached via connect. The browser is closed before the phase returns,
// whatever the task did.
func AgentPhase(provider llm.Provider, connect automation.Connector, task string, logger *slog.Logger) Phase {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, sess *models.Session) (*agent.Result, error) {
		browser, err := connect(sess.WebsocketURL)
		if err != nil {
			return nil, &agent.TaskError{Step: 0, Err: fmt.Errorf("attach browser: %w", err)}
		}
		defer func() {
			if err := browser.Close(); err != nil {
				logger.Error("failed to close browser", "sessionId", sess.ID, "error", err)
			}
		}()

		logger.Info("browser connected to session endpoint", "sessionId", sess.ID)

		return agent.New(provider, browser, agent.WithLogger(logger)).Run(ctx, task)
	}
}

// CheckPhase verifies the session endpoint with the raw CDP client: ask
// the browser its version, open a page, wait for a title. Used when no
// model credential is configured.
func CheckPhase(url string, logger *slog.Logger) Phase {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, sess *models.Session) (*agent.Result, error) {
		client, err := cdp.Dial(ctx, sess.WebsocketURL, logger)
		if err != nil {
			return nil, fmt.Errorf("attach cdp: %w", err)
		}
		defer client.Close()

		version, err := client.Version(ctx)
		if err != nil {
			return nil, fmt.Errorf("browser version: %w", err)
		}
		logger.Info("session endpoint is live", "sessionId", sess.ID, "browser", version.Product)

		targetID, err := client.OpenPage(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("open page: %w", err)
		}
		defer client.ClosePage(context.WithoutCancel(ctx), targetID)

		title, err := client.WaitForTitle(ctx, targetID)
		if err != nil {
			return nil, fmt.Errorf("wait for title: %w", err)
		}
		logger.Info("page loaded", "sessionId", sess.ID, "url", url, "title", title)

		return &agent.Result{
			Summary: fmt.Sprintf("connected to %s, loaded %s (%q)", version.Product, url, title),
		}, nil
	}
}
