// steelsmoke is a quick end-to-end check of a Steel Browser deployment:
// create a session, attach to its CDP endpoint, open example.com, read the
// title back, release the session. No model, no driver install, just the
// raw protocol.
package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/asadmujeeb/steeldrive/internal/cdp"
	"github.com/asadmujeeb/steeldrive/internal/config"
	"github.com/asadmujeeb/steeldrive/internal/logging"
	"github.com/asadmujeeb/steeldrive/internal/steel"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using system environment variables")
	}

	cfg := config.FromEnv()
	logging.Setup(cfg.LogLevel)
	log := logging.Component("steelsmoke")

	ctx := context.Background()

	client := steel.NewClient(cfg.APIURL, logging.Component("steel"))

	sess, err := client.Create(ctx)
	if err != nil {
		log.Error("could not create session", "error", err)
		return
	}
	defer client.Release(ctx, sess)

	log.Info("session live", "sessionId", sess.ID, "viewerUrl", sess.SessionViewerURL)

	conn, err := cdp.Dial(ctx, sess.WebsocketURL, logging.Component("cdp"))
	if err != nil {
		log.Error("could not attach to session", "error", err)
		return
	}
	defer conn.Close()

	version, err := conn.Version(ctx)
	if err != nil {
		log.Error("browser did not answer", "error", err)
		return
	}
	log.Info("connected", "browser", version.Product, "protocol", version.ProtocolVersion)

	targetID, err := conn.OpenPage(ctx, "https://example.com")
	if err != nil {
		log.Error("could not open page", "error", err)
		return
	}
	defer conn.ClosePage(ctx, targetID)

	titleCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	title, err := conn.WaitForTitle(titleCtx, targetID)
	if err != nil {
		log.Error("page never produced a title", "error", err)
		return
	}
	log.Info("page loaded", "title", title)

	// Leave the page up for a moment so the session viewer shows it.
	time.Sleep(5 * time.Second)
}
