// Package pwbrowser attaches Playwright to a remote browser over CDP. It
// reuses the session's default context and page when the service already
// opened one, so the agent acts in the same tab the session viewer shows.
package pwbrowser

import (
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
)

// Browser drives one remote page through Playwright.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

// Connect attaches to the CDP websocket endpoint of a live session.
func Connect(wsURL string) (*Browser, error) {
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.ConnectOverCDP(wsURL)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to connect over cdp: %w", err)
	}

	page, err := currentPage(browser)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, err
	}

	return &Browser{pw: pw, browser: browser, page: page}, nil
}

// currentPage picks the page the remote browser already has open, creating
// a context and page only when the session came up empty.
func currentPage(browser playwright.Browser) (playwright.Page, error) {
	for _, context := range browser.Contexts() {
		if pages := context.Pages(); len(pages) > 0 {
			return pages[0], nil
		}
	}

	context, err := browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	page, err := context.NewPage()
	if err != nil {
		context.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return page, nil
}

// Navigate loads url in the current page.
func (b *Browser) Navigate(url string) error {
	_, err := b.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Title returns the current page title.
func (b *Browser) Title() (string, error) {
	title, err := b.page.Title()
	if err != nil {
		return "", fmt.Errorf("title read failed: %w", err)
	}
	return title, nil
}

// TextContent returns the visible text of the page body.
func (b *Browser) TextContent() (string, error) {
	body, err := b.page.QuerySelector("body")
	if err != nil {
		return "", fmt.Errorf("body query failed: %w", err)
	}
	if body == nil {
		return "", fmt.Errorf("no body element found")
	}
	text, err := body.TextContent()
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	return text, nil
}

// Screenshot captures the current page as PNG bytes.
func (b *Browser) Screenshot() ([]byte, error) {
	data, err := b.page.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

// Close detaches from the remote browser and stops the driver. Errors on
// the way down don't stop the rest of the teardown.
func (b *Browser) Close() error {
	_ = b.page.Close()
	if err := b.browser.Close(); err != nil {
		b.pw.Stop()
		return fmt.Errorf("failed to close browser: %w", err)
	}
	if err := b.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
