// Package automation defines the narrow surface the run loop and the agent
// need from an attached browser. Backends connect to the CDP endpoint a
// session service hands out; callers never see the driver underneath.
package automation

// Browser is one attached remote browser with a current page.
type Browser interface {
	// Navigate loads url in the current page.
	Navigate(url string) error

	// Title returns the current page title.
	Title() (string, error)

	// TextContent returns the visible text of the current page body.
	TextContent() (string, error)

	// Screenshot captures the current page as PNG bytes.
	Screenshot() ([]byte, error)

	// Close detaches from the remote browser. It does not release the
	// session; that stays with whoever created it.
	Close() error
}

// Connector attaches a backend to a CDP websocket endpoint.
type Connector func(wsURL string) (Browser, error)
