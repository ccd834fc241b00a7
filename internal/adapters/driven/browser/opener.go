// Package browser opens authorization pages in the user's default browser.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
	"github.com/custodia-labs/linkdeck/internal/logger"
)

// Ensure Opener implements the interface.
var _ driven.TabOpener = (*Opener)(nil)

// ErrNoDisplay indicates there is no graphical session to open a browser in.
var ErrNoDisplay = errors.New("no display available")

// Tracker hands out a tab handle for a window name before the page loads.
// The relay implements it.
type Tracker interface {
	Track(windowName string) driven.Tab
}

// Launcher starts a browser on a URL.
type Launcher func(url string) error

// Opener opens tabs through a Launcher and tracks them through a Tracker.
type Opener struct {
	tracker Tracker
	launch  Launcher
}

// NewOpener creates an opener that launches the system browser.
func NewOpener(tracker Tracker) *Opener {
	return &Opener{tracker: tracker, launch: OpenBrowser}
}

// WithLauncher replaces the launcher, e.g. to print the URL instead.
func (o *Opener) WithLauncher(launch Launcher) *Opener {
	o.launch = launch
	return o
}

// Open registers the tab with the tracker and launches the browser.
// A launch failure is reported as domain.ErrTabBlocked.
func (o *Opener) Open(ctx context.Context, rawURL, windowName string) (driven.Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tab := o.tracker.Track(windowName)
	if err := o.launch(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTabBlocked, err)
	}
	logger.Debug("opened %s in browser window %s", rawURL, windowName)
	return tab, nil
}

// OpenBrowser opens the default browser to the given URL.
// $BROWSER takes precedence when set.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	if custom := os.Getenv("BROWSER"); custom != "" {
		cmd = exec.Command(custom, url)
		return cmd.Start()
	}

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux", "freebsd", "openbsd":
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return ErrNoDisplay
		}
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
