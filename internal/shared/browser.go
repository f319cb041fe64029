package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// browserLaunchers maps GOOS to the command that hands a URL to the desktop's default handler.
var browserLaunchers = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"openbsd": {"xdg-open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

var (
	goos = runtime.GOOS

	startLauncher = func(cmd *exec.Cmd) error {
		if err := cmd.Start(); err != nil {
			return err
		}
		go cmd.Wait()
		return nil
	}
)

// OpenBrowser asks the operating system to open url, the Spotify consent page during `vibe auth demo`.
//
// It returns once the launcher has started and does not observe whether a browser window appeared.
func OpenBrowser(url string) error {
	launcher, ok := browserLaunchers[goos]
	if !ok {
		return fmt.Errorf("no browser launcher for %s", goos)
	}

	args := append(launcher[1:len(launcher):len(launcher)], url)
	if err := startLauncher(exec.Command(launcher[0], args...)); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
