// Package openurl opens URLs in the user's default local browser.
package openurl

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Open hands rawURL to the OS default browser without waiting for it.
// Only http and https URLs are accepted.
func Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("openurl: invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("openurl: refusing scheme %q (only http/https allowed)", u.Scheme)
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", rawURL).Start()
	case "windows":
		// rundll32 instead of cmd /c start to avoid shell interpretation.
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL).Start()
	default:
		return exec.Command("xdg-open", rawURL).Start()
	}
}
