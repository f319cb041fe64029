package shared

import (
	"errors"
	"os/exec"
	"slices"
	"strings"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	const consentURL = "https://accounts.spotify.com/authorize?client_id=id"

	stub := func(t *testing.T, platform string, err error) *[]string {
		t.Helper()
		var got []string
		prevOS, prevStart := goos, startLauncher
		t.Cleanup(func() { goos, startLauncher = prevOS, prevStart })

		goos = platform
		startLauncher = func(cmd *exec.Cmd) error {
			got = cmd.Args
			return err
		}
		return &got
	}

	tests := []struct {
		platform string
		want     []string
	}{
		{"darwin", []string{"open", consentURL}},
		{"linux", []string{"xdg-open", consentURL}},
		{"windows", []string{"rundll32", "url.dll,FileProtocolHandler", consentURL}},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			got := stub(t, tt.platform, nil)

			if err := OpenBrowser(consentURL); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(*got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, *got)
			}
		})
	}

	t.Run("Launcher Table Is Not Modified", func(t *testing.T) {
		stub(t, "windows", nil)
		OpenBrowser("https://example.com/a")
		OpenBrowser("https://example.com/b")

		if launcher := browserLaunchers["windows"]; len(launcher) != 2 {
			t.Errorf("expected launcher table to be unchanged, got %v", launcher)
		}
	})

	t.Run("Unsupported Platform", func(t *testing.T) {
		got := stub(t, "plan9", nil)

		err := OpenBrowser(consentURL)
		if err == nil || !strings.Contains(err.Error(), "plan9") {
			t.Errorf("expected unsupported platform error, got %v", err)
		}
		if *got != nil {
			t.Errorf("expected no launcher to start, got %v", *got)
		}
	})

	t.Run("Launcher Fails", func(t *testing.T) {
		stub(t, "linux", errors.New("executable file not found"))

		err := OpenBrowser(consentURL)
		if err == nil || !strings.Contains(err.Error(), "failed to open browser") {
			t.Errorf("expected wrapped launcher error, got %v", err)
		}
	})
}
