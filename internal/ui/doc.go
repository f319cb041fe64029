// Package ui styles CLI output with lipgloss.
//
// A [Palette] holds the named styles; [Palette.Progress] renders generation progress updates line by line and
// [Palette.Config] prints the resolved configuration for `vibe config check`.
package ui
