package cli

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

// Palette shared by all commands.
var (
	colorPrimary = lipgloss.Color("#7C3AED")
	colorMuted   = lipgloss.Color("#6C7086")
	colorSuccess = lipgloss.Color("#A6E3A1")
	colorWarning = lipgloss.Color("#F9E2AF")
	colorError   = lipgloss.Color("#F38BA8")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	labelStyle   = lipgloss.NewStyle().Width(18).Foreground(colorMuted)
)

const defaultWidth = 100

// terminalWidth returns the width of w when it is a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// field renders one "label value" line.
func field(label, value string) string {
	return labelStyle.Render(label) + " " + value
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// stateStyle colours a run or item state.
func stateStyle(state string) lipgloss.Style {
	switch state {
	case string(domain.RunCompleted), string(domain.ItemIndexed):
		return successStyle
	case string(domain.RunFailed), string(domain.ItemError):
		return errorStyle
	case string(domain.RunCancelled), string(domain.ItemSkipped), string(domain.ItemPending):
		return warningStyle
	default:
		return mutedStyle
	}
}
