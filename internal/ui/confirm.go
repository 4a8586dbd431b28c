package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm displays a warning box and asks a yes/no question. Only "y" or
// "yes" (any case) confirms; anything else, including EOF, declines.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string, question string) bool {
	width := GetTerminalWidth()

	if title != "" || len(warnings) > 0 {
		lines := []string{
			"",
			lipgloss.NewStyle().
				Foreground(WarningColor).
				Bold(true).
				Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, title)),
			"",
		}
		bulletStyle := lipgloss.NewStyle().Foreground(TextColor)
		for _, warning := range warnings {
			lines = append(lines, bulletStyle.Render("   • "+warning))
		}
		lines = append(lines, "")

		_, _ = fmt.Fprintln(out, WarningBoxStyle(width).Render(strings.Join(lines, "\n")))
		_, _ = fmt.Fprintln(out)
	}

	promptStyle := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true)
	_, _ = fmt.Fprint(out, promptStyle.Render(question+" [y/N]: "))

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		_, _ = fmt.Fprintln(out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		_, _ = fmt.Fprintln(out)
		return true
	}

	_, _ = fmt.Fprintln(out)
	cancelStyle := lipgloss.NewStyle().Foreground(MutedColor)
	_, _ = fmt.Fprintln(out, cancelStyle.Render("  Operation cancelled."))
	return false
}

// ConfirmFunc adapts Confirm to a single-question callback bound to in and out
func ConfirmFunc(in io.Reader, out io.Writer, title string, warnings []string) func(question string) bool {
	return func(question string) bool {
		return Confirm(in, out, title, warnings, question)
	}
}
