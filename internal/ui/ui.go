// Package ui provides terminal output styling and interactive prompts.
package ui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

// Banner renders a section heading.
func Banner(text string) string {
	rule := "=========================================="
	return bannerStyle.Render(rule + "\n" + text + "\n" + rule)
}

// Warn renders text in the warning style.
func Warn(text string) string { return warnStyle.Render(text) }

// Error renders text in the error style.
func Error(text string) string { return errorStyle.Render(text) }

// Success renders text in the success style.
func Success(text string) string { return successStyle.Render(text) }

// Hint renders text in the hint style.
func Hint(text string) string { return hintStyle.Render(text) }

// Prompter asks the operator for interactive input. Implementations must be
// safe to call from a single goroutine at a time.
type Prompter interface {
	// Confirm asks a yes/no question and returns the answer.
	Confirm(message string) (bool, error)

	// WaitForEnter blocks until the operator acknowledges the message.
	WaitForEnter(message string) error
}

// NewPrompter returns the default terminal prompter.
func NewPrompter() Prompter {
	return &terminalPrompter{}
}

type terminalPrompter struct{}

func (p *terminalPrompter) Confirm(message string) (bool, error) {
	var confirmed bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(message).
			Affirmative("Yes").
			Negative("No").
			Value(&confirmed),
	))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return confirmed, nil
}

func (p *terminalPrompter) WaitForEnter(message string) error {
	proceed := true
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(message).
			Affirmative("Continue").
			Negative("Continue").
			Value(&proceed),
	))
	if err := form.Run(); err != nil {
		return fmt.Errorf("continue prompt failed: %w", err)
	}
	return nil
}

// AutoApprove is a Prompter that answers yes to everything. It backs the
// --force flags and non-interactive invocations.
type AutoApprove struct{}

func (AutoApprove) Confirm(string) (bool, error) { return true, nil }

func (AutoApprove) WaitForEnter(string) error { return nil }
