// Package prompt abstracts the questions asked during provisioning so the
// orchestrator runs the same way in a terminal, in CI, and in tests.
package prompt

import (
	"fmt"

	"github.com/charmbracelet/huh"
)

// Prompter asks the user for decisions and connection parameters.
type Prompter interface {
	// Interactive reports whether answers come from a human.
	Interactive() bool
	Confirm(title string, def bool) (bool, error)
	Input(title, def string) (string, error)
	Password(title, def string) (string, error)
}

// Huh renders prompts with charmbracelet/huh forms.
type Huh struct{}

func (Huh) Interactive() bool { return true }

func (Huh) Confirm(title string, def bool) (bool, error) {
	answer := def
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&answer).
		Run()
	if err != nil {
		return def, fmt.Errorf("prompt %q: %w", title, err)
	}
	return answer, nil
}

func (Huh) Input(title, def string) (string, error) {
	answer := def
	err := huh.NewInput().
		Title(title).
		Placeholder(def).
		Value(&answer).
		Run()
	if err != nil {
		return def, fmt.Errorf("prompt %q: %w", title, err)
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (Huh) Password(title, def string) (string, error) {
	answer := def
	err := huh.NewInput().
		Title(title).
		Description("Leave empty to keep the generated value").
		EchoMode(huh.EchoModePassword).
		Value(&answer).
		Run()
	if err != nil {
		return def, fmt.Errorf("prompt %q: %w", title, err)
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Defaults answers every question with its default. Used in non-interactive mode.
type Defaults struct{}

func (Defaults) Interactive() bool                        { return false }
func (Defaults) Confirm(_ string, def bool) (bool, error) { return def, nil }
func (Defaults) Input(_, def string) (string, error)      { return def, nil }
func (Defaults) Password(_, def string) (string, error)   { return def, nil }

// Scripted replays canned answers keyed by prompt title, falling back to the
// default when a title has no answer. It records every title asked.
type Scripted struct {
	Confirms map[string]bool
	Inputs   map[string]string
	Err      error
	Asked    []string
}

func (s *Scripted) Interactive() bool { return true }

func (s *Scripted) Confirm(title string, def bool) (bool, error) {
	s.Asked = append(s.Asked, title)
	if s.Err != nil {
		return def, s.Err
	}
	if v, ok := s.Confirms[title]; ok {
		return v, nil
	}
	return def, nil
}

func (s *Scripted) Input(title, def string) (string, error) {
	s.Asked = append(s.Asked, title)
	if s.Err != nil {
		return def, s.Err
	}
	if v, ok := s.Inputs[title]; ok {
		return v, nil
	}
	return def, nil
}

func (s *Scripted) Password(title, def string) (string, error) {
	return s.Input(title, def)
}
