// Package interactive holds the survey prompts behind interactive mode.
package interactive

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/ethpandaops/protobench/internal/backend"
)

// MenuOption is one main-menu entry.
type MenuOption struct {
	Name        string
	Description string
	Action      func() error
}

func (o MenuOption) label() string {
	return o.Name + " - " + o.Description
}

var (
	// ErrExit ends the menu loop.
	ErrExit = errors.New("exit")
	// ErrInvalidSelection means the answer matched no option.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrNothingSelected is returned when a multi-select comes back empty
	ErrNothingSelected = errors.New("nothing selected")
)

// AskFunc asks one question. survey.AskOne is the default.
type AskFunc func(p survey.Prompt, response any, opts ...survey.AskOpt) error

// Menu drives prompts through ask and prints to out.
type Menu struct {
	ask AskFunc
	out io.Writer
}

// NewMenu creates a menu. A nil ask uses survey.AskOne.
func NewMenu(ask AskFunc, out io.Writer) *Menu {
	if ask == nil {
		ask = survey.AskOne
	}
	return &Menu{ask: ask, out: out}
}

const exitChoice = "Exit"

// ShowMainMenu offers the options plus Exit and runs the chosen action.
// A cancelled prompt counts as Exit.
func (m *Menu) ShowMainMenu(options []MenuOption) error {
	labels := make([]string, 0, len(options)+1)
	for _, opt := range options {
		labels = append(labels, opt.label())
	}

	labels = append(labels, exitChoice)

	var selected string
	if err := m.ask(&survey.Select{
		Message: "Choose an action:",
		Options: labels,
	}, &selected); err != nil || selected == exitChoice {
		return ErrExit
	}

	for _, opt := range options {
		if opt.label() == selected {
			return opt.Action()
		}
	}

	return fmt.Errorf("%w: %q", ErrInvalidSelection, selected)
}

// SelectBackends asks which backends to compare. All are preselected.
func (m *Menu) SelectBackends() ([]backend.ID, error) {
	out, err := multiSelect(m, "Backends:", backend.All(), backend.ID.String)
	if err != nil {
		return nil, fmt.Errorf("selecting backends: %w", err)
	}

	return out, nil
}

// SelectOperations asks which operations to run. All are preselected.
func (m *Menu) SelectOperations() ([]backend.Operation, error) {
	out, err := multiSelect(m, "Operations:", backend.Operations(), backend.Operation.Title)
	if err != nil {
		return nil, fmt.Errorf("selecting operations: %w", err)
	}

	return out, nil
}

// multiSelect offers items by label and returns the picked ones in item
// order.
func multiSelect[T comparable](m *Menu, message string, items []T, label func(T) string) ([]T, error) {
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = label(item)
	}

	var picked []string
	if err := m.ask(&survey.MultiSelect{
		Message: message,
		Options: labels,
		Default: labels,
	}, &picked); err != nil {
		return nil, err
	}

	chosen := make(map[string]bool, len(picked))
	for _, p := range picked {
		chosen[p] = true
	}

	out := make([]T, 0, len(picked))
	for i, item := range items {
		if chosen[labels[i]] {
			out = append(out, item)
		}
	}

	if len(out) == 0 {
		return nil, ErrNothingSelected
	}

	return out, nil
}

// AskIterations asks for the number of calls per trial.
func (m *Menu) AskIterations(def int) (int, error) {
	var answer string
	if err := m.ask(&survey.Input{
		Message: "Calls per trial:",
		Default: strconv.Itoa(def),
	}, &answer, survey.WithValidator(positiveInt)); err != nil {
		return 0, fmt.Errorf("asking iterations: %w", err)
	}

	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSelection, answer)
	}

	return n, nil
}

func positiveInt(ans any) error {
	s, _ := ans.(string)
	if n, err := strconv.Atoi(s); err != nil || n < 1 {
		return fmt.Errorf("enter a whole number of at least 1") //nolint:err113 // shown to the user
	}
	return nil
}

// PauseForEnter blocks until a line is read from stdin.
func (m *Menu) PauseForEnter() {
	_, _ = fmt.Fprintln(m.out, "\nPress Enter to continue...")
	_, _ = fmt.Scanln()
}

// Confirm asks a yes/no question that defaults to no. A failed prompt is a
// no.
func (m *Menu) Confirm(message string) bool {
	var yes bool
	if err := m.ask(&survey.Confirm{Message: message}, &yes); err != nil {
		return false
	}

	return yes
}
