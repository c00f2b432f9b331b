package components

import (
	"strings"

	tea "charm.land/bubbletea/v2"
)

// Form is a vertical stack of inputs with one focused at a time. Tab and
// the arrow keys move focus; every other message goes to the focused input.
type Form struct {
	Inputs []TextInput
	Focus  int
}

// NewForm focuses the first input.
func NewForm(inputs ...TextInput) (Form, tea.Cmd) {
	f := Form{Inputs: inputs}
	cmd := f.focus(0)
	return f, cmd
}

func (f *Form) focus(i int) tea.Cmd {
	if len(f.Inputs) == 0 {
		return nil
	}
	f.Inputs[f.Focus].Blur()
	f.Focus = (i + len(f.Inputs)) % len(f.Inputs)
	return f.Inputs[f.Focus].Focus()
}

// Last reports whether the focused input is the final one.
func (f Form) Last() bool {
	return f.Focus == len(f.Inputs)-1
}

// Next moves focus to the following input, wrapping around.
func (f *Form) Next() tea.Cmd {
	return f.focus(f.Focus + 1)
}

// Update moves focus or edits the focused input.
func (f Form) Update(msg tea.Msg) (Form, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "tab", "down":
			return f, f.focus(f.Focus + 1)
		case "shift+tab", "up":
			return f, f.focus(f.Focus - 1)
		}
	}
	if len(f.Inputs) == 0 {
		return f, nil
	}
	var cmd tea.Cmd
	f.Inputs[f.Focus], cmd = f.Inputs[f.Focus].Update(msg)
	return f, cmd
}

// Value returns the trimmed value of input i.
func (f Form) Value(i int) string {
	return strings.TrimSpace(f.Inputs[i].Value())
}

// View renders the inputs separated by blank lines.
func (f Form) View() string {
	views := make([]string, len(f.Inputs))
	for i, in := range f.Inputs {
		views[i] = in.View()
	}
	return strings.Join(views, "\n\n")
}
