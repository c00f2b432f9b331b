package components

import (
	"fmt"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/drillsergeant/internal/ui/theme"
)

// OptionPickedMsg is sent when the learner commits to an option.
type OptionPickedMsg struct {
	Key string
}

// OptionList is a lettered multiple-choice selector. Options are keyed
// "A".."E" and can be picked with the arrow keys and enter, or by typing
// the letter.
type OptionList struct {
	Keys    []string
	Texts   map[string]string
	Cursor  int
	Chosen  string // highlighted as the current answer
	Blocked string // cannot be picked

	// Reveal, when set, colors the correct key green and Chosen red.
	Reveal string
	Locked bool
}

// NewOptionList builds a selector over options keyed by letter.
func NewOptionList(options map[string]string) OptionList {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return OptionList{Keys: keys, Texts: options}
}

// WithChosen moves the cursor onto key and marks it chosen.
func (o OptionList) WithChosen(key string) OptionList {
	o.Chosen = key
	if i := slices.Index(o.Keys, key); i >= 0 {
		o.Cursor = i
	}
	return o
}

// WithBlocked blocks key and moves the cursor off it.
func (o OptionList) WithBlocked(key string) OptionList {
	o.Blocked = key
	if o.Cursor < len(o.Keys) && o.Keys[o.Cursor] == key {
		if next := o.step(1); next != o.Cursor {
			o.Cursor = next
		} else {
			o.Cursor = o.step(-1)
		}
	}
	return o
}

// Update moves the cursor or picks an option.
func (o OptionList) Update(msg tea.Msg) (OptionList, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok || o.Locked || len(o.Keys) == 0 {
		return o, nil
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		o.Cursor = o.step(-1)
		return o, nil
	case "down", "j":
		o.Cursor = o.step(1)
		return o, nil
	case "enter":
		return o, o.pick(o.Keys[o.Cursor])
	}

	upper := strings.ToUpper(key)
	if i := slices.Index(o.Keys, upper); i >= 0 && upper != o.Blocked {
		o.Cursor = i
		return o, o.pick(upper)
	}
	return o, nil
}

// step returns the next cursor position in dir that is not blocked.
func (o OptionList) step(dir int) int {
	for i := o.Cursor + dir; i >= 0 && i < len(o.Keys); i += dir {
		if o.Keys[i] != o.Blocked {
			return i
		}
	}
	return o.Cursor
}

func (o OptionList) pick(key string) tea.Cmd {
	if key == o.Blocked {
		return nil
	}
	return func() tea.Msg { return OptionPickedMsg{Key: key} }
}

// View renders one option per line wrapped to width.
func (o OptionList) View(width int) string {
	var b strings.Builder
	for i, k := range o.Keys {
		prefix := "  "
		if i == o.Cursor && !o.Locked {
			prefix = "▸ "
		}
		line := lipgloss.NewStyle().Width(width).Render(fmt.Sprintf("%s%s)  %s", prefix, k, o.Texts[k]))

		var style lipgloss.Style
		switch {
		case o.Reveal != "" && k == o.Reveal:
			style = theme.Correct
		case o.Reveal != "" && k == o.Chosen:
			style = theme.Incorrect
		case k == o.Blocked:
			style = theme.Disabled
		case k == o.Chosen:
			style = theme.Selected
		case i == o.Cursor && !o.Locked:
			style = lipgloss.NewStyle().Foreground(theme.Secondary)
		default:
			style = theme.Unselected
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
