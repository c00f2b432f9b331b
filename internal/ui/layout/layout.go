package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/drillsergeant/internal/ui/theme"
)

const (
	MinWidth  = 80
	MinHeight = 24

	// ReadingWidth caps the width of passage and question text.
	ReadingWidth = 88
)

// KeyHint represents a key binding hint shown in the footer.
type KeyHint struct {
	Key         string
	Description string
}

// Status is what the header shows on its right side.
type Status struct {
	Username string // empty for guests
	Streak   int

	// DaysLeft is only shown when HasExam is set.
	DaysLeft int
	HasExam  bool
}

// IsTooSmall returns true if the terminal is below minimum size.
func IsTooSmall(width, height int) bool {
	return width < MinWidth || height < MinHeight
}

// ReadingColumn returns the text width to use inside a frame of width.
func ReadingColumn(width int) int {
	w := width - 8
	if w > ReadingWidth {
		w = ReadingWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

// RenderMinSizeMessage renders the "terminal too small" message.
func RenderMinSizeMessage(width, height int) string {
	return lipgloss.NewStyle().
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Width(width).
		Height(height).
		Render(fmt.Sprintf(
			"Terminal too small!\n\nPlease resize to at\nleast %d x %d\n\nCurrent: %d x %d",
			MinWidth, MinHeight, width, height,
		))
}

// RenderHeader renders the application header bar.
func RenderHeader(title string, st Status, width int) string {
	left := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		Render("  Drill Sergeant")

	center := lipgloss.NewStyle().
		Foreground(theme.Text).
		Render(title)

	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	accent := lipgloss.NewStyle().Foreground(theme.Accent)

	var parts []string
	if st.HasExam {
		parts = append(parts, accent.Render(daysLeftLabel(st.DaysLeft)))
	}
	parts = append(parts, accent.Render(fmt.Sprintf("★ %d day", st.Streak)))
	who := "guest"
	if st.Username != "" {
		who = st.Username
	}
	parts = append(parts, dim.Render(who))
	right := strings.Join(parts, dim.Render("   "))

	leftLen := lipgloss.Width(left)
	centerLen := lipgloss.Width(center)
	rightLen := lipgloss.Width(right)

	innerWidth := max(width-4, 0)

	leftGap := max((innerWidth-centerLen)/2-leftLen, 1)
	rightGap := max(innerWidth-leftLen-leftGap-centerLen-rightLen, 1)

	content := left + strings.Repeat(" ", leftGap) + center + strings.Repeat(" ", rightGap) + right

	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Render(content)
}

func daysLeftLabel(days int) string {
	switch {
	case days < 0:
		return "exam passed"
	case days == 0:
		return "exam today"
	case days == 1:
		return "1 day to exam"
	default:
		return fmt.Sprintf("%d days to exam", days)
	}
}

// RenderFooter renders the footer with key hints.
func RenderFooter(hints []KeyHint, width int) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		part := lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(h.Key) +
			" " +
			lipgloss.NewStyle().Foreground(theme.TextDim).Render(h.Description)
		parts = append(parts, part)
	}

	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Render("  " + strings.Join(parts, "   "))
}

// RenderNotice renders a blocking notice box centered in width.
func RenderNotice(msg string, width int) string {
	box := theme.NoticeBlocking.
		Width(min(ReadingColumn(width), lipgloss.Width(msg)+6)).
		Render(msg + "\n\n" + theme.Hint.Render("Enter to dismiss"))
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, box)
}

// RenderInlineNotice renders a one-line validation message.
func RenderInlineNotice(msg string) string {
	return theme.NoticeInline.Render("! " + msg)
}

// RenderFrame composes the full frame: header + content + footer.
func RenderFrame(header, content, footer string, width, height int) string {
	contentHeight := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 0)

	styledContent := lipgloss.NewStyle().
		Width(width).
		Height(contentHeight).
		Render(content)

	return header + "\n" + styledContent + "\n" + footer
}
