package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/drillsergeant/internal/ui/theme"
)

const bannerArt = `
 ██████╗ ██████╗ ██╗██╗     ██╗
 ██╔══██╗██╔══██╗██║██║     ██║
 ██║  ██║██████╔╝██║██║     ██║
 ██║  ██║██╔══██╗██║██║     ██║
 ██████╔╝██║  ██║██║███████╗███████╗
 ╚═════╝ ╚═╝  ╚═╝╚═╝╚══════╝╚══════╝
      S  E  R  G  E  A  N  T`

const bannerCompact = "D R I L L   S E R G E A N T"

// RenderBanner returns the banner in the primary color, falling back to a
// single line below 40 columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 40 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
