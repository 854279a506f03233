package tui

import "github.com/mattn/go-runewidth"

const ellipsis = "..."

// truncateText shortens text to at most width terminal cells.
func truncateText(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= width {
		return text
	}
	if width <= len(ellipsis) {
		return runewidth.Truncate(text, width, "")
	}
	return runewidth.Truncate(text, width, ellipsis)
}
