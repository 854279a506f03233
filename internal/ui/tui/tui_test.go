package tui

import (
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestTruncateText(t *testing.T) {
	tests := map[string]struct {
		text  string
		width int
		want  string
	}{
		"fits":       {text: "News", width: 10, want: "News"},
		"exact":      {text: "News", width: 4, want: "News"},
		"ellipsis":   {text: "Technology", width: 7, want: "Tech..."},
		"narrow":     {text: "Technology", width: 2, want: "Te"},
		"zero width": {text: "News", width: 0, want: ""},
		"wide runes": {text: "日本語のニュース", width: 7, want: "日本..."},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := truncateText(tt.text, tt.width)
			if got != tt.want {
				t.Errorf("truncateText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
			if runewidth.StringWidth(got) > tt.width {
				t.Errorf("truncateText(%q, %d) is %d cells wide", tt.text, tt.width, runewidth.StringWidth(got))
			}
		})
	}
}
