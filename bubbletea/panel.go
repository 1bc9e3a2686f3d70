package bubbletea

import (
	"fmt"
	"strings"

	"github.com/fwojciec/deck"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// renderPanel draws the slide: its title, one line per infographic with
// the selected one marked, then the selected syntax cut to fit.
func renderPanel(slide deck.Slide, selected string, width, height int, styles Styles) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	lines := make([]string, 0, height)
	title := slide.Title
	if title == "" {
		title = "Untitled"
	}
	lines = append(lines, styles.Accent.Render(fit(title, width)))
	lines = append(lines, styles.Muted.Render(fit(fmt.Sprintf("%d infographics", len(slide.Infographics)), width)))

	var preview string
	for i, ig := range slide.Infographics {
		entry := fmt.Sprintf("%d. %s", i+1, ig.Label())
		if ig.ID == selected {
			lines = append(lines, styles.Selection.Render(fit("▸ "+entry, width)))
			preview = ig.Content
			continue
		}
		lines = append(lines, fit("  "+entry, width))
	}

	if preview != "" {
		lines = append(lines, styles.Border.Render(strings.Repeat("─", width)))
		for _, l := range strings.Split(preview, "\n") {
			lines = append(lines, styles.Muted.Render(clip(l, width)))
		}
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// fit truncates s to width cells and pads it to exactly width.
func fit(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

// clip cuts s at width cells without splitting a grapheme cluster, so
// indentation and wide glyphs in syntax keep their shape.
func clip(s string, width int) string {
	var b strings.Builder
	used := 0
	state := -1
	for s != "" {
		var cluster string
		var w int
		cluster, s, w, state = uniseg.FirstGraphemeClusterInString(s, state)
		if used+w > width {
			break
		}
		b.WriteString(cluster)
		used += w
	}
	return b.String()
}
