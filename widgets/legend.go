package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderSymbol renders a single colored glyph
func RenderSymbol(sym rune, color lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(color).Render(string(sym))
}

// RenderSwatch renders a row of colored blocks, one per color
func RenderSwatch(colors []lipgloss.Color, sym rune) string {
	var out strings.Builder
	for _, c := range colors {
		out.WriteString(RenderSymbol(sym, c))
	}
	return out.String()
}

// LegendItem explains one glyph of the report.
type LegendItem struct {
	Symbol rune
	Color  lipgloss.Color
	Name   string
	Desc   string
}

// RenderLegend renders one "● name - description" line per item
func RenderLegend(items []LegendItem) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("  %s %-10s %s", RenderSymbol(it.Symbol, it.Color), it.Name, it.Desc)
	}
	return strings.Join(lines, "\n")
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
