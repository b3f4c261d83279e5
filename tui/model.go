package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mdx2midi/mdx"
	"mdx2midi/midi"
	"mdx2midi/theme"
	"mdx2midi/widgets"
)

// TrackRow summarizes one converted track.
type TrackRow struct {
	Index     int
	Start     int
	End       int
	Events    int
	Notes     int
	Ticks     int
	Issues    int
	Empty     bool
	Abandoned bool
}

// Report is everything shown after a conversion.
type Report struct {
	Input      string
	Output     string
	Title      string
	Resolution int
	Seconds    float64
	Tempos     int
	Tracks     []TrackRow
	Issues     []string
}

func NewReport(input, output string, song *mdx.Song, seq *midi.Sequence) Report {
	r := Report{
		Input:      input,
		Output:     output,
		Title:      song.Header.Title,
		Resolution: seq.Resolution,
		Seconds:    seq.Seconds(),
	}
	for _, e := range seq.Master {
		if e.Kind == midi.KindTempo {
			r.Tempos++
		}
	}
	perTrack := make(map[int]int)
	for _, iss := range song.Issues {
		r.Issues = append(r.Issues, iss.String())
		perTrack[iss.Track]++
	}
	for _, t := range song.Tracks {
		row := TrackRow{
			Index:     t.Track.Index,
			Start:     t.Track.Start,
			End:       t.Track.End,
			Events:    len(t.Events),
			Ticks:     t.State.Elapsed,
			Issues:    perTrack[t.Track.Index],
			Empty:     t.Track.Empty,
			Abandoned: t.Abandoned,
		}
		for _, e := range t.Events {
			if e.Kind == mdx.EventNote {
				row.Notes++
			}
		}
		r.Tracks = append(r.Tracks, row)
	}
	return r
}

func (r Report) maxEvents() int {
	n := 1
	for _, t := range r.Tracks {
		n = max(n, t.Events)
	}
	return n
}

type Model struct {
	Report   Report
	Theme    *theme.Theme
	offset   int // first visible issue
	height   int
	help     bool
	quitting bool
}

func NewModel(r Report, th *theme.Theme) Model {
	return Model{Report: r, Theme: th, height: 24}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc", "enter":
			m.quitting = true
			return m, tea.Quit
		case "j", "down":
			m.offset = min(m.offset+1, max(len(m.Report.Issues)-m.issueRows(), 0))
		case "k", "up":
			m.offset = max(m.offset-1, 0)
		case "g", "home":
			m.offset = 0
		case "?":
			m.help = !m.help
		}

	case tea.WindowSizeMsg:
		m.height = msg.Height
	}
	return m, nil
}

// issueRows is how many issues fit below the track table.
func (m Model) issueRows() int {
	return max(m.height-len(m.Report.Tracks)-8, 3)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.help {
		return renderHelp(m.Theme)
	}
	return render(m.Report, m.Theme, m.offset, m.issueRows()) + "\n" +
		lipgloss.NewStyle().Foreground(m.Theme.Muted()).Render("j/k:scroll issues  ?:help  q:quit")
}

var keyHelp = []widgets.KeySection{
	{Title: "Issues", Keys: []widgets.KeyBinding{
		{Key: "j / down", Desc: "scroll down"},
		{Key: "k / up", Desc: "scroll up"},
		{Key: "g / home", Desc: "back to the top"},
	}},
	{Title: "General", Keys: []widgets.KeyBinding{
		{Key: "?", Desc: "toggle this help"},
		{Key: "q / enter", Desc: "quit"},
	}},
}

func renderHelp(th *theme.Theme) string {
	sym := th.Symbols
	legend := widgets.RenderLegend([]widgets.LegendItem{
		{Symbol: sym.TrackOK, Color: th.Success(), Name: "ok", Desc: "converted"},
		{Symbol: sym.TrackRecovered, Color: th.Warning(), Name: "recovered", Desc: "converted with issues"},
		{Symbol: sym.TrackAbandoned, Color: th.Warning(), Name: "abandoned", Desc: "stopped at truncated data"},
		{Symbol: sym.TrackEmpty, Color: th.Muted(), Name: "empty", Desc: "no track data"},
	})

	colors := make([]lipgloss.Color, 16)
	for i := range colors {
		colors[i] = th.Color(float64(i) / float64(len(colors)-1))
	}

	var out strings.Builder
	out.WriteString(lipgloss.NewStyle().Foreground(th.Accent()).Bold(true).Render("Tracks"))
	out.WriteString("\n")
	out.WriteString(legend)
	out.WriteString("\n  ")
	out.WriteString(widgets.RenderSwatch(colors, sym.Bar))
	out.WriteString(" track colors\n\n")
	out.WriteString(widgets.RenderKeyHelp(keyHelp))
	return out.String()
}

// Render formats the report for non-interactive output. Colors are dropped
// automatically when stdout is not a terminal.
func Render(r Report, th *theme.Theme) string {
	return render(r, th, 0, len(r.Issues))
}

func render(r Report, th *theme.Theme, offset, rows int) string {
	headerStyle := lipgloss.NewStyle().Foreground(th.Accent()).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(th.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(th.Warning())
	okStyle := lipgloss.NewStyle().Foreground(th.Success())

	var out strings.Builder
	title := r.Title
	if title == "" {
		title = "(untitled)"
	}
	out.WriteString(headerStyle.Render(fmt.Sprintf("%s  →  %s", r.Input, r.Output)))
	out.WriteString("\n")
	out.WriteString(fmt.Sprintf("%s  %d tracks  %.1fs  %d tempo changes  %d ppq\n\n",
		title, len(r.Tracks), r.Seconds, r.Tempos, r.Resolution))

	const barWidth = 20
	most := r.maxEvents()
	for _, t := range r.Tracks {
		sym, style := th.Symbols.TrackOK, okStyle
		switch {
		case t.Empty:
			sym, style = th.Symbols.TrackEmpty, dimStyle
		case t.Abandoned:
			sym, style = th.Symbols.TrackAbandoned, warnStyle
		case t.Issues > 0:
			sym, style = th.Symbols.TrackRecovered, warnStyle
		}
		bar := strings.Repeat(string(th.Symbols.Bar), t.Events*barWidth/most)
		barStyle := lipgloss.NewStyle().Foreground(th.Color(float64(t.Index) / float64(max(len(r.Tracks)-1, 1))))

		out.WriteString(style.Render(string(sym)))
		out.WriteString(fmt.Sprintf(" %2d  0x%04x-0x%04x  %5d events %4d notes %6d clocks  ",
			t.Index, t.Start, t.End, t.Events, t.Notes, t.Ticks))
		out.WriteString(barStyle.Render(fmt.Sprintf("%-*s", barWidth, bar)))
		out.WriteString("\n")
	}

	if len(r.Issues) == 0 {
		return out.String()
	}
	out.WriteString("\n")
	out.WriteString(warnStyle.Render(fmt.Sprintf("%d issues recovered", len(r.Issues))))
	out.WriteString("\n")
	end := min(offset+rows, len(r.Issues))
	for _, iss := range r.Issues[offset:end] {
		out.WriteString(dimStyle.Render("  " + iss))
		out.WriteString("\n")
	}
	if end < len(r.Issues) {
		out.WriteString(dimStyle.Render(fmt.Sprintf("  … %d more", len(r.Issues)-end)))
		out.WriteString("\n")
	}
	return out.String()
}
