package main

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

type styles struct {
	title lipgloss.Style
	field lipgloss.Style
	kind  lipgloss.Style
	typ   lipgloss.Style
	value lipgloss.Style
	dim   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		field: r.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		kind:  r.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		typ:   r.NewStyle().Bold(true),
		value: r.NewStyle().Foreground(lipgloss.Color("#90EE90")),
		dim:   r.NewStyle().Foreground(lipgloss.Color("#666666")),
	}
}

// useColor decides whether output to w is styled.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newRenderer(cfg Config, w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	if useColor(cfg.Color, w) {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return newStyles(r)
}

// column is a cell padded to a display width before styling, so escape
// sequences never count towards alignment.
type column struct {
	text  string
	style lipgloss.Style
}

// table renders rows with every column but the last padded to the widest
// cell of that column.
type table struct {
	rows [][]column
}

func (t *table) add(cols ...column) { t.rows = append(t.rows, cols) }

func (t *table) write(w io.Writer) error {
	var widths []int
	for _, row := range t.rows {
		for i, c := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(c.text))
		}
	}
	var b strings.Builder
	for _, row := range t.rows {
		last := len(row) - 1
		for last > 0 && row[last].text == "" {
			last--
		}
		for i, c := range row[:last+1] {
			text := c.text
			if i < last {
				text = runewidth.FillRight(text, widths[i])
			}
			b.WriteString(c.style.Render(text))
			if i < last {
				b.WriteString("  ")
			}
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
