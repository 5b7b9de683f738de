package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// detailWidth is the column at which details are wrapped.
const detailWidth = 70

var renderer = lipgloss.NewRenderer(os.Stderr)

// palette holds the styles used by Format. It is rebuilt when the color
// profile changes.
type palette struct {
	header   lipgloss.Style
	code     lipgloss.Style
	location lipgloss.Style
	gutter   lipgloss.Style
	arrow    lipgloss.Style
	label    lipgloss.Style
	hint     lipgloss.Style
	detail   lipgloss.Style
}

var styles = newPalette()

func newPalette() palette {
	return palette{
		header:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		code:     renderer.NewStyle().Bold(true),
		location: renderer.NewStyle().Foreground(lipgloss.Color("6")),
		gutter:   renderer.NewStyle().Foreground(lipgloss.Color("8")),
		arrow:    renderer.NewStyle().Foreground(lipgloss.Color("1")),
		label:    renderer.NewStyle().Foreground(lipgloss.Color("8")),
		hint:     renderer.NewStyle().Foreground(lipgloss.Color("6")),
		detail:   renderer.NewStyle().Width(detailWidth),
	}
}

// DisableColors turns off ANSI styling.
func DisableColors() {
	renderer.SetColorProfile(termenv.Ascii)
	styles = newPalette()
}

// EnableColors forces ANSI styling even when stderr is not a terminal.
func EnableColors() {
	renderer.SetColorProfile(termenv.ANSI)
	styles = newPalette()
}

// Format returns a formatted error message for terminal display.
func (e *RefxError) Format() string {
	var b strings.Builder
	s := styles

	b.WriteString("\n")
	b.WriteString(s.header.Render("ERROR"))
	if e.Code != "" {
		b.WriteString(" " + s.code.Render(e.Code+":"))
	}
	b.WriteString(" " + e.Message)
	if e.Site > 0 {
		b.WriteString(s.label.Render(fmt.Sprintf(" (value %d)", e.Site)))
	}
	b.WriteString("\n\n")

	if e.Location != nil {
		b.WriteString("  " + s.location.Render(e.Location.String()) + "\n\n")
		if len(e.Context) > 0 {
			e.writeContext(&b, s)
			b.WriteString("\n")
		}
	}

	if e.Detail != "" {
		for _, line := range strings.Split(s.detail.Render(e.Detail), "\n") {
			b.WriteString("  " + strings.TrimRight(line, " ") + "\n")
		}
		b.WriteString("\n")
	}
	if e.Wrapped != nil {
		b.WriteString("  " + s.label.Render("Cause:") + " " + e.Wrapped.Error() + "\n\n")
	}
	if e.Suggestion != "" {
		b.WriteString("  " + s.hint.Render("Hint:") + " " + e.Suggestion + "\n\n")
	}
	return b.String()
}

// writeContext prints the source lines around the location with the
// offending line marked and a caret under the column.
func (e *RefxError) writeContext(b *strings.Builder, s palette) {
	start := e.ContextStart
	if start == 0 {
		start = e.Location.Line - len(e.Context)/2
	}
	bar := s.gutter.Render(" │ ")
	for i, line := range e.Context {
		n := start + i
		if n != e.Location.Line {
			fmt.Fprintf(b, "    %4d%s%s\n", n, bar, line)
			continue
		}
		fmt.Fprintf(b, "  %s%4d%s%s\n", s.arrow.Render("→ "), n, bar, line)
		if e.Location.Column > 0 {
			fmt.Fprintf(b, "       %s%s%s\n", s.gutter.Render("│ "), strings.Repeat(" ", e.Location.Column-1), s.arrow.Render("^"))
		}
	}
}

// FormatCompact returns a compact single-line error format.
func (e *RefxError) FormatCompact() string {
	var parts []string
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	msg := e.Message
	if e.Site > 0 {
		msg += fmt.Sprintf(" (value %d)", e.Site)
	}
	return strings.Join(append(parts, msg), ": ")
}

type jsonLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	Site       int           `json:"site,omitempty"`
	Cause      string        `json:"cause,omitempty"`
}

// FormatJSON returns the error as a JSON object.
func (e *RefxError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		Site:       e.Site,
	}
	if e.Location != nil {
		out.Location = &jsonLocation{File: e.Location.File, Line: e.Location.Line, Column: e.Location.Column}
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(data)
}

// Fprint writes err to w, formatted when it is a RefxError.
func Fprint(w io.Writer, err error) {
	var re *RefxError
	if errors.As(err, &re) {
		fmt.Fprint(w, re.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", styles.header.Render("ERROR:"), err.Error())
}

// PrintError prints a formatted error to stderr.
func PrintError(err error) {
	Fprint(os.Stderr, err)
}
