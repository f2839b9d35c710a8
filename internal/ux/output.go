// Package ux styles human-facing CLI output. Colour is used only when the
// destination is a terminal and NO_COLOR is unset.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/HendryAvila/plansync/internal/outline"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette.
var (
	ColorAccent  = lipgloss.Color("#20B9B4")
	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#6C7A89")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
)

// ColorEnabled reports whether w should receive ANSI colour.
func ColorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Printer writes styled lines to one destination. A quiet printer drops
// everything except errors.
type Printer struct {
	w     io.Writer
	color bool
	quiet bool
}

// NewPrinter returns a Printer for w, detecting colour support.
func NewPrinter(w io.Writer, quiet bool) *Printer {
	return &Printer{w: w, color: ColorEnabled(w), quiet: quiet}
}

// Writer returns the underlying destination.
func (p *Printer) Writer() io.Writer {
	return p.w
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

// Icon renders an icon in its semantic colour.
func (p *Printer) Icon(i Icon) string {
	switch i {
	case IconSuccess:
		return p.style(Styles.Success, string(i))
	case IconWarning:
		return p.style(Styles.Warning, string(i))
	case IconError:
		return p.style(Styles.Error, string(i))
	case IconPending:
		return p.style(Styles.Muted, string(i))
	}
	return string(i)
}

// Println writes an unstyled line.
func (p *Printer) Println(a ...any) {
	if p.quiet {
		return
	}
	_, _ = fmt.Fprintln(p.w, a...)
}

// Printf writes unstyled formatted text.
func (p *Printer) Printf(format string, a ...any) {
	if p.quiet {
		return
	}
	_, _ = fmt.Fprintf(p.w, format, a...)
}

// Title prints a bold heading.
func (p *Printer) Title(text string) {
	p.Println(p.style(Styles.Title, text))
}

// Muted prints de-emphasised text.
func (p *Printer) Muted(text string) {
	p.Println(p.style(Styles.Muted, text))
}

// Success prints a line prefixed with a check mark.
func (p *Printer) Success(format string, a ...any) {
	p.Println(p.Icon(IconSuccess), fmt.Sprintf(format, a...))
}

// Warning prints a line prefixed with a warning sign.
func (p *Printer) Warning(format string, a ...any) {
	p.Println(p.Icon(IconWarning), p.style(Styles.Warning, fmt.Sprintf(format, a...)))
}

// Error prints a line prefixed with a cross. It ignores quiet.
func (p *Printer) Error(format string, a ...any) {
	_, _ = fmt.Fprintln(p.w, p.Icon(IconError), p.style(Styles.Error, fmt.Sprintf(format, a...)))
}

// Box prints text inside a rounded border. Without colour the border is
// dropped too.
func (p *Printer) Box(text string) {
	if !p.color {
		p.Println(text)
		return
	}
	p.Println(Styles.Box.Render(text))
}

// StatusIcon maps a node status to the icon shown in listings.
func StatusIcon(s outline.Status) Icon {
	switch s {
	case outline.StatusCompleted:
		return IconSuccess
	case outline.StatusInProgress:
		return IconArrow
	}
	return IconPending
}

// ProgressBar renders done/total as a fixed-width bar such as
// "[██████░░░░]". A zero total renders an empty bar.
func ProgressBar(done, total, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
