package diag

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// ColorMode selects whether Format emits ANSI colour sequences.
type ColorMode uint8

const (
	ColorAuto ColorMode = iota
	ColorOn
	ColorOff
)

func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ColorAuto, nil
	case "on", "always":
		return ColorOn, nil
	case "off", "never":
		return ColorOff, nil
	}
	return ColorAuto, fmt.Errorf("unknown color mode %q (want auto|on|off)", s)
}

type FormatOptions struct {
	Color        ColorMode
	IncludeNotes bool
}

// Format writes one line per diagnostic:
//
//	error   LAY1001 Node      record contains itself by value
//
// Entries are sorted like Bag.Sort; the subject column is padded to the widest
// subject so that messages line up.
func Format(w io.Writer, diags []Diagnostic, opts FormatOptions) error {
	if len(diags) == 0 {
		return nil
	}
	sorted := make([]Diagnostic, len(diags))
	copy(sorted, diags)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := sorted[i], sorted[j]
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		if di.Subject != dj.Subject {
			return di.Subject < dj.Subject
		}
		return di.Code < dj.Code
	})

	useColor := colorEnabled(w, opts.Color)
	width := 0
	for _, d := range sorted {
		width = max(width, runewidth.StringWidth(d.Subject))
	}

	for _, d := range sorted {
		label := runewidth.FillRight(d.Severity.label(), len("warning"))
		if _, err := fmt.Fprintf(w, "%s %s %s %s\n",
			paint(severityColor(d.Severity), label, useColor),
			d.Code.ID(),
			runewidth.FillRight(d.Subject, width),
			sanitizeMessage(d.Message)); err != nil {
			return err
		}
		if !opts.IncludeNotes {
			continue
		}
		for _, n := range d.Notes {
			label := runewidth.FillRight("note", len("warning"))
			if _, err := fmt.Fprintf(w, "%s %s %s %s\n",
				paint(color.New(color.FgCyan), label, useColor),
				d.Code.ID(),
				runewidth.FillRight(n.Subject, width),
				sanitizeMessage(n.Msg)); err != nil {
				return err
			}
		}
	}
	return nil
}

// FormatShort renders diagnostics without colour into a string, mainly for
// logs and tests.
func FormatShort(diags []Diagnostic, includeNotes bool) string {
	var sb strings.Builder
	_ = Format(&sb, diags, FormatOptions{Color: ColorOff, IncludeNotes: includeNotes})
	return strings.TrimRight(sb.String(), "\n")
}

func colorEnabled(w io.Writer, mode ColorMode) bool {
	switch mode {
	case ColorOn:
		return true
	case ColorOff:
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func severityColor(sev Severity) *color.Color {
	switch sev {
	case SevError:
		return color.New(color.FgRed, color.Bold)
	case SevWarning:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgBlue)
	}
}

func paint(c *color.Color, s string, enabled bool) string {
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
