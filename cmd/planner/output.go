// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Aleutian palette.
var (
	colorTealBright  = lipgloss.Color("#2CD7C7")
	colorTealPrimary = lipgloss.Color("#20B9B4")
	colorTealDeep    = lipgloss.Color("#16858E")
	colorSlate       = lipgloss.Color("#2C4A54")
	colorWarning     = lipgloss.Color("#F4D03F")
	colorError       = lipgloss.Color("#E74C3C")
)

var styles = struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Step    lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorTealBright),
	Muted:   lipgloss.NewStyle().Foreground(colorSlate),
	Success: lipgloss.NewStyle().Foreground(colorTealBright),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Step:    lipgloss.NewStyle().Foreground(colorTealPrimary),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorTealDeep).
		Padding(0, 1),
}

// printer writes command output. When plain is set, output carries no
// ANSI styling so it can be piped or parsed.
type printer struct {
	w     io.Writer
	plain bool
}

// newPrinter styles output only when w is a terminal.
func newPrinter(w io.Writer) *printer {
	plain := true
	if f, ok := w.(*os.File); ok {
		plain = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	}
	return &printer{w: w, plain: plain}
}

func (p *printer) success(text string) {
	if p.plain {
		fmt.Fprintf(p.w, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", styles.Success.Render("✓"), styles.Success.Render(text))
}

func (p *printer) warning(text string) {
	if p.plain {
		fmt.Fprintf(p.w, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", styles.Warning.Render("⚠"), styles.Warning.Render(text))
}

func (p *printer) failure(text string) {
	if p.plain {
		fmt.Fprintf(p.w, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", styles.Error.Render("✗"), styles.Error.Render(text))
}

func (p *printer) field(key string, value any) {
	if p.plain {
		fmt.Fprintf(p.w, "%s: %v\n", key, value)
		return
	}
	fmt.Fprintf(p.w, "%s %s %v\n", styles.Muted.Render("│"), styles.Muted.Render(key+":"), value)
}

// steps prints a numbered list, one step per line.
func (p *printer) steps(title string, steps []string) {
	if p.plain {
		for i, s := range steps {
			fmt.Fprintf(p.w, "%d. %s\n", i+1, s)
		}
		return
	}
	var b strings.Builder
	b.WriteString(styles.Title.Render(title))
	if len(steps) == 0 {
		b.WriteString("\n" + styles.Muted.Render("(no steps, goals already hold)"))
	}
	for i, s := range steps {
		fmt.Fprintf(&b, "\n%s %s", styles.Muted.Render(fmt.Sprintf("%2d.", i+1)), styles.Step.Render(s))
	}
	fmt.Fprintln(p.w, styles.Box.Render(b.String()))
}

// facts prints a fact list, one per line.
func (p *printer) facts(title string, facts []string) {
	if p.plain {
		fmt.Fprintf(p.w, "%s:\n", title)
		for _, f := range facts {
			fmt.Fprintf(p.w, "  %s\n", f)
		}
		return
	}
	fmt.Fprintln(p.w, styles.Title.Render(title))
	for _, f := range facts {
		fmt.Fprintf(p.w, "  %s %s\n", styles.Muted.Render("•"), f)
	}
}
