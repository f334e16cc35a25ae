package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/beamdasm/beam"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Width(14)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type listing struct {
	chunks    bool
	functions bool
}

// summarize renders table sizes and, on request, chunk and function
// listings. Instructions are counted, never printed.
func summarize(m *beam.Module, opts listing) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.Name()))
	if m.Path != "" {
		b.WriteString(" " + dimStyle.Render(m.Path))
	}
	b.WriteString("\n")

	row := func(label string, n int) {
		fmt.Fprintf(&b, "%s%d\n", labelStyle.Render(label), n)
	}
	row("atoms", len(m.Atoms)-1)
	row("imports", len(m.Imports))
	row("exports", len(m.Exports))
	row("locals", len(m.Locals))
	row("lambdas", len(m.Lambdas))
	row("literals", len(m.Literals))
	row("line refs", max(len(m.LineRefs)-1, 0))
	row("labels", int(m.Code.LabelCount))
	row("instructions", len(m.Instructions))

	if opts.chunks {
		b.WriteString("\n")
		for _, c := range m.Chunks() {
			fmt.Fprintf(&b, "%s%8d bytes at %d\n", labelStyle.Render(c.Name), c.Size, c.Offset)
		}
	}

	if opts.functions {
		if len(m.Exports) > 0 {
			b.WriteString("\nexports\n")
			for _, f := range m.Exports {
				fmt.Fprintf(&b, "  %s/%d %s\n", funcStyle.Render(m.FunctionName(f)), f.Arity, dimStyle.Render(fmt.Sprintf("label %d", f.Label)))
			}
		}
		if len(m.Locals) > 0 {
			b.WriteString("\nlocals\n")
			for _, f := range m.Locals {
				fmt.Fprintf(&b, "  %s/%d %s\n", m.FunctionName(f), f.Arity, dimStyle.Render(fmt.Sprintf("label %d", f.Label)))
			}
		}
		if len(m.Imports) > 0 {
			b.WriteString("\nimports\n")
			for i := range m.Imports {
				mfa, ok := m.ResolveImport(uint32(i))
				if !ok {
					fmt.Fprintf(&b, "  %s\n", warnStyle.Render(fmt.Sprintf("#%d unresolved", i)))
					continue
				}
				fmt.Fprintf(&b, "  %s\n", mfa)
			}
		}
	}

	if len(m.Diagnostics) > 0 {
		b.WriteString("\n")
		for _, d := range m.Diagnostics {
			b.WriteString(warnStyle.Render("warning: "+d.String()) + "\n")
		}
	}
	return b.String()
}
