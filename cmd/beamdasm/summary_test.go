package main

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/wippyai/beamdasm/beam"
	"github.com/wippyai/beamdasm/errors"
)

func TestSummarize(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	m := &beam.Module{
		Path:    "ebin/m.beam",
		Atoms:   []string{"nil", "m", "f", "erlang", "now"},
		Imports: []beam.Import{{Module: 3, Function: 4}, {Module: 9, Function: 4}},
		Exports: []beam.FunctionEntry{{Function: 2, Arity: 1, Label: 2}},
		Instructions: []beam.Instruction{
			{Opcode: 19},
		},
		Diagnostics: []beam.Diagnostic{{Kind: errors.KindIllegalOpcode, Chunk: "Code", Offset: 40}},
	}

	out := summarize(m, listing{functions: true})
	for _, want := range []string{
		"ebin/m.beam",
		"atoms         4",
		"instructions  1",
		"f/1 label 2",
		"erlang:now/0",
		"#1 unresolved",
		"warning: illegal_opcode in Code at offset 40",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "move") || strings.Contains(out, "return") {
		t.Error("instructions must not be listed")
	}
}
