package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestTable(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var buf bytes.Buffer
	table := NewTable(&buf, []string{"Key", "Name", "Primary"}, &TableOptions{NoColor: true})

	table.AddRow("T", "temperature", "T")
	table.AddRow("VIS", "shear viscosity", "viscosity")
	table.Render()

	output := buf.String()
	for _, want := range []string{"Key", "Name", "Primary", "temperature", "shear viscosity", "─"} {
		if !strings.Contains(output, want) {
			t.Errorf("Table output missing %q:\n%s", want, output)
		}
	}
	if table.Len() != 2 {
		t.Errorf("Expected 2 rows, got %d", table.Len())
	}
}

func TestTableRightAlign(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"T", "P"}, &TableOptions{NoColor: true, Aligns: []Align{AlignRight, AlignRight}})

	table.AddRow("300", "101325")
	table.AddRow("77.5", "1e5")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d: %q", len(lines), lines)
	}
	if lines[3] != "77.5     1e5" {
		t.Errorf("Unexpected right-aligned row: %q", lines[3])
	}
	if lines[0] != "   T       P" {
		t.Errorf("Unexpected right-aligned header: %q", lines[0])
	}
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{}, &TableOptions{NoColor: true})

	table.Render()

	if buf.String() != "" {
		t.Errorf("Expected empty output for table with no headers, got: %q", buf.String())
	}
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)

	kv.AddRow("ID", "abc")
	kv.AddRow("Composition", "Nitrogen&Oxygen")
	kv.Render()

	want := "ID:          abc\nComposition: Nitrogen&Oxygen\n"
	if buf.String() != want {
		t.Errorf("Unexpected key-value output:\n%q\nwant\n%q", buf.String(), want)
	}
}
