package main

import (
	"strings"
	"testing"
)

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if got := colorize(colorRed, "hello"); strings.Contains(got, "\033") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", got)
	}

	noColor = false
	if got := colorize(colorRed, "hello"); !strings.Contains(got, colorRed) {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", got)
	}
}
