package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the CLI banner with the version underneath.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	// Using a subtle gradient-like color scheme (Indigo/Violet)
	lines := []struct {
		text  string
		color string
	}{
		{"   ___  ___ ___  __ _ _   _ ", "#818cf8"},
		{"  / _ \\/ __/ __|/ _` | | | |", "#a78bfa"},
		{" |  __/\\__ \\__ \\ (_| | |_| |", "#c084fc"},
		{"  \\___||___/___/\\__,_|\\__, |", "#e879f9"},
		{"                      |___/ ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  agentic essay writer "+version).Faint())
	fmt.Fprintln(w)
}
