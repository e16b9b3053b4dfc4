package tui

import (
	"fmt"
	"io"

	"github.com/aretw0/cognito"
	"github.com/muesli/termenv"
)

// PrintBanner writes the startup banner to w.
func PrintBanner(w io.Writer, identity string) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{"   ___ ___   ___ _  _ ___ _____ ___", "#818cf8"},
		{"  / __/ _ \\ / __| \\| |_ _|_   _/ _ \\", "#a78bfa"},
		{" | (_| (_) | (_ | .` || |  | || (_) |", "#c084fc"},
		{"  \\___\\___/ \\___|_|\\_|___| |_| \\___/", "#e879f9"},
	}
	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String(fmt.Sprintf("  v%s  signing as %s", cognito.Version, identity)).Faint())
	fmt.Fprintln(w)
}

// Warn highlights text in the terminal's warning color.
func Warn(text string) string {
	p := termenv.ColorProfile()
	return termenv.String(text).Foreground(p.Color("#f59e0b")).Bold().String()
}
