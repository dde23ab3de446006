package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  _       _        _        ", "#818cf8"},
	{" (_)_ __ | |_ __ _| | _____ ", "#a78bfa"},
	{" | | '_ \\| __/ _` | |/ / _ \\", "#c084fc"},
	{" | | | | | || (_| |   <  __/", "#e879f9"},
	{" |_|_| |_|\\__\\__,_|_|\\_\\___|", "#f472b6"},
}

// PrintBanner writes the ASCII banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}

// Prompt returns the styled input prompt.
func Prompt() string {
	p := termenv.ColorProfile()
	return termenv.String("> ").Foreground(p.Color("#818cf8")).Bold().String()
}
