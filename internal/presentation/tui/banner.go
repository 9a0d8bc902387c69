package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	` _                _  __                      `,
	`| | ___  __ _  __| |/ _| ___  _ __ _ __ ___  `,
	`| |/ _ \/ _' |/ _' | |_ / _ \| '__| '_ ' _ \ `,
	`| |  __/ (_| | (_| |  _| (_) | |  | | | | | |`,
	`|_|\___|\__,_|\__,_|_|  \___/|_|  |_| |_| |_|`,
}

var bannerColors = []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6"}

// PrintBanner writes the leadform banner followed by the version to w.
// Colors are dropped when w is not a color terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(p.Color(bannerColors[i%len(bannerColors)])))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
