package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
	ansiBlue   = "\x1b[34m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func renderLabelled(label, value string, colorize bool, color string) string {
	if colorize && color != "" {
		value = color + value + ansiReset
	}
	return fmt.Sprintf("%-14s %s", label+":", value)
}

// formatSeconds renders a timeline position as m:ss.t.
func formatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int(seconds) / 60
	rest := seconds - float64(minutes*60)
	return fmt.Sprintf("%d:%04.1f", minutes, rest)
}

// parseSeconds accepts either plain seconds ("92.5") or m:ss ("1:32.5").
func parseSeconds(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("position is required")
	}
	if idx := strings.IndexByte(value, ':'); idx >= 0 {
		var minutes int
		var rest float64
		if _, err := fmt.Sscanf(value, "%d:%f", &minutes, &rest); err != nil {
			return 0, fmt.Errorf("invalid position %q", value)
		}
		if minutes < 0 || rest < 0 || rest >= 60 {
			return 0, fmt.Errorf("invalid position %q", value)
		}
		return float64(minutes)*60 + rest, nil
	}
	var seconds float64
	if _, err := fmt.Sscanf(value, "%f", &seconds); err != nil || math.IsNaN(seconds) {
		return 0, fmt.Errorf("invalid position %q", value)
	}
	return seconds, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
