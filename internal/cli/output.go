package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	goodColor   = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	badColor    = color.New(color.FgRed)
	labelColor  = color.New(color.Bold)
	dimColor    = color.New(color.Faint)
)

func printHeader(title string) {
	headerColor.Printf("=== %s ===\n", title)
}

// printRaw prints a JSON response body as returned by the server.
func printRaw(data []byte) {
	fmt.Println(string(data))
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// statusColor picks a color for a training or model status word.
func statusColor(status string) *color.Color {
	switch status {
	case "completed", "available", "loaded", "ready":
		return goodColor
	case "training", "pending", "not_loaded":
		return warnColor
	case "error", "failed":
		return badColor
	default:
		return dimColor
	}
}
