package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/rnovak/envdrift/internal/analyzer"
)

var (
	// Color support detection
	colorEnabled = initColorSupport()
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// initColorSupport initializes color support for the terminal
func initColorSupport() bool {
	// Check if stdout is a terminal
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}

	// On Windows, enable ANSI escape sequences (handled in formatter_windows.go)
	// On Unix-like systems, colors are supported if it's a terminal
	return enableANSI()
}

// getColor returns the color code if colors are enabled, empty string otherwise
func getColor(code string) string {
	if colorEnabled {
		return code
	}
	return ""
}

// JSONOutput represents the JSON output format
type JSONOutput struct {
	Differences []DiffVar `json:"differences"`
	Checked     int       `json:"checked"`
	Skipped     int       `json:"skipped"`
	Ignored     int       `json:"ignored"`
}

// DiffVar represents one reported difference. The declared value is
// redacted: reports end up in CI logs and pastebins.
type DiffVar struct {
	Key   string   `json:"key"`
	Value string   `json:"value"`
	Paths []string `json:"paths"`
}

// Format writes the reconciliation report for result to w. envPath and
// cachePath label the header line; jsonOutput switches to the machine
// readable format and noHeader drops the banner.
func Format(w io.Writer, result analyzer.Result, envPath, cachePath string, jsonOutput bool, noHeader bool) error {
	if jsonOutput {
		return formatJSON(w, result)
	}
	return formatHumanReadable(w, result, envPath, cachePath, noHeader)
}

// formatJSON outputs results in JSON format
func formatJSON(w io.Writer, result analyzer.Result) error {
	output := JSONOutput{
		Differences: []DiffVar{},
		Checked:     result.Checked,
		Skipped:     result.Skipped,
		Ignored:     result.Ignored,
	}

	for _, diff := range result.Diffs {
		paths := diff.Paths
		if paths == nil {
			paths = []string{}
		}
		output.Differences = append(output.Differences, DiffVar{
			Key:   diff.Name,
			Value: redactValue(diff.Value),
			Paths: paths,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// formatHumanReadable outputs results in human-readable format: a header
// naming both inputs, then one [DIFF] line per drifted variable in
// environment file order.
func formatHumanReadable(w io.Writer, result analyzer.Result, envPath, cachePath string, noHeader bool) error {
	if !noHeader {
		fmt.Fprintf(w, "%s=== Differences between %s and %s ===%s\n", getColor(colorBold), envPath, cachePath, getColor(colorReset))
	}

	for _, diff := range result.Diffs {
		fmt.Fprintf(w, "%s[DIFF]%s %s\n", getColor(colorRed), getColor(colorReset), diff.Name)
	}

	if !result.HasDiffs() {
		fmt.Fprintf(w, "%sNo differences found.%s\n", getColor(colorGreen), getColor(colorReset))
	}

	if result.Ignored > 0 {
		fmt.Fprintf(w, "%sNote:%s %d difference(s) were ignored (configured in .envdrift.yml)\n", getColor(colorGray), getColor(colorReset), result.Ignored)
	}

	return nil
}

// redactValue redacts sensitive values while showing the type
func redactValue(value string) string {
	if value == "" {
		return `""`
	}
	// If it looks like a secret (long, random-looking), redact it
	if len(value) > 20 {
		return "[REDACTED]"
	}
	// If it contains special characters that suggest it's a secret
	if strings.ContainsAny(value, "=+/") && len(value) > 10 {
		return "[REDACTED]"
	}
	// For short values, show first and last char
	if len(value) > 4 {
		return string(value[0]) + "..." + string(value[len(value)-1])
	}
	// For very short values, just show asterisks
	return "***"
}

// FormatError formats an error message
func FormatError(err error) string {
	return fmt.Sprintf("Error: %s\n", err)
}
