// Package output renders review results and status messages for the
// terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/jmallory/revu/internal/review"
)

// UI provides colored output and respects verbose mode.
type UI struct {
	Verbose bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	warningPrefix = color.New(color.FgHiYellow).Sprint("⚠")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  →")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Green returns a green-colored string.
func Green(s string) string { return green(s) }

// Yellow returns a yellow-colored string.
func Yellow(s string) string { return yellow(s) }

// Red returns a red-colored string.
func Red(s string) string { return red(s) }

// SeverityColor returns the string colored by issue severity.
func SeverityColor(severity review.Severity) string {
	s := string(severity)
	switch severity {
	case review.SeverityError:
		return red(s)
	case review.SeverityWarning:
		return yellow(s)
	case review.SeverityInfo:
		return cyan(s)
	default:
		return s
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}

// RenderResult prints a complete review: summary, issues table,
// suggestions, and corrected code when present.
func (u *UI) RenderResult(result *review.Result) {
	fmt.Fprintf(u.Out, "\n%s\n\n", result.Summary)

	if len(result.Issues) > 0 {
		table := u.Table([]string{"LINE", "SEVERITY", "MESSAGE", "SUGGESTION"})
		for _, issue := range result.Issues {
			line := "-"
			if issue.Line != nil {
				line = strconv.Itoa(*issue.Line)
			}
			suggestion := ""
			if issue.Suggestion != nil {
				suggestion = *issue.Suggestion
			}
			_ = table.Append([]string{line, SeverityColor(issue.Severity), issue.Message, suggestion})
		}
		_ = table.Render()
		fmt.Fprintln(u.Out)
	} else {
		u.Success("No issues found")
	}

	if len(result.Suggestions) > 0 {
		fmt.Fprintf(u.Out, "%s\n", cyan("Suggestions:"))
		for _, s := range result.Suggestions {
			fmt.Fprintf(u.Out, "  - %s\n", s)
		}
		fmt.Fprintln(u.Out)
	}

	if result.CorrectedCode != nil {
		fmt.Fprintf(u.Out, "%s\n%s\n", cyan("Corrected code:"), *result.CorrectedCode)
	}
}

// IssueCounts summarizes issue counts by severity, e.g. "2 errors, 1 warning".
func IssueCounts(issues []review.Issue) string {
	var errs, warns, infos int
	for _, i := range issues {
		switch i.Severity {
		case review.SeverityError:
			errs++
		case review.SeverityWarning:
			warns++
		default:
			infos++
		}
	}
	var parts []string
	if errs > 0 {
		parts = append(parts, plural(errs, "error"))
	}
	if warns > 0 {
		parts = append(parts, plural(warns, "warning"))
	}
	if infos > 0 {
		parts = append(parts, plural(infos, "info"))
	}
	if len(parts) == 0 {
		return "no issues"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
