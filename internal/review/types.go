package review

import (
	"encoding/json"
	"fmt"
)

// Severity is the severity level of a single issue.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Issue is one finding in a review. Line is 1-based and nil when the issue
// applies to the file as a whole.
type Issue struct {
	Line       *int     `json:"line"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion *string  `json:"suggestion"`
}

// Result is the structured review artifact. CorrectedCode is nil when no
// changes are needed; when present it holds the complete corrected file,
// never a partial diff.
type Result struct {
	Summary       string   `json:"summary"`
	Issues        []Issue  `json:"issues"`
	Suggestions   []string `json:"suggestions"`
	CorrectedCode *string  `json:"corrected_code"`
}

// validate checks schema constraints after JSON decoding.
func (r *Result) validate() error {
	if r.Summary == "" {
		return fmt.Errorf("summary is required")
	}
	for i, issue := range r.Issues {
		if issue.Message == "" {
			return fmt.Errorf("issues[%d]: message is required", i)
		}
		switch issue.Severity {
		case SeverityInfo, SeverityWarning, SeverityError:
		case "":
			r.Issues[i].Severity = SeverityInfo
		default:
			return fmt.Errorf("issues[%d]: invalid severity %q", i, issue.Severity)
		}
	}
	if r.Issues == nil {
		r.Issues = []Issue{}
	}
	if r.Suggestions == nil {
		r.Suggestions = []string{}
	}
	return nil
}

// decodeResult unmarshals data into a Result and validates it. Unknown
// fields are ignored; a missing summary or a type mismatch is an error.
func decodeResult(data []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode review result: %w", err)
	}
	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("invalid review result: %w", err)
	}
	return &r, nil
}
