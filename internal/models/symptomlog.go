// internal/models/symptomlog.go
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMissingSymptom  = errors.New("symptom is required")
	ErrInvalidSeverity = errors.New("invalid severity")
)

type Severity string

const (
	Mild     Severity = "mild"
	Moderate Severity = "moderate"
	Severe   Severity = "severe"
)

// ParseSeverity accepts any casing; an empty value means mild.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case "":
		return Mild, nil
	case Mild, Moderate, Severe:
		return sev, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
	}
}

// SymptomLogEntry records a symptom or flare-up on a calendar day. It is
// stored next to the food log but never correlated with it.
type SymptomLogEntry struct {
	ID        string
	Symptom   string
	Severity  Severity
	Notes     string
	Date      time.Time
	CreatedAt time.Time
}

func (e *SymptomLogEntry) Day() string {
	return e.Date.Format(DateLayout)
}

func (e *SymptomLogEntry) Validate() error {
	if strings.TrimSpace(e.Symptom) == "" {
		return ErrMissingSymptom
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	if e.Severity == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, e.Severity)
	}
	if _, err := ParseSeverity(string(e.Severity)); err != nil {
		return err
	}
	return nil
}

type SymptomLogView struct {
	ID        string    `json:"id"`
	Symptom   string    `json:"symptom"`
	Severity  Severity  `json:"severity"`
	Notes     string    `json:"notes,omitempty"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

func (e *SymptomLogEntry) View() SymptomLogView {
	return SymptomLogView{
		ID:        e.ID,
		Symptom:   e.Symptom,
		Severity:  e.Severity,
		Notes:     e.Notes,
		Date:      e.Day(),
		CreatedAt: e.CreatedAt,
	}
}
