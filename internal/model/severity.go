package model

import "fmt"

// Severity represents how strongly a finding affects search visibility.
// SeverityGood marks a strength rather than a problem.
type Severity int

const (
	// SeverityGood indicates a check that passed.
	SeverityGood Severity = iota

	// SeverityLow indicates a minor issue with limited ranking impact.
	SeverityLow

	// SeverityMedium indicates an issue that warrants attention.
	SeverityMedium

	// SeverityHigh indicates an issue that measurably hurts visibility or user experience.
	SeverityHigh

	// SeverityCritical indicates an issue that requires immediate attention.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityGood:
		return "Good"
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// ParseSeverity converts a label such as "High" into a Severity.
func ParseSeverity(s string) (Severity, error) {
	for sev := SeverityGood; sev <= SeverityCritical; sev++ {
		if sev.String() == s {
			return sev, nil
		}
	}
	return SeverityGood, fmt.Errorf("unknown severity %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// FindingType tells whether a finding is a strength or a weakness.
type FindingType string

const (
	// FindingStrength is a check the site passes.
	FindingStrength FindingType = "Strength"
	// FindingWeakness is a check the site fails.
	FindingWeakness FindingType = "Weakness"
)
