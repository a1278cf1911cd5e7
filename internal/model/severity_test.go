package model

import (
	"encoding/json"
	"testing"
)

// TestSeverityString tests the String method of Severity.
func TestSeverityString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		severity Severity
		expected string
	}{
		{SeverityGood, "Good"},
		{SeverityLow, "Low"},
		{SeverityMedium, "Medium"},
		{SeverityHigh, "High"},
		{SeverityCritical, "Critical"},
		{Severity(999), "Unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.severity.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.severity.String(), tc.expected)
			}
		})
	}
}

// TestSeverityOrdering tests that severity levels are ordered correctly.
// Good < Low < Medium < High < Critical
func TestSeverityOrdering(t *testing.T) {
	t.Parallel()

	if !(SeverityGood < SeverityLow && SeverityLow < SeverityMedium &&
		SeverityMedium < SeverityHigh && SeverityHigh < SeverityCritical) {
		t.Error("severity levels are not in ascending order")
	}
}

func TestParseSeverity(t *testing.T) {
	t.Parallel()

	t.Run("known label", func(t *testing.T) {
		t.Parallel()
		got, err := ParseSeverity("High")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != SeverityHigh {
			t.Errorf("got %v, expected %v", got, SeverityHigh)
		}
	})

	t.Run("unknown label", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseSeverity("Severe"); err == nil {
			t.Error("expected error for unknown label")
		}
	})
}

func TestKeyFindingJSON(t *testing.T) {
	t.Parallel()

	finding := KeyFinding{
		Title:    "Fast First Contentful Paint",
		Severity: SeverityGood,
		Type:     FindingStrength,
	}
	data, err := json.Marshal(finding)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["severity"] != "Good" {
		t.Errorf("severity = %v, expected Good", decoded["severity"])
	}
	if decoded["type"] != "Strength" {
		t.Errorf("type = %v, expected Strength", decoded["type"])
	}
}

func TestCountBySeverity(t *testing.T) {
	t.Parallel()

	counts := CountBySeverity([]KeyFinding{
		{Severity: SeverityHigh},
		{Severity: SeverityHigh},
		{Severity: SeverityGood},
	})
	if counts[SeverityHigh] != 2 {
		t.Errorf("high = %d, expected 2", counts[SeverityHigh])
	}
	if counts[SeverityGood] != 1 {
		t.Errorf("good = %d, expected 1", counts[SeverityGood])
	}
	if counts[SeverityCritical] != 0 {
		t.Errorf("critical = %d, expected 0", counts[SeverityCritical])
	}
}
