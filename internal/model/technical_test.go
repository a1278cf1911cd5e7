package model

import "testing"

func TestNewCoverageStats(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		total    int64
		unused   int64
		expected int
	}{
		{"zero total", 0, 0, 0},
		{"all used", 1000, 0, 0},
		{"all unused", 1000, 1000, 100},
		{"rounds half up", 200, 101, 51},
		{"rounds down", 300, 100, 33},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := NewCoverageStats(tc.total, tc.unused)
			if got.UnusedPercent != tc.expected {
				t.Errorf("UnusedPercent = %d, expected %d", got.UnusedPercent, tc.expected)
			}
			if got.TotalBytes != tc.total || got.UnusedBytes != tc.unused {
				t.Errorf("bytes not preserved: %+v", got)
			}
		})
	}
}

func TestEmptyTechnicalMetrics(t *testing.T) {
	t.Parallel()

	m := EmptyTechnicalMetrics()
	if m.Performance != nil || m.Coverage != nil || m.PixelWidths != nil {
		t.Error("expected nil optional sections")
	}
	if m.ConsoleMessages == nil || m.JSErrors == nil {
		t.Error("expected non-nil empty slices")
	}
	if m.HasJSErrors() {
		t.Error("empty metrics should not report JS errors")
	}
}
