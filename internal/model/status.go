package model

import (
	"fmt"
	"strings"
)

// LengthStatus classifies a text field (title or meta description) by its length.
type LengthStatus int

const (
	// StatusGood means the text is present and within the recommended length range.
	StatusGood LengthStatus = iota

	// StatusTooShort means the text is shorter than the recommended minimum.
	StatusTooShort

	// StatusTooLong means the text is longer than the recommended maximum.
	StatusTooLong

	// StatusMissing means the element is absent from the document.
	StatusMissing
)

// String returns the human-readable name of the status.
func (s LengthStatus) String() string {
	switch s {
	case StatusGood:
		return "Good"
	case StatusTooShort:
		return "Too Short"
	case StatusTooLong:
		return "Too Long"
	case StatusMissing:
		return "Missing"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so that JSON output carries the name.
func (s LengthStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *LengthStatus) UnmarshalText(text []byte) error {
	switch strings.TrimSpace(string(text)) {
	case "Good":
		*s = StatusGood
	case "Too Short":
		*s = StatusTooShort
	case "Too Long":
		*s = StatusTooLong
	case "Missing":
		*s = StatusMissing
	default:
		return fmt.Errorf("unknown length status %q", text)
	}
	return nil
}

// H1Status classifies the number of <h1> elements on a page.
type H1Status int

const (
	// H1Good means the page has exactly one <h1>.
	H1Good H1Status = iota

	// H1Missing means the page has no <h1>.
	H1Missing

	// H1Multiple means the page has more than one <h1>.
	H1Multiple
)

// String returns the human-readable name of the status.
func (s H1Status) String() string {
	switch s {
	case H1Good:
		return "Good"
	case H1Missing:
		return "Missing"
	case H1Multiple:
		return "Multiple H1s"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s H1Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *H1Status) UnmarshalText(text []byte) error {
	switch strings.TrimSpace(string(text)) {
	case "Good":
		*s = H1Good
	case "Missing":
		*s = H1Missing
	case "Multiple H1s":
		*s = H1Multiple
	default:
		return fmt.Errorf("unknown h1 status %q", text)
	}
	return nil
}
