package extract

import (
	"errors"
	"strings"
)

var (
	ErrWrongPassword       = errors.New("wrong archive password")
	ErrInsufficientStorage = errors.New("insufficient storage for extraction")
	ErrCorruptArchive      = errors.New("archive appears corrupt")
	ErrExtractionFailed    = errors.New("extraction failed")
)

// Error carries the classified reason and the extractor's raw output
type Error struct {
	Kind   error
	Output string
}

func (e *Error) Error() string {
	return e.Kind.Error() + "\n" + e.Output
}

func (e *Error) Unwrap() error {
	return e.Kind
}

var classifiers = []struct {
	kind    error
	markers []string
}{
	{ErrWrongPassword, []string{"wrong password", "can not open encrypted archive"}},
	{ErrInsufficientStorage, []string{"not enough space", "no space left"}},
	{ErrCorruptArchive, []string{"data error", "unexpected end of archive"}},
}

// Classify maps extractor output to an *Error, checking markers in priority order
func Classify(output string) *Error {
	lower := strings.ToLower(output)
	for _, c := range classifiers {
		for _, m := range c.markers {
			if strings.Contains(lower, m) {
				return &Error{Kind: c.kind, Output: output}
			}
		}
	}
	return &Error{Kind: ErrExtractionFailed, Output: output}
}
