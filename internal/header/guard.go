package header

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"plcabi/internal/diag"
)

// FallbackGuard is used when an artifact name cannot be turned into a guard.
const FallbackGuard = "PLC_GENERATED_HEADER_H"

// PathEncodingError reports an artifact name that yields no usable include
// guard. It is a warning: emission continues with FallbackGuard.
type PathEncodingError struct {
	Path   string
	Reason string
}

func (e *PathEncodingError) Error() string {
	return fmt.Sprintf("cannot derive include guard from %q: %s; using %s", e.Path, e.Reason, FallbackGuard)
}

func (e *PathEncodingError) Code() diag.Code { return diag.HeaderPathEncoding }
func (e *PathEncodingError) Subject() string { return e.Path }
func (e *PathEncodingError) Warning() bool   { return true }

var upper = cases.Upper(language.Und)

// Guard derives the include guard of an artifact from its relative name:
// NFC-normalized, upper-cased, every run of characters outside [A-Z0-9]
// collapsed to one underscore, leading and trailing underscores trimmed.
// A guard never starts with a digit.
func Guard(name string) (string, error) {
	if !utf8.ValidString(name) {
		return FallbackGuard, &PathEncodingError{Path: strings.ToValidUTF8(name, "?"), Reason: "invalid UTF-8"}
	}
	s := upper.String(norm.NFC.String(name))

	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	guard := b.String()
	if guard == "" {
		return FallbackGuard, &PathEncodingError{Path: name, Reason: "no letters or digits"}
	}
	if guard[0] >= '0' && guard[0] <= '9' {
		guard = "_" + guard
	}
	return guard, nil
}
