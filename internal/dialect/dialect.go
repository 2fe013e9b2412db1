package dialect

import (
	"fmt"
	"strings"
)

// Dialect selects how enumerations are emitted. It never changes resolved
// values or native layout.
type Dialect uint8

const (
	// Strict emits a native enum with unprefixed members; member names must
	// be unique across all enums of a unit.
	Strict Dialect = iota
	// Compatible emits an integer typedef plus one prefixed #define per member.
	Compatible

	dialectCount
)

func (d Dialect) String() string {
	switch d {
	case Strict:
		return "strict"
	case Compatible:
		return "compatible"
	default:
		return "unknown"
	}
}

func (d Dialect) GoString() string {
	return fmt.Sprintf("Dialect(%s)", d.String())
}

// Valid reports whether d is one of the known dialects.
func (d Dialect) Valid() bool { return d < dialectCount }

// RequiresUniqueMembers reports whether member names share one namespace
// across all enums of a unit.
func (d Dialect) RequiresUniqueMembers() bool { return d == Strict }

// Parse maps a configuration value to a Dialect. The empty string selects
// Strict.
func Parse(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "compatible", "compat":
		return Compatible, nil
	default:
		return Strict, fmt.Errorf("unknown enum dialect %q (want strict or compatible)", s)
	}
}
