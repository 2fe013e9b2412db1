package enums

import (
	"fmt"

	"plcabi/internal/diag"
)

// DuplicateMemberNameError reports a member name used twice, either inside
// one enum (Other == Enum) or, under the strict dialect, by two enums.
type DuplicateMemberNameError struct {
	Member string
	Enum   string
	Other  string // enum that declared the name first
}

func (e *DuplicateMemberNameError) Error() string {
	if e.Other == e.Enum {
		return fmt.Sprintf("enum %s declares member %q more than once", e.Enum, e.Member)
	}
	return fmt.Sprintf("member %q of enum %s is already declared by enum %s", e.Member, e.Enum, e.Other)
}

func (e *DuplicateMemberNameError) Code() diag.Code { return diag.EnumDuplicateMember }
func (e *DuplicateMemberNameError) Subject() string { return e.Enum + "." + e.Member }

// ValueRangeError reports a member value that does not fit the signed
// backing integer of its enum.
type ValueRangeError struct {
	Enum   string
	Member string
	Value  int64
	Width  int
	Err    error
}

func (e *ValueRangeError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("enum %s: unsupported backing width %d", e.Enum, e.Width)
	}
	return fmt.Sprintf("enum %s: value %d of member %q does not fit %d bits", e.Enum, e.Value, e.Member, e.Width)
}

func (e *ValueRangeError) Unwrap() error { return e.Err }

func (e *ValueRangeError) Code() diag.Code { return diag.EnumValueRange }

func (e *ValueRangeError) Subject() string {
	if e.Member == "" {
		return e.Enum
	}
	return e.Enum + "." + e.Member
}
