package layout

import (
	"fmt"
	"strings"

	"plcabi/internal/diag"
)

// CyclicTypeError reports records that contain each other by value.
type CyclicTypeError struct {
	Type  string
	Cycle []string // records on the cycle, starting at Type
}

func (e *CyclicTypeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Cycle) <= 1 {
		return fmt.Sprintf("record %q contains itself by value", e.Type)
	}
	path := append(append([]string(nil), e.Cycle...), e.Cycle[0])
	return fmt.Sprintf("records contain each other by value (cycle: %s)", strings.Join(path, " -> "))
}

func (e *CyclicTypeError) Code() diag.Code { return diag.LayoutCyclicType }
func (e *CyclicTypeError) Subject() string { return e.Type }

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	LayoutErrUnknownType LayoutErrorKind = iota + 1
	LayoutErrInvalidArray
	LayoutErrBadParent
	LayoutErrOverflow
	LayoutErrRecursiveAlias
	LayoutErrDuplicate
	LayoutErrIncompleteAlias
)

// LayoutError represents an error during memory layout calculation.
type LayoutError struct {
	Kind   LayoutErrorKind
	Type   string // record or declaration the problem was found in
	Detail string
	Err    error // for LayoutErrOverflow
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrUnknownType:
		return fmt.Sprintf("%s: unknown type %q", e.Type, e.Detail)
	case LayoutErrInvalidArray:
		return fmt.Sprintf("%s: invalid array dimension in %s", e.Type, e.Detail)
	case LayoutErrBadParent:
		return fmt.Sprintf("%s: parent %q is not a record", e.Type, e.Detail)
	case LayoutErrOverflow:
		if e.Err != nil {
			return fmt.Sprintf("%s: size of %s overflows: %v", e.Type, e.Detail, e.Err)
		}
		return fmt.Sprintf("%s: size of %s overflows", e.Type, e.Detail)
	case LayoutErrRecursiveAlias:
		return fmt.Sprintf("%s: alias %q contains itself by value", e.Type, e.Detail)
	case LayoutErrDuplicate:
		return fmt.Sprintf("record %q is declared more than once", e.Type)
	case LayoutErrIncompleteAlias:
		return fmt.Sprintf("alias %s: array of record %q cannot be declared before the record", e.Type, e.Detail)
	default:
		return fmt.Sprintf("layout error kind=%d in %s", e.Kind, e.Type)
	}
}

func (e *LayoutError) Unwrap() error { return e.Err }

func (e *LayoutError) Code() diag.Code {
	switch e.Kind {
	case LayoutErrUnknownType:
		return diag.LayoutUnknownType
	case LayoutErrInvalidArray:
		return diag.LayoutInvalidArray
	case LayoutErrBadParent:
		return diag.LayoutBadParent
	case LayoutErrOverflow:
		return diag.LayoutOverflow
	case LayoutErrRecursiveAlias:
		return diag.LayoutCyclicType
	case LayoutErrDuplicate:
		return diag.LayoutDuplicate
	case LayoutErrIncompleteAlias:
		return diag.LayoutIncomplete
	default:
		return diag.UnknownCode
	}
}

func (e *LayoutError) Subject() string { return e.Type }
