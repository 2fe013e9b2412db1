package vtable

import (
	"fmt"

	"plcabi/internal/diag"
	"plcabi/internal/model"
)

// SignatureMismatchError reports an override whose signature differs from
// the slot it binds to.
type SignatureMismatchError struct {
	Type   string // overriding record
	Method string
	Base   string // record that introduced the slot
	Want   model.Signature
	Got    model.Signature
}

func (e *SignatureMismatchError) Error() string {
	return fmt.Sprintf("%s.%s overrides %s.%s with a different signature: want %s, got %s",
		e.Type, e.Method, e.Base, e.Method, e.Want, e.Got)
}

func (e *SignatureMismatchError) Code() diag.Code { return diag.VTableSignatureMismatch }
func (e *SignatureMismatchError) Subject() string { return e.Type + "." + e.Method }

func (e *SignatureMismatchError) Notes() []diag.Note {
	return []diag.Note{{Subject: e.Base + "." + e.Method, Msg: "slot introduced here with " + e.Want.String()}}
}

// MissingOverrideError reports a method marked as override that matches no
// inherited slot.
type MissingOverrideError struct {
	Type   string
	Method string
}

func (e *MissingOverrideError) Error() string {
	return fmt.Sprintf("%s.%s is marked as override but no ancestor declares %q", e.Type, e.Method, e.Method)
}

func (e *MissingOverrideError) Code() diag.Code { return diag.VTableMissingOverride }
func (e *MissingOverrideError) Subject() string { return e.Type + "." + e.Method }

// DuplicateMethodError reports a method name declared twice on one record.
type DuplicateMethodError struct {
	Type   string
	Method string
}

func (e *DuplicateMethodError) Error() string {
	return fmt.Sprintf("%s declares method %q more than once", e.Type, e.Method)
}

func (e *DuplicateMethodError) Code() diag.Code { return diag.VTableDuplicateMethod }
func (e *DuplicateMethodError) Subject() string { return e.Type + "." + e.Method }
