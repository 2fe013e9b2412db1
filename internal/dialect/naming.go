package dialect

import (
	"fmt"
	"strings"
)

// Naming is the version of the symbol naming scheme for generated
// initializers and virtual tables. Both versions occur in deployed headers,
// so the version is always chosen explicitly.
type Naming uint8

const (
	// NamingV1: __init_X, __vtable_X (type), __vtable_X_instance.
	NamingV1 Naming = iota + 1
	// NamingV2: __init__X, __vtable_X_type (type), __vtable_X.
	NamingV2
)

func (n Naming) String() string {
	switch n {
	case NamingV1:
		return "v1"
	case NamingV2:
		return "v2"
	default:
		return "unknown"
	}
}

// ParseNaming maps "v1"/"1" and "v2"/"2" to a Naming. The empty string
// selects NamingV1.
func ParseNaming(s string) (Naming, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "v1", "1":
		return NamingV1, nil
	case "v2", "2":
		return NamingV2, nil
	default:
		return NamingV1, fmt.Errorf("unknown naming version %q (want v1 or v2)", s)
	}
}

// InitName is the routine that stores the vtable instance into a record.
func (n Naming) InitName(record string) string {
	if n == NamingV2 {
		return "__init__" + record
	}
	return "__init_" + record
}

// UserInitName is the routine that applies declared field defaults.
func (n Naming) UserInitName(record string) string {
	if n == NamingV2 {
		return "__user_init__" + record
	}
	return "__user_init_" + record
}

// VTableTypeName names the struct type describing the slots of record.
func (n Naming) VTableTypeName(record string) string {
	if n == NamingV2 {
		return "__vtable_" + record + "_type"
	}
	return "__vtable_" + record
}

// VTableInstanceName names the constant instance of the vtable of record.
func (n Naming) VTableInstanceName(record string) string {
	if n == NamingV2 {
		return "__vtable_" + record
	}
	return "__vtable_" + record + "_instance"
}

// MethodSymbol is the linkage name of a method implementation.
func (n Naming) MethodSymbol(record, method string) string {
	return record + "__" + method
}

// RecordTypeName is the C struct name of a record with a body. The plain
// record name is taken by the body entry point.
func (n Naming) RecordTypeName(record string) string {
	return record + "_type"
}

// ProgramInstanceName names the single instance of a program.
func (n Naming) ProgramInstanceName(program string) string {
	return program + "_instance"
}

// IsInternal reports whether name is reserved for generated declarations.
func IsInternal(name string) bool {
	return strings.HasPrefix(name, "__")
}
