package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Layout resolution
	LayoutInfo         Code = 1000
	LayoutCyclicType   Code = 1001
	LayoutUnknownType  Code = 1002
	LayoutInvalidArray Code = 1003
	LayoutBadParent    Code = 1004
	LayoutDuplicate    Code = 1005
	LayoutOverflow     Code = 1006
	LayoutIncomplete   Code = 1007

	// Virtual tables
	VTableInfo              Code = 2000
	VTableSignatureMismatch Code = 2001
	VTableMissingOverride   Code = 2002
	VTableDuplicateMethod   Code = 2003

	// Enumerations
	EnumInfo            Code = 3000
	EnumDuplicateMember Code = 3001
	EnumValueRange      Code = 3002
	EnumEmpty           Code = 3003

	// Header projection
	HeaderInfo         Code = 4000
	HeaderPathEncoding Code = 4001
	HeaderWrite        Code = 4002

	// Native bridge
	NativeInfo          Code = 5000
	NativeBridgeFailure Code = 5001
	NativeEmit          Code = 5002

	// Project / IO
	ProjInfo        Code = 6000
	ProjConfig      Code = 6001
	ProjModelLoad   Code = 6002
	ProjCacheFailed Code = 6003
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	LayoutInfo:         "Layout information",
	LayoutCyclicType:   "Record contains itself by value",
	LayoutUnknownType:  "Reference to an unknown type",
	LayoutInvalidArray: "Array dimension must be positive",
	LayoutBadParent:    "Parent is not a record type",
	LayoutDuplicate:    "Duplicate type or field name",
	LayoutOverflow:     "Type size overflows",
	LayoutIncomplete:   "Type needs a record before its definition",

	VTableInfo:              "Virtual table information",
	VTableSignatureMismatch: "Override does not match the inherited signature",
	VTableMissingOverride:   "Override has no inherited method",
	VTableDuplicateMethod:   "Method is declared more than once",

	EnumInfo:            "Enumeration information",
	EnumDuplicateMember: "Duplicate enumeration member",
	EnumValueRange:      "Enumeration value exceeds backing width",
	EnumEmpty:           "Enumeration has no members",

	HeaderInfo:         "Header information",
	HeaderPathEncoding: "Header path cannot be turned into an include guard",
	HeaderWrite:        "Header artifact could not be written",

	NativeInfo:          "Native code information",
	NativeBridgeFailure: "Native bridging service failed",
	NativeEmit:          "Native module could not be emitted",

	ProjInfo:        "Project information",
	ProjConfig:      "Invalid project configuration",
	ProjModelLoad:   "Type model could not be loaded",
	ProjCacheFailed: "Artifact cache failure",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LAY%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("VTB%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("ENM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("HDR%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("NAT%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
