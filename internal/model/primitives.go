package model

import "strings"

// PrimClass groups primitives by how they are represented natively.
type PrimClass uint8

const (
	PrimBool PrimClass = iota + 1
	PrimInt
	PrimFloat
	PrimTime
	PrimChar
)

// Primitive describes a built-in elementary type.
type Primitive struct {
	Name   string
	Class  PrimClass
	Bits   int
	Signed bool
}

var primitives = map[string]Primitive{
	"BOOL": {Name: "BOOL", Class: PrimBool, Bits: 8},

	"SINT":  {Name: "SINT", Class: PrimInt, Bits: 8, Signed: true},
	"USINT": {Name: "USINT", Class: PrimInt, Bits: 8},
	"BYTE":  {Name: "BYTE", Class: PrimInt, Bits: 8},
	"INT":   {Name: "INT", Class: PrimInt, Bits: 16, Signed: true},
	"UINT":  {Name: "UINT", Class: PrimInt, Bits: 16},
	"WORD":  {Name: "WORD", Class: PrimInt, Bits: 16},
	"DINT":  {Name: "DINT", Class: PrimInt, Bits: 32, Signed: true},
	"UDINT": {Name: "UDINT", Class: PrimInt, Bits: 32},
	"DWORD": {Name: "DWORD", Class: PrimInt, Bits: 32},
	"LINT":  {Name: "LINT", Class: PrimInt, Bits: 64, Signed: true},
	"ULINT": {Name: "ULINT", Class: PrimInt, Bits: 64},
	"LWORD": {Name: "LWORD", Class: PrimInt, Bits: 64},

	"REAL":  {Name: "REAL", Class: PrimFloat, Bits: 32, Signed: true},
	"LREAL": {Name: "LREAL", Class: PrimFloat, Bits: 64, Signed: true},

	"TIME":  {Name: "TIME", Class: PrimTime, Bits: 64, Signed: true},
	"LTIME": {Name: "LTIME", Class: PrimTime, Bits: 64, Signed: true},
	"DATE":  {Name: "DATE", Class: PrimTime, Bits: 64, Signed: true},
	"LDATE": {Name: "LDATE", Class: PrimTime, Bits: 64, Signed: true},
	"TOD":   {Name: "TOD", Class: PrimTime, Bits: 64, Signed: true},
	"LTOD":  {Name: "LTOD", Class: PrimTime, Bits: 64, Signed: true},
	"DT":    {Name: "DT", Class: PrimTime, Bits: 64, Signed: true},
	"LDT":   {Name: "LDT", Class: PrimTime, Bits: 64, Signed: true},

	"CHAR":  {Name: "CHAR", Class: PrimChar, Bits: 8},
	"WCHAR": {Name: "WCHAR", Class: PrimChar, Bits: 16},
}

// LookupPrimitive finds a built-in type by name, ignoring case.
func LookupPrimitive(name string) (Primitive, bool) {
	p, ok := primitives[strings.ToUpper(name)]
	return p, ok
}

// Bytes returns the storage size of the primitive.
func (p Primitive) Bytes() int {
	return p.Bits / 8
}
