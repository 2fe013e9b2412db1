// Package model holds the validated type/program model of one compilation
// unit. It is produced upstream and consumed read-only by the layout,
// vtable, enum, header and native stages.
package model

import "fmt"

// AliasType gives a new name to an existing type. No additional layout.
type AliasType struct {
	Name string  `msgpack:"name"`
	Type TypeRef `msgpack:"type"`
}

// EnumMember is one member of an enumeration; Value is nil when implicit.
type EnumMember struct {
	Name  string `msgpack:"name"`
	Value *int64 `msgpack:"value,omitempty"`
}

// DefaultEnumWidth is the backing width used when an enum does not declare one.
const DefaultEnumWidth = 32

type EnumType struct {
	Name    string       `msgpack:"name"`
	Width   int          `msgpack:"width,omitempty"` // backing integer width in bits
	Members []EnumMember `msgpack:"members"`
}

// BackingWidth returns Width, falling back to DefaultEnumWidth.
func (e *EnumType) BackingWidth() int {
	if e == nil || e.Width == 0 {
		return DefaultEnumWidth
	}
	return e.Width
}

// LitKind tells which member of Literal is set.
type LitKind uint8

const (
	LitInt LitKind = iota + 1
	LitFloat
	LitBool
)

// Literal is a constant default value of a record field.
type Literal struct {
	Kind  LitKind `msgpack:"kind"`
	Int   int64   `msgpack:"int,omitempty"`
	Float float64 `msgpack:"float,omitempty"`
	Bool  bool    `msgpack:"bool,omitempty"`
}

func IntLit(v int64) *Literal     { return &Literal{Kind: LitInt, Int: v} }
func FloatLit(v float64) *Literal { return &Literal{Kind: LitFloat, Float: v} }
func BoolLit(v bool) *Literal     { return &Literal{Kind: LitBool, Bool: v} }

type Field struct {
	Name    string   `msgpack:"name"`
	Type    TypeRef  `msgpack:"type"`
	Default *Literal `msgpack:"default,omitempty"`
}

type Param struct {
	Name  string  `msgpack:"name"`
	Type  TypeRef `msgpack:"type"`
	ByRef bool    `msgpack:"by_ref,omitempty"`
}

// Signature is the callable shape shared by free callables and methods.
type Signature struct {
	Params   []Param  `msgpack:"params,omitempty"`
	Return   *TypeRef `msgpack:"return,omitempty"` // nil means void
	Variadic bool     `msgpack:"variadic,omitempty"`
}

// SameShape reports whether two signatures agree on arity, parameter types,
// passing mode, return type and variadic flag. Parameter names are ignored.
func (s Signature) SameShape(o Signature) bool {
	if len(s.Params) != len(o.Params) || s.Variadic != o.Variadic {
		return false
	}
	for i := range s.Params {
		if s.Params[i].ByRef != o.Params[i].ByRef || !s.Params[i].Type.Equal(o.Params[i].Type) {
			return false
		}
	}
	switch {
	case s.Return == nil && o.Return == nil:
		return true
	case s.Return == nil || o.Return == nil:
		return false
	}
	return s.Return.Equal(*o.Return)
}

func (s Signature) String() string {
	out := "("
	for i, p := range s.Params {
		if i > 0 {
			out += ", "
		}
		if p.ByRef {
			out += "REF "
		}
		out += p.Type.String()
	}
	if s.Variadic {
		if len(s.Params) > 0 {
			out += ", "
		}
		out += "..."
	}
	out += ")"
	if s.Return != nil {
		out += " : " + s.Return.String()
	}
	return out
}

// Method is a dispatched method declared on a record.
type Method struct {
	Name       string    `msgpack:"name"`
	Signature  Signature `msgpack:"sig"`
	IsOverride bool      `msgpack:"override,omitempty"`
}

// RecordKind tells what kind of declaration a record comes from.
type RecordKind uint8

const (
	// KindStruct is a plain structure or class.
	KindStruct RecordKind = iota
	// KindFunctionBlock is callable through a body entry point and always
	// dispatches through a virtual table.
	KindFunctionBlock
	// KindProgram has a body entry point and one external instance.
	KindProgram
)

func (k RecordKind) String() string {
	switch k {
	case KindFunctionBlock:
		return "function_block"
	case KindProgram:
		return "program"
	default:
		return "struct"
	}
}

// ParseRecordKind maps the text form of a kind back to it. The empty string
// selects KindStruct.
func ParseRecordKind(s string) (RecordKind, error) {
	switch s {
	case "", "struct", "class":
		return KindStruct, nil
	case "function_block", "fb":
		return KindFunctionBlock, nil
	case "program":
		return KindProgram, nil
	default:
		return KindStruct, fmt.Errorf("unknown record kind %q", s)
	}
}

// RecordType is a composite type with an optional single parent.
type RecordType struct {
	Name           string     `msgpack:"name"`
	Kind           RecordKind `msgpack:"kind,omitempty"`
	Parent         string     `msgpack:"parent,omitempty"`
	Fields         []Field  `msgpack:"fields,omitempty"`
	IsPolymorphic  bool     `msgpack:"polymorphic,omitempty"`
	Methods        []Method `msgpack:"methods,omitempty"`
	HasConstructor bool     `msgpack:"ctor,omitempty"`
}

// HasBody reports whether the record is called through a body entry point
// named like the record itself.
func (r *RecordType) HasBody() bool {
	return r.Kind == KindFunctionBlock || r.Kind == KindProgram
}

// GlobalVariable is declared in this unit and defined elsewhere.
type GlobalVariable struct {
	Name string  `msgpack:"name"`
	Type TypeRef `msgpack:"type"`
}

type CallableSignature struct {
	Name      string `msgpack:"name"`
	Signature
}

// Unit is one compilation unit; every list keeps declaration order.
type Unit struct {
	Name      string               `msgpack:"name"`
	File      string               `msgpack:"file,omitempty"`
	Aliases   []*AliasType         `msgpack:"aliases,omitempty"`
	Enums     []*EnumType          `msgpack:"enums,omitempty"`
	Records   []*RecordType        `msgpack:"records,omitempty"`
	Globals   []*GlobalVariable    `msgpack:"globals,omitempty"`
	Callables []*CallableSignature `msgpack:"callables,omitempty"`
}

// DeclKind classifies a named user type.
type DeclKind uint8

const (
	DeclNone DeclKind = iota
	DeclAlias
	DeclEnum
	DeclRecord
)

func (k DeclKind) String() string {
	switch k {
	case DeclAlias:
		return "alias"
	case DeclEnum:
		return "enum"
	case DeclRecord:
		return "record"
	default:
		return "none"
	}
}

// Decl is a lookup result; exactly one pointer matching Kind is set.
type Decl struct {
	Kind   DeclKind
	Index  int
	Alias  *AliasType
	Enum   *EnumType
	Record *RecordType
}

// Index maps type names to their declarations.
type Index struct {
	byName map[string]Decl
}

// BuildIndex indexes aliases, enums and records of u. Later duplicates are
// ignored here; Validate reports them.
func BuildIndex(u *Unit) *Index {
	idx := &Index{byName: make(map[string]Decl, len(u.Aliases)+len(u.Enums)+len(u.Records))}
	put := func(name string, d Decl) {
		if _, dup := idx.byName[name]; !dup {
			idx.byName[name] = d
		}
	}
	for i, a := range u.Aliases {
		put(a.Name, Decl{Kind: DeclAlias, Index: i, Alias: a})
	}
	for i, e := range u.Enums {
		put(e.Name, Decl{Kind: DeclEnum, Index: i, Enum: e})
	}
	for i, r := range u.Records {
		put(r.Name, Decl{Kind: DeclRecord, Index: i, Record: r})
	}
	return idx
}

func (idx *Index) Lookup(name string) (Decl, bool) {
	if idx == nil {
		return Decl{}, false
	}
	d, ok := idx.byName[name]
	return d, ok
}

// Resolve follows aliases until t is no longer a named alias.
func (idx *Index) Resolve(t TypeRef) (TypeRef, error) {
	seen := make(map[string]struct{}, 4)
	for t.Kind == RefNamed {
		d, ok := idx.Lookup(t.Name)
		if !ok {
			return t, fmt.Errorf("unknown type %q", t.Name)
		}
		if d.Kind != DeclAlias {
			return t, nil
		}
		if _, loop := seen[t.Name]; loop {
			return t, fmt.Errorf("alias %q refers to itself", t.Name)
		}
		seen[t.Name] = struct{}{}
		t = d.Alias.Type
	}
	return t, nil
}
