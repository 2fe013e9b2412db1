package model

import (
	"fmt"
	"strconv"
	"strings"
)

// RefKind tells which form a TypeRef takes.
type RefKind uint8

const (
	RefPrimitive RefKind = iota + 1
	RefNamed
	RefPointer
	RefArray
	RefString
)

func (k RefKind) String() string {
	switch k {
	case RefPrimitive:
		return "primitive"
	case RefNamed:
		return "named"
	case RefPointer:
		return "pointer"
	case RefArray:
		return "array"
	case RefString:
		return "string"
	default:
		return "invalid"
	}
}

// DefaultStringLength is the capacity of an unsized STRING / WSTRING.
const DefaultStringLength = 80

// TypeRef references a primitive, a named user type, a pointer, a fixed array
// or a sized string.
type TypeRef struct {
	Kind RefKind  `msgpack:"k"`
	Name string   `msgpack:"n,omitempty"` // primitive or user type name
	Elem *TypeRef `msgpack:"e,omitempty"` // pointee / array element
	Dims []int64  `msgpack:"d,omitempty"` // array dimensions, outermost first
	Len  int64    `msgpack:"l,omitempty"` // string capacity in characters
	Wide bool     `msgpack:"w,omitempty"` // WSTRING
}

// ArrayType is the array view of a TypeRef.
type ArrayType struct {
	Elem TypeRef
	Dims []int64
}

// MaxElements is the documented element cap: the outer dimension.
func (a ArrayType) MaxElements() int64 {
	if len(a.Dims) == 0 {
		return 0
	}
	return a.Dims[0]
}

// Nested expands a multi-dimensional array into single-dimension arrays,
// outermost first. The last entry has the scalar element type.
func (a ArrayType) Nested() []ArrayType {
	out := make([]ArrayType, 0, len(a.Dims))
	for i := range a.Dims {
		elem := a.Elem
		if i+1 < len(a.Dims) {
			elem = ArrayOf(a.Elem, a.Dims[i+1:]...)
		}
		out = append(out, ArrayType{Elem: elem, Dims: []int64{a.Dims[i]}})
	}
	return out
}

func Prim(name string) TypeRef {
	if p, ok := LookupPrimitive(name); ok {
		return TypeRef{Kind: RefPrimitive, Name: p.Name}
	}
	return TypeRef{Kind: RefPrimitive, Name: strings.ToUpper(name)}
}

func Named(name string) TypeRef {
	return TypeRef{Kind: RefNamed, Name: name}
}

func PointerTo(elem TypeRef) TypeRef {
	e := elem
	return TypeRef{Kind: RefPointer, Elem: &e}
}

func ArrayOf(elem TypeRef, dims ...int64) TypeRef {
	e := elem
	return TypeRef{Kind: RefArray, Elem: &e, Dims: append([]int64(nil), dims...)}
}

func String(length int64) TypeRef {
	return TypeRef{Kind: RefString, Len: length}
}

func WString(length int64) TypeRef {
	return TypeRef{Kind: RefString, Len: length, Wide: true}
}

// Array returns the array view when t is an array.
func (t TypeRef) Array() (ArrayType, bool) {
	if t.Kind != RefArray || t.Elem == nil {
		return ArrayType{}, false
	}
	return ArrayType{Elem: *t.Elem, Dims: t.Dims}, true
}

// Primitive returns the primitive description when t names one.
func (t TypeRef) Primitive() (Primitive, bool) {
	if t.Kind != RefPrimitive {
		return Primitive{}, false
	}
	return LookupPrimitive(t.Name)
}

// Equal compares two references structurally.
func (t TypeRef) Equal(o TypeRef) bool {
	if t.Kind != o.Kind || t.Name != o.Name || t.Len != o.Len || t.Wide != o.Wide {
		return false
	}
	if len(t.Dims) != len(o.Dims) {
		return false
	}
	for i := range t.Dims {
		if t.Dims[i] != o.Dims[i] {
			return false
		}
	}
	switch {
	case t.Elem == nil && o.Elem == nil:
		return true
	case t.Elem == nil || o.Elem == nil:
		return false
	}
	return t.Elem.Equal(*o.Elem)
}

func (t TypeRef) String() string {
	switch t.Kind {
	case RefPrimitive, RefNamed:
		return t.Name
	case RefPointer:
		if t.Elem == nil {
			return "POINTER TO ?"
		}
		return "POINTER TO " + t.Elem.String()
	case RefArray:
		dims := make([]string, len(t.Dims))
		for i, d := range t.Dims {
			dims[i] = strconv.FormatInt(d, 10)
		}
		elem := "?"
		if t.Elem != nil {
			elem = t.Elem.String()
		}
		return fmt.Sprintf("ARRAY[%s] OF %s", strings.Join(dims, ","), elem)
	case RefString:
		kw := "STRING"
		if t.Wide {
			kw = "WSTRING"
		}
		return fmt.Sprintf("%s[%d]", kw, t.Len)
	default:
		return "<invalid>"
	}
}

// ParseTypeRef parses the textual form used by fixtures:
//
//	INT | MyType | POINTER TO T | REF_TO T | ARRAY[3,0..4] OF T | STRING[80] | WSTRING
func ParseTypeRef(src string) (TypeRef, error) {
	p := &refParser{src: src}
	ref, err := p.parse()
	if err != nil {
		return TypeRef{}, fmt.Errorf("type %q: %w", src, err)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return TypeRef{}, fmt.Errorf("type %q: unexpected %q", src, p.src[p.pos:])
	}
	return ref, nil
}

type refParser struct {
	src string
	pos int
}

func (p *refParser) parse() (TypeRef, error) {
	word := p.ident()
	if word == "" {
		return TypeRef{}, fmt.Errorf("expected type name at offset %d", p.pos)
	}
	switch strings.ToUpper(word) {
	case "POINTER", "REF":
		if kw := p.ident(); !strings.EqualFold(kw, "TO") {
			return TypeRef{}, fmt.Errorf("expected TO after %s", word)
		}
		elem, err := p.parse()
		if err != nil {
			return TypeRef{}, err
		}
		return PointerTo(elem), nil
	case "REF_TO":
		elem, err := p.parse()
		if err != nil {
			return TypeRef{}, err
		}
		return PointerTo(elem), nil
	case "ARRAY":
		return p.array()
	case "STRING", "WSTRING":
		wide := strings.EqualFold(word, "WSTRING")
		length := int64(DefaultStringLength)
		if p.peek() == '[' {
			p.pos++
			n, err := p.number()
			if err != nil {
				return TypeRef{}, err
			}
			if err := p.expect(']'); err != nil {
				return TypeRef{}, err
			}
			length = n
		}
		if wide {
			return WString(length), nil
		}
		return String(length), nil
	}
	if _, ok := LookupPrimitive(word); ok {
		return Prim(word), nil
	}
	return Named(word), nil
}

func (p *refParser) array() (TypeRef, error) {
	if err := p.expect('['); err != nil {
		return TypeRef{}, err
	}
	var dims []int64
	for {
		lo, err := p.number()
		if err != nil {
			return TypeRef{}, err
		}
		size := lo
		p.skipSpace()
		if strings.HasPrefix(p.src[p.pos:], "..") {
			p.pos += 2
			hi, err := p.number()
			if err != nil {
				return TypeRef{}, err
			}
			size = hi - lo + 1
		}
		dims = append(dims, size)
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}
	if err := p.expect(']'); err != nil {
		return TypeRef{}, err
	}
	if kw := p.ident(); !strings.EqualFold(kw, "OF") {
		return TypeRef{}, fmt.Errorf("expected OF after array bounds")
	}
	elem, err := p.parse()
	if err != nil {
		return TypeRef{}, err
	}
	return ArrayOf(elem, dims...), nil
}

func (p *refParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *refParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *refParser) expect(b byte) error {
	if p.peek() != b {
		return fmt.Errorf("expected %q at offset %d", b, p.pos)
	}
	p.pos++
	return nil
}

func (p *refParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || p.pos > start && c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *refParser) number() (int64, error) {
	p.skipSpace()
	start := p.pos
	if p.pos < len(p.src) && p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.ParseInt(p.src[start:p.pos], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expected integer at offset %d", start)
	}
	return n, nil
}
