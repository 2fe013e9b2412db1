package header

import (
	"strconv"
	"strings"

	"plcabi/internal/model"
)

// cPrimitive maps a built-in type to its <stdint.h>/<math.h>/<time.h> name.
func cPrimitive(p model.Primitive) string {
	switch p.Class {
	case model.PrimBool:
		return "bool"
	case model.PrimFloat:
		if p.Bits == 32 {
			return "float_t"
		}
		return "double_t"
	case model.PrimTime:
		return "time_t"
	case model.PrimChar:
		if p.Bits == 8 {
			return "char"
		}
		return "uint16_t"
	default:
		prefix := "uint"
		if p.Signed {
			prefix = "int"
		}
		return prefix + strconv.Itoa(p.Bits) + "_t"
	}
}

// cDecl renders a C declaration of name with type t, e.g. "int16_t x",
// "Node* next", "char name[81]", "int16_t (*rows)[4]". An empty name renders
// an abstract declarator suitable for return types.
func cDecl(t model.TypeRef, name string) string {
	return cDeclAs(t, name, nil)
}

// cDeclAs is cDecl with named types spelled through typeName.
func cDeclAs(t model.TypeRef, name string, typeName func(string) string) string {
	base, decl := split(t, name, typeName)
	stars := 0
	for stars < len(decl) && decl[stars] == '*' {
		stars++
	}
	base += decl[:stars]
	decl = decl[stars:]
	if decl == "" {
		return base
	}
	return base + " " + decl
}

func split(t model.TypeRef, inner string, typeName func(string) string) (string, string) {
	switch t.Kind {
	case model.RefPrimitive:
		if p, ok := t.Primitive(); ok {
			return cPrimitive(p), inner
		}
		return t.Name, inner
	case model.RefNamed:
		if typeName != nil {
			return typeName(t.Name), inner
		}
		return t.Name, inner
	case model.RefString:
		unit := "char"
		if t.Wide {
			unit = "uint16_t"
		}
		return unit, wrapPointer(inner) + "[" + strconv.FormatInt(t.Len+1, 10) + "]"
	case model.RefArray:
		if t.Elem == nil {
			return "void", inner
		}
		var dims strings.Builder
		for _, d := range t.Dims {
			dims.WriteString("[")
			dims.WriteString(strconv.FormatInt(d, 10))
			dims.WriteString("]")
		}
		return split(*t.Elem, wrapPointer(inner)+dims.String(), typeName)
	case model.RefPointer:
		if t.Elem == nil {
			return "void", "*" + inner
		}
		return split(*t.Elem, "*"+inner, typeName)
	default:
		return "void", inner
	}
}

// wrapPointer parenthesizes a pointer declarator before an array suffix is
// appended to it.
func wrapPointer(inner string) string {
	if strings.HasPrefix(inner, "*") {
		return "(" + inner + ")"
	}
	return inner
}

// decay returns the type a fixed array or string parameter is passed as:
// a pointer to its first element.
func decay(t model.TypeRef) model.TypeRef {
	switch t.Kind {
	case model.RefArray:
		arr, ok := t.Array()
		if !ok {
			return t
		}
		if len(arr.Dims) == 1 {
			return model.PointerTo(arr.Elem)
		}
		return model.PointerTo(model.ArrayOf(arr.Elem, arr.Dims[1:]...))
	case model.RefString:
		if t.Wide {
			return model.PointerTo(model.Prim("WCHAR"))
		}
		return model.PointerTo(model.Prim("CHAR"))
	}
	return t
}

// paramDecl renders one prototype parameter.
func paramDecl(p model.Param, typeName func(string) string) string {
	t := p.Type
	if p.ByRef {
		t = model.PointerTo(t)
	} else {
		t = decay(t)
	}
	return cDeclAs(t, p.Name, typeName)
}

// returnDecl renders the return type of a prototype.
func returnDecl(ret *model.TypeRef, typeName func(string) string) string {
	if ret == nil {
		return "void"
	}
	return cDeclAs(decay(*ret), "", typeName)
}
