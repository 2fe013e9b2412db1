package llvm

import (
	"fmt"
	"strconv"

	"plcabi/internal/model"
)

// irType returns the in-memory LLVM type of t. Aliases are resolved, enums
// become their backing integer and records their named struct type.
func (e *Emitter) irType(t model.TypeRef) (string, error) {
	switch t.Kind {
	case model.RefPrimitive:
		p, ok := t.Primitive()
		if !ok {
			return "", fmt.Errorf("unknown primitive %s", t.Name)
		}
		return primitiveType(p), nil
	case model.RefString:
		unit := "i8"
		if t.Wide {
			unit = "i16"
		}
		return fmt.Sprintf("[%d x %s]", t.Len+1, unit), nil
	case model.RefPointer:
		return "ptr", nil
	case model.RefArray:
		if t.Elem == nil {
			return "", fmt.Errorf("array without element type")
		}
		elem, err := e.irType(*t.Elem)
		if err != nil {
			return "", err
		}
		for i := len(t.Dims) - 1; i >= 0; i-- {
			elem = fmt.Sprintf("[%d x %s]", t.Dims[i], elem)
		}
		return elem, nil
	case model.RefNamed:
		d, ok := e.index.Lookup(t.Name)
		if !ok {
			return "", fmt.Errorf("unknown type %s", t.Name)
		}
		switch d.Kind {
		case model.DeclRecord:
			return "%" + t.Name, nil
		case model.DeclEnum:
			return "i" + strconv.Itoa(d.Enum.BackingWidth()), nil
		case model.DeclAlias:
			resolved, err := e.index.Resolve(t)
			if err != nil {
				return "", err
			}
			return e.irType(resolved)
		}
	}
	return "", fmt.Errorf("unsupported type %s", t)
}

func primitiveType(p model.Primitive) string {
	switch p.Class {
	case model.PrimFloat:
		if p.Bits == 32 {
			return "float"
		}
		return "double"
	default:
		return "i" + strconv.Itoa(p.Bits)
	}
}

// paramType is the type a parameter is passed as: pointers for REF
// parameters, fixed arrays and strings, the value type otherwise.
func (e *Emitter) paramType(p model.Param) (string, error) {
	if p.ByRef {
		return "ptr", nil
	}
	return e.valueType(p.Type)
}

// valueType is irType with fixed arrays and strings decayed to pointers.
func (e *Emitter) valueType(t model.TypeRef) (string, error) {
	resolved, err := e.index.Resolve(t)
	if err != nil {
		return "", err
	}
	if resolved.Kind == model.RefArray || resolved.Kind == model.RefString {
		return "ptr", nil
	}
	return e.irType(t)
}

func (e *Emitter) signature(sig model.Signature, self bool) (funcSig, error) {
	out := funcSig{ret: "void", variadic: sig.Variadic}
	if self {
		out.params = append(out.params, "ptr")
	}
	for _, p := range sig.Params {
		ty, err := e.paramType(p)
		if err != nil {
			return funcSig{}, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		out.params = append(out.params, ty)
	}
	if sig.Return != nil {
		ty, err := e.valueType(*sig.Return)
		if err != nil {
			return funcSig{}, fmt.Errorf("return type: %w", err)
		}
		out.ret = ty
	}
	return out, nil
}
