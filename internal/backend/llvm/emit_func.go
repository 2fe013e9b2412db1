package llvm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"plcabi/internal/layout"
	"plcabi/internal/model"
)

// emitInitRoutines defines __init for every record with a virtual table and
// the user initializer for every record that declares one.
func (e *Emitter) emitInitRoutines() error {
	for _, l := range e.in.Layout.Ordered() {
		if t, ok := e.in.VTables.Table(l.Name); ok {
			e.emitVTableInit(l, t.InitName, t.InstanceName, t.VTablePath)
		}
		if l.Record.HasConstructor {
			if err := e.emitUserInit(l); err != nil {
				return err
			}
		}
	}
	return nil
}

// emitVTableInit stores the address of the record's own table instance in
// the root __vtable field. It touches nothing else.
func (e *Emitter) emitVTableInit(l *layout.RecordLayout, symbol, instance string, path []int) {
	fmt.Fprintf(&e.buf, "define void @%s(ptr %%self) {\n", symbol)
	e.buf.WriteString("entry:\n")
	fmt.Fprintf(&e.buf, "  %%vtable = getelementptr inbounds %%%s, ptr %%self, %s\n", l.Name, gepPath(path))
	fmt.Fprintf(&e.buf, "  store ptr @%s, ptr %%vtable, align %d\n", instance, e.target.PtrAlign)
	e.buf.WriteString("  ret void\n")
	e.buf.WriteString("}\n\n")
}

// emitUserInit stores the declared defaults of the record's own fields.
func (e *Emitter) emitUserInit(l *layout.RecordLayout) error {
	symbol := e.opts.Naming.UserInitName(l.Name)
	var body strings.Builder
	tmp := 0
	for i, m := range l.Members {
		if m.Kind != layout.MemberField || m.Default == nil {
			continue
		}
		ty, err := e.irType(m.Type)
		if err != nil {
			return &EmitError{Symbol: symbol, Err: err}
		}
		val, err := literalValue(m.Default, ty)
		if err != nil {
			return &EmitError{Symbol: symbol, Err: fmt.Errorf("default of %s: %w", m.Name, err)}
		}
		fmt.Fprintf(&body, "  %%f%d = getelementptr inbounds %%%s, ptr %%self, i32 0, i32 %d\n", tmp, l.Name, i)
		fmt.Fprintf(&body, "  store %s %s, ptr %%f%d, align %d\n", ty, val, tmp, m.Align)
		tmp++
	}
	fmt.Fprintf(&e.buf, "define void @%s(ptr %%self) {\n", symbol)
	e.buf.WriteString("entry:\n")
	e.buf.WriteString(body.String())
	e.buf.WriteString("  ret void\n")
	e.buf.WriteString("}\n\n")
	return nil
}

func gepPath(path []int) string {
	parts := make([]string, 0, len(path)+1)
	parts = append(parts, "i32 0")
	for _, idx := range path {
		parts = append(parts, "i32 "+strconv.Itoa(idx))
	}
	return strings.Join(parts, ", ")
}

// literalValue renders lit as a constant of the scalar type ty.
func literalValue(lit *model.Literal, ty string) (string, error) {
	switch ty {
	case "float", "double":
		var v float64
		switch lit.Kind {
		case model.LitInt:
			v = float64(lit.Int)
		case model.LitFloat:
			v = lit.Float
		default:
			return "", fmt.Errorf("cannot store a boolean in %s", ty)
		}
		if ty == "float" {
			v = float64(float32(v))
		}
		// Hexadecimal keeps the constant exact for both widths.
		return fmt.Sprintf("0x%016X", math.Float64bits(v)), nil
	}
	if !strings.HasPrefix(ty, "i") {
		return "", fmt.Errorf("no literal form for %s", ty)
	}
	switch lit.Kind {
	case model.LitInt:
		return strconv.FormatInt(lit.Int, 10), nil
	case model.LitBool:
		if lit.Bool {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("cannot store a real number in %s", ty)
	}
}

// emitDecls declares the callables of the unit, the body entry points of
// function blocks and programs, and the methods of its records; their
// bodies live in other modules.
func (e *Emitter) emitDecls() error {
	n := 0
	for _, c := range e.in.Unit.Callables {
		sig, err := e.signature(c.Signature, false)
		if err != nil {
			return &EmitError{Symbol: c.Name, Err: err}
		}
		e.declare(c.Name, sig)
		n++
	}
	for _, l := range e.in.Layout.Ordered() {
		if l.Record.HasBody() {
			e.declare(l.Name, funcSig{ret: "void", params: []string{"ptr"}})
			n++
		}
		for _, m := range l.Record.Methods {
			symbol := e.opts.Naming.MethodSymbol(l.Name, m.Name)
			sig, err := e.signature(m.Signature, true)
			if err != nil {
				return &EmitError{Symbol: symbol, Err: err}
			}
			e.declare(symbol, sig)
			n++
		}
	}
	if n > 0 {
		e.buf.WriteString("\n")
	}
	return nil
}

func (e *Emitter) declare(name string, sig funcSig) {
	fmt.Fprintf(&e.buf, "declare %s @%s(%s)\n", sig.ret, name, sig.paramList())
}
