// Package header renders the resolved layout of a unit as a C header. The
// text depends only on its inputs: identical inputs produce identical bytes.
package header

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"plcabi/internal/dialect"
	"plcabi/internal/enums"
	"plcabi/internal/layout"
	"plcabi/internal/model"
	"plcabi/internal/vtable"
)

const indent = "    "

// Input carries the resolved side-tables of one unit.
type Input struct {
	Unit    *model.Unit
	Layout  *layout.Resolution
	VTables *vtable.Set
	Enums   *enums.Table
}

type Options struct {
	Dialect dialect.Dialect
	Naming  dialect.Naming
	// Name is the artifact name relative to the output directory, e.g.
	// "shapes.h". The include guard is derived from it.
	Name string
}

// Artifact is a rendered header.
type Artifact struct {
	Name     string
	Guard    string
	Text     []byte
	Warnings []error
}

// Emit renders the header of in. Sections appear in a fixed order: forward
// declarations, aliases, enums, records (each polymorphic record preceded by
// its vtable struct), externs, prototypes. Empty sections are omitted.
// Function blocks and programs also get a body prototype; programs get an
// extern instance.
func Emit(in Input, opts Options) (*Artifact, error) {
	if in.Unit == nil || in.Layout == nil || in.Enums == nil {
		return nil, errors.New("header: incomplete input")
	}
	name := opts.Name
	if name == "" {
		name = in.Unit.Name + ".h"
	}
	art := &Artifact{Name: name}
	guard, err := Guard(name)
	if err != nil {
		art.Warnings = append(art.Warnings, err)
	}
	art.Guard = guard

	e := &emitter{in: in, opts: opts}
	e.prologue(guard)
	e.forwardDecls()
	e.aliases()
	e.enums()
	e.records()
	e.externs()
	e.prototypes()
	e.epilogue(guard)
	art.Text = []byte(e.b.String())
	return art, nil
}

type emitter struct {
	in   Input
	opts Options
	b    strings.Builder
}

// typeName spells a named type. Records with a body are declared as
// <Name>_type so the body entry point can take the plain name.
func (e *emitter) typeName(name string) string {
	if d, ok := e.in.Layout.Index().Lookup(name); ok && d.Kind == model.DeclRecord && d.Record.HasBody() {
		return e.opts.Naming.RecordTypeName(name)
	}
	return name
}

func (e *emitter) decl(t model.TypeRef, name string) string {
	return cDeclAs(t, name, e.typeName)
}

func (e *emitter) line(parts ...string) {
	for _, p := range parts {
		e.b.WriteString(p)
	}
	e.b.WriteByte('\n')
}

func (e *emitter) prologue(guard string) {
	writeBanner(&e.b, bannerLines)
	e.line()
	e.line("#ifndef ", guard)
	e.line("#define ", guard)
	e.line()
	for _, inc := range []string{"stdint.h", "math.h", "stdbool.h", "time.h"} {
		e.line("#include <", inc, ">")
	}
	e.line()
	e.line("#ifdef __cplusplus")
	e.line(`extern "C" {`)
	e.line("#endif")
	e.line()
}

func (e *emitter) epilogue(guard string) {
	e.line("#ifdef __cplusplus")
	e.line("}")
	e.line("#endif /* __cplusplus */")
	e.line()
	e.line("#endif /* !", guard, " */")
}

func (e *emitter) forwardDecls() {
	n := 0
	for _, name := range e.in.Layout.ForwardDecls() {
		if dialect.IsInternal(name) {
			continue
		}
		tn := e.typeName(name)
		e.line("typedef struct ", tn, " ", tn, ";")
		n++
	}
	if n > 0 {
		e.line()
	}
}

func (e *emitter) aliases() {
	n := 0
	for _, a := range e.in.Unit.Aliases {
		if dialect.IsInternal(a.Name) {
			continue
		}
		e.line("typedef ", e.decl(a.Type, a.Name), ";")
		n++
	}
	if n > 0 {
		e.line()
	}
}

func (e *emitter) enums() {
	for _, en := range e.in.Enums.Enums {
		if dialect.IsInternal(en.Name) {
			continue
		}
		switch e.opts.Dialect {
		case dialect.Compatible:
			e.compatibleEnum(en)
		default:
			e.strictEnum(en)
		}
		e.line()
	}
}

// strictEnum writes a native enum. A value literal is only written where it
// differs from the implicit C numbering, and always on the first member.
// A C enum is int sized, so any other backing width keeps the enumerators
// but types the name with the exact integer.
func (e *emitter) strictEnum(en *enums.Enum) {
	if en.Width != 32 {
		e.line("enum e", en.Name, " {")
	} else {
		e.line("typedef enum e", en.Name, " {")
	}
	for i, m := range en.Members {
		text := indent + m.Name
		if i == 0 || m.Value != en.Members[i-1].Value+1 {
			text += " = " + strconv.FormatInt(m.Value, 10)
		}
		if i < len(en.Members)-1 {
			text += ","
		}
		e.line(text)
	}
	if en.Width != 32 {
		e.line("};")
		e.line("typedef int", strconv.Itoa(en.Width), "_t ", en.Name, ";")
		return
	}
	e.line("} ", en.Name, ";")
}

func (e *emitter) compatibleEnum(en *enums.Enum) {
	e.line("typedef int", strconv.Itoa(en.Width), "_t ", en.Name, ";")
	for _, m := range en.Members {
		e.line("#define ", en.Name, "_", m.Name, " ((", en.Name, ")", strconv.FormatInt(m.Value, 10), ")")
	}
}

func (e *emitter) records() {
	for _, l := range e.in.Layout.Ordered() {
		if dialect.IsInternal(l.Name) {
			continue
		}
		if t, ok := e.in.VTables.Table(l.Name); ok && len(t.Slots) > 0 {
			e.line("typedef struct ", t.TypeName, " {")
			for _, s := range t.Slots {
				e.line(indent, "void* ", s.Method, ";")
			}
			e.line("} ", t.TypeName, ";")
			e.line()
		}

		tn := e.typeName(l.Name)
		if l.ForwardDecl {
			e.line("struct ", tn, " {")
		} else {
			e.line("typedef struct ", tn, " {")
		}
		for _, m := range l.Members {
			switch m.Kind {
			case layout.MemberVTable:
				e.line(indent, "void* ", m.Name, ";")
			default:
				e.line(indent, e.decl(m.Type, m.Name), ";")
			}
		}
		if l.ForwardDecl {
			e.line("};")
		} else {
			e.line("} ", tn, ";")
		}
		e.line()
	}
}

func (e *emitter) externs() {
	n := 0
	for _, g := range e.in.Unit.Globals {
		if dialect.IsInternal(g.Name) {
			continue
		}
		e.line("extern ", e.decl(g.Type, g.Name), ";")
		n++
	}
	for _, l := range e.in.Layout.Ordered() {
		if l.Record.Kind != model.KindProgram || dialect.IsInternal(l.Name) {
			continue
		}
		e.line("extern ", e.typeName(l.Name), " ", e.opts.Naming.ProgramInstanceName(l.Name), ";")
		n++
	}
	for _, t := range e.tables() {
		if len(t.Slots) == 0 {
			continue
		}
		e.line("extern ", t.TypeName, " ", t.InstanceName, ";")
		n++
	}
	if n > 0 {
		e.line()
	}
}

func (e *emitter) tables() []*vtable.Table {
	if e.in.VTables == nil {
		return nil
	}
	out := make([]*vtable.Table, 0, len(e.in.VTables.Order))
	for _, t := range e.in.VTables.Ordered() {
		if !dialect.IsInternal(t.Record) {
			out = append(out, t)
		}
	}
	return out
}

func (e *emitter) prototypes() {
	n := 0
	for _, c := range e.in.Unit.Callables {
		e.prototype(c.Name, c.Signature)
		n++
	}
	naming := e.opts.Naming
	for _, l := range e.in.Layout.Ordered() {
		if dialect.IsInternal(l.Name) {
			continue
		}
		self := model.Param{Name: "self", Type: model.Named(l.Name), ByRef: true}
		selfOnly := model.Signature{Params: []model.Param{self}}
		if t, ok := e.in.VTables.Table(l.Name); ok {
			e.prototype(t.InitName, selfOnly)
			n++
		}
		if l.Record.HasConstructor {
			e.prototype(naming.UserInitName(l.Name), selfOnly)
			n++
		}
		if l.Record.HasBody() {
			e.prototype(l.Name, selfOnly)
			n++
		}
		for _, m := range l.Record.Methods {
			sig := m.Signature
			sig.Params = append([]model.Param{self}, sig.Params...)
			e.prototype(naming.MethodSymbol(l.Name, m.Name), sig)
			n++
		}
	}
	if n > 0 {
		e.line()
	}
}

// prototype writes one documentation line per fixed-array parameter, then
// the declaration.
func (e *emitter) prototype(symbol string, sig model.Signature) {
	idx := e.in.Layout.Index()
	for _, p := range sig.Params {
		resolved, err := idx.Resolve(p.Type)
		if err != nil {
			continue
		}
		if arr, ok := resolved.Array(); ok {
			e.line(fmt.Sprintf("// %s: at most %d elements", p.Name, arr.MaxElements()))
		}
	}

	params := make([]string, 0, len(sig.Params)+1)
	for _, p := range sig.Params {
		params = append(params, paramDecl(p, e.typeName))
	}
	if sig.Variadic {
		params = append(params, "...")
	}
	list := "void"
	if len(params) > 0 {
		list = strings.Join(params, ", ")
	}
	e.line(returnDecl(sig.Return, e.typeName), " ", symbol, "(", list, ");")
}
