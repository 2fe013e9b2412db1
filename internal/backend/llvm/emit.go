// Package llvm lowers the resolved layout of a unit to a textual LLVM module:
// record and vtable struct types, vtable instances, the __init routines that
// install them, user initializers and declarations for everything defined
// elsewhere.
package llvm

import (
	"errors"
	"fmt"
	"strings"

	"plcabi/internal/diag"
	"plcabi/internal/dialect"
	"plcabi/internal/layout"
	"plcabi/internal/model"
	"plcabi/internal/version"
	"plcabi/internal/vtable"
)

type funcSig struct {
	ret      string
	params   []string
	variadic bool
}

func (s funcSig) paramList() string {
	params := s.params
	if s.variadic {
		params = append(params[:len(params):len(params)], "...")
	}
	return strings.Join(params, ", ")
}

// Input carries the resolved side-tables of one unit.
type Input struct {
	Unit    *model.Unit
	Layout  *layout.Resolution
	VTables *vtable.Set
}

type Options struct {
	Naming dialect.Naming
	// Bridge receives the native requests of the module. Nil selects a
	// fresh IRBridge.
	Bridge    Bridge
	InitArray bool
	// InstrumentationOutput enables the instrumentation pass when set.
	InstrumentationOutput string
}

// EmitError reports a construct the native module cannot express.
type EmitError struct {
	Symbol string
	Err    error
}

func (e *EmitError) Error() string   { return fmt.Sprintf("emit %s: %v", e.Symbol, e.Err) }
func (e *EmitError) Unwrap() error   { return e.Err }
func (e *EmitError) Subject() string { return e.Symbol }
func (e *EmitError) Code() diag.Code { return diag.NativeEmit }

type Emitter struct {
	in     Input
	opts   Options
	bridge Bridge
	index  *model.Index
	target layout.Target
	buf    strings.Builder
}

// EmitModule renders the native module of in. Bridge failures are returned
// as *BridgeError and leave the inputs untouched.
func EmitModule(in Input, opts Options) (string, error) {
	if in.Unit == nil || in.Layout == nil {
		return "", errors.New("llvm: incomplete input")
	}
	bridge := opts.Bridge
	if bridge == nil {
		bridge = NewIRBridge()
	}
	e := &Emitter{
		in:     in,
		opts:   opts,
		bridge: bridge,
		index:  in.Layout.Index(),
		target: in.Layout.Target,
	}

	if err := e.bridge.SetInitArrayOption(opts.InitArray); err != nil {
		return "", &BridgeError{Op: "SetInitArrayOption", Err: err}
	}
	if err := e.registerStringTypes(); err != nil {
		return "", err
	}

	e.emitPreamble()
	if err := e.emitTypes(); err != nil {
		return "", err
	}
	if err := e.emitGlobals(); err != nil {
		return "", err
	}
	if err := e.emitInitRoutines(); err != nil {
		return "", err
	}
	if err := e.emitDecls(); err != nil {
		return "", err
	}

	if opts.InstrumentationOutput != "" {
		if err := e.bridge.InstallInstrumentationPass(opts.InstrumentationOutput); err != nil {
			return "", &BridgeError{Op: "InstallInstrumentationPass", Err: err}
		}
	}
	if t, ok := e.bridge.(trailer); ok {
		if text := t.trailer(); text != "" {
			e.buf.WriteString(text)
		}
	}
	return e.buf.String(), nil
}

func (e *Emitter) emitPreamble() {
	u := e.in.Unit
	source := u.File
	if source == "" {
		source = u.Name
	}
	fmt.Fprintf(&e.buf, "; ModuleID = '%s'\n", u.Name)
	fmt.Fprintf(&e.buf, "; generated by plcabi %s\n", version.String())
	fmt.Fprintf(&e.buf, "source_filename = %q\n", source)
	if e.target.DataLayout != "" {
		fmt.Fprintf(&e.buf, "target datalayout = %q\n", e.target.DataLayout)
	}
	fmt.Fprintf(&e.buf, "target triple = %q\n\n", e.target.Triple)
}

// registerStringTypes asks the bridge for one debug type per distinct string
// type stored in a record field or a global, in first-use order.
func (e *Emitter) registerStringTypes() error {
	seen := make(map[string]bool)
	var visit func(t model.TypeRef) error
	visit = func(t model.TypeRef) error {
		resolved, err := e.index.Resolve(t)
		if err != nil {
			return nil
		}
		switch resolved.Kind {
		case model.RefArray:
			if resolved.Elem != nil {
				return visit(*resolved.Elem)
			}
		case model.RefString:
			name := resolved.String()
			if seen[name] {
				return nil
			}
			seen[name] = true
			enc := UTF8
			if resolved.Wide {
				enc = UTF16
			}
			if err := e.bridge.CreateStringDebugType(name, resolved.Len+1, enc); err != nil {
				return &BridgeError{Op: "CreateStringDebugType", Err: err}
			}
		}
		return nil
	}
	for _, l := range e.in.Layout.Ordered() {
		for _, f := range l.Record.Fields {
			if err := visit(f.Type); err != nil {
				return err
			}
		}
	}
	for _, g := range e.in.Unit.Globals {
		if err := visit(g.Type); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitTypes() error {
	n := 0
	for _, l := range e.in.Layout.Ordered() {
		if t, ok := e.in.VTables.Table(l.Name); ok {
			slots := make([]string, len(t.Slots))
			for i := range slots {
				slots[i] = "ptr"
			}
			fmt.Fprintf(&e.buf, "%%%s = type %s\n", t.TypeName, structBody(slots))
		}
		members := make([]string, 0, len(l.Members))
		for _, m := range l.Members {
			switch m.Kind {
			case layout.MemberVTable:
				members = append(members, "ptr")
			default:
				ty, err := e.irType(m.Type)
				if err != nil {
					return &EmitError{Symbol: l.Name + "." + m.Name, Err: err}
				}
				members = append(members, ty)
			}
		}
		fmt.Fprintf(&e.buf, "%%%s = type %s\n", l.Name, structBody(members))
		n++
	}
	if n > 0 {
		e.buf.WriteString("\n")
	}
	return nil
}

func structBody(members []string) string {
	if len(members) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(members, ", ") + " }"
}

func (e *Emitter) emitGlobals() error {
	n := 0
	for _, g := range e.in.Unit.Globals {
		ty, err := e.irType(g.Type)
		if err != nil {
			return &EmitError{Symbol: g.Name, Err: err}
		}
		tl, err := e.in.Layout.LayoutOf(g.Type)
		if err != nil {
			return &EmitError{Symbol: g.Name, Err: err}
		}
		fmt.Fprintf(&e.buf, "@%s = external global %s, align %d\n", g.Name, ty, tl.Align)
		n++
	}
	for _, l := range e.in.Layout.Ordered() {
		if l.Record.Kind != model.KindProgram {
			continue
		}
		fmt.Fprintf(&e.buf, "@%s = external global %%%s, align %d\n", e.opts.Naming.ProgramInstanceName(l.Name), l.Name, l.Align)
		n++
	}
	for _, l := range e.in.Layout.Ordered() {
		t, ok := e.in.VTables.Table(l.Name)
		if !ok {
			continue
		}
		if len(t.Slots) == 0 {
			fmt.Fprintf(&e.buf, "@%s = constant %%%s zeroinitializer\n", t.InstanceName, t.TypeName)
		} else {
			slots := make([]string, len(t.Slots))
			for i, s := range t.Slots {
				slots[i] = "ptr @" + s.Symbol
			}
			fmt.Fprintf(&e.buf, "@%s = constant %%%s { %s }\n", t.InstanceName, t.TypeName, strings.Join(slots, ", "))
		}
		n++
	}
	if n > 0 {
		e.buf.WriteString("\n")
	}
	return nil
}
