package layout

import (
	"errors"

	"plcabi/internal/dag"
	"plcabi/internal/model"
)

// buildGraph adds one node per record and a value edge for every record
// contained by value (fields, through aliases and arrays) and every parent
// link. Pointer references add no edge.
func (r *Resolution) buildGraph() (*dag.Graph, error) {
	u := r.Unit
	names := make([]string, len(u.Records))
	ids := make(map[string]dag.NodeID, len(u.Records))
	var errs []error
	for i, rec := range u.Records {
		names[i] = rec.Name
		if _, dup := ids[rec.Name]; dup {
			errs = append(errs, &LayoutError{Kind: LayoutErrDuplicate, Type: rec.Name})
			continue
		}
		ids[rec.Name] = dag.ID(i)
	}
	g := dag.New(names)

	for i, rec := range u.Records {
		to := dag.ID(i)
		if rec.Parent != "" {
			d, ok := r.index.Lookup(rec.Parent)
			switch {
			case !ok:
				errs = append(errs, &LayoutError{Kind: LayoutErrUnknownType, Type: rec.Name, Detail: rec.Parent})
			case d.Kind != model.DeclRecord:
				errs = append(errs, &LayoutError{Kind: LayoutErrBadParent, Type: rec.Name, Detail: rec.Parent})
			default:
				g.AddEdge(ids[rec.Parent], to)
			}
		}
		for _, f := range rec.Fields {
			w := r.newWalker(rec.Name, func(dep string, viaPointer bool) {
				if !viaPointer {
					g.AddEdge(ids[dep], to)
				}
			})
			if err := w.walk(f.Type, false); err != nil {
				errs = append(errs, err)
			}
		}
		for _, m := range rec.Methods {
			errs = append(errs, r.checkSignature(rec.Name+"."+m.Name, m.Signature)...)
		}
	}
	for _, a := range u.Aliases {
		if err := r.newWalker(a.Name, nil).walk(model.Named(a.Name), false); err != nil {
			errs = append(errs, err)
			continue
		}
		if rec, ok := r.recordInArray(a.Type, false, make(map[string]bool, 4)); ok {
			errs = append(errs, &LayoutError{Kind: LayoutErrIncompleteAlias, Type: a.Name, Detail: rec})
		}
	}
	for _, gv := range u.Globals {
		if err := r.newWalker(gv.Name, nil).walk(gv.Type, false); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range u.Callables {
		errs = append(errs, r.checkSignature(c.Name, c.Signature)...)
	}
	return g, errors.Join(errs...)
}

func (r *Resolution) checkSignature(owner string, sig model.Signature) []error {
	var errs []error
	for _, p := range sig.Params {
		if err := r.newWalker(owner, nil).walk(p.Type, false); err != nil {
			errs = append(errs, err)
		}
	}
	if sig.Return != nil {
		if err := r.newWalker(owner, nil).walk(*sig.Return, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// markForwardDecls flags records that are referenced before their
// definition: through a pointer from an earlier (or the same) record, or
// from an alias, since aliases are declared ahead of every record.
func (r *Resolution) markForwardDecls() {
	pos := make(map[string]int, len(r.Order))
	for i, name := range r.Order {
		pos[name] = i
	}
	for _, name := range r.Order {
		l := r.Records[name]
		for _, f := range l.Record.Fields {
			w := r.newWalker(name, func(dep string, viaPointer bool) {
				if viaPointer && pos[dep] >= pos[name] {
					r.Records[dep].ForwardDecl = true
				}
			})
			_ = w.walk(f.Type, false)
		}
	}
	for _, a := range r.Unit.Aliases {
		w := r.newWalker(a.Name, func(dep string, _ bool) {
			r.Records[dep].ForwardDecl = true
		})
		_ = w.walk(a.Type, false)
	}
}

// recordInArray returns the first record that t holds by value as an array
// element, looking through aliases but not through pointers. Aliases are
// declared ahead of every record, where such an element type is incomplete.
func (r *Resolution) recordInArray(t model.TypeRef, inArray bool, seen map[string]bool) (string, bool) {
	switch t.Kind {
	case model.RefArray:
		if t.Elem != nil {
			return r.recordInArray(*t.Elem, true, seen)
		}
	case model.RefNamed:
		d, ok := r.index.Lookup(t.Name)
		if !ok {
			return "", false
		}
		switch d.Kind {
		case model.DeclRecord:
			return t.Name, inArray
		case model.DeclAlias:
			if seen[t.Name] {
				return "", false
			}
			seen[t.Name] = true
			return r.recordInArray(d.Alias.Type, inArray, seen)
		}
	}
	return "", false
}

// typeWalker visits every record a type reference mentions and checks the
// reference for unknown names, bad dimensions and self-containing aliases.
type typeWalker struct {
	res      *Resolution
	owner    string
	visit    func(record string, viaPointer bool)
	expanded map[string]bool
}

func (r *Resolution) newWalker(owner string, visit func(string, bool)) *typeWalker {
	return &typeWalker{res: r, owner: owner, visit: visit, expanded: make(map[string]bool, 4)}
}

func (w *typeWalker) walk(t model.TypeRef, viaPointer bool) error {
	switch t.Kind {
	case model.RefPrimitive:
		if _, ok := t.Primitive(); !ok {
			return &LayoutError{Kind: LayoutErrUnknownType, Type: w.owner, Detail: t.Name}
		}
	case model.RefString:
		if t.Len <= 0 {
			return &LayoutError{Kind: LayoutErrInvalidArray, Type: w.owner, Detail: t.String()}
		}
	case model.RefPointer:
		if t.Elem == nil {
			return &LayoutError{Kind: LayoutErrUnknownType, Type: w.owner, Detail: t.String()}
		}
		return w.walk(*t.Elem, true)
	case model.RefArray:
		if t.Elem == nil || len(t.Dims) == 0 {
			return &LayoutError{Kind: LayoutErrInvalidArray, Type: w.owner, Detail: t.String()}
		}
		for _, d := range t.Dims {
			if d <= 0 {
				return &LayoutError{Kind: LayoutErrInvalidArray, Type: w.owner, Detail: t.String()}
			}
		}
		return w.walk(*t.Elem, viaPointer)
	case model.RefNamed:
		d, ok := w.res.index.Lookup(t.Name)
		if !ok {
			return &LayoutError{Kind: LayoutErrUnknownType, Type: w.owner, Detail: t.Name}
		}
		switch d.Kind {
		case model.DeclRecord:
			if w.visit != nil {
				w.visit(t.Name, viaPointer)
			}
		case model.DeclAlias:
			if w.expanded[t.Name] {
				if viaPointer {
					return nil
				}
				return &LayoutError{Kind: LayoutErrRecursiveAlias, Type: w.owner, Detail: t.Name}
			}
			w.expanded[t.Name] = true
			err := w.walk(d.Alias.Type, viaPointer)
			delete(w.expanded, t.Name)
			return err
		}
	default:
		return &LayoutError{Kind: LayoutErrUnknownType, Type: w.owner, Detail: t.String()}
	}
	return nil
}
