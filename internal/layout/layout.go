// Package layout decides the memory layout of the records of a unit: their
// dependency order, structural members, byte offsets and the flattened field
// list shared by the header and the native module.
package layout

import (
	"errors"

	"plcabi/internal/dag"
	"plcabi/internal/model"
)

// Reserved member names.
const (
	VTableField = "__vtable"
	SuperField  = "__SUPER"
	PadField    = "__pad"
)

// TypeLayout is the ABI layout of a type for a specific Target.
type TypeLayout struct {
	Size  int
	Align int
}

// MemberKind tells what a structural member of a record is.
type MemberKind uint8

const (
	MemberVTable MemberKind = iota + 1 // pointer to the virtual table
	MemberSuper                        // embedded parent record
	MemberField                        // own declared field
	MemberPadding                      // single byte giving an empty record a size
)

// Member is one direct member of a record struct, in declaration order.
type Member struct {
	Name   string
	Kind   MemberKind
	Type   model.TypeRef // parent record for MemberSuper, BYTE for MemberPadding; zero for MemberVTable
	Offset int
	Size   int
	Align  int
	// MaxElements is the outer dimension when the field is an array.
	MaxElements int64
	Default     *model.Literal
}

// Field is one entry of a flattened record: every leaf member reachable
// through the __SUPER chain, in memory order.
type Field struct {
	Name        string
	Owner       string // record that declares the member
	Type        model.TypeRef
	IsVTable    bool
	Offset      int
	Size        int
	Align       int
	MaxElements int64
	Path        []int // member indices from the record root
}

// RecordLayout is the resolved layout of one record.
type RecordLayout struct {
	Name        string
	Record      *model.RecordType
	Decl        int // declaration index in the unit
	Parent      string
	Depth       int // 0 for records without a parent
	Polymorphic bool
	// OwnVTable is set when the record itself carries the __vtable member,
	// i.e. it is polymorphic and its parent is not.
	OwnVTable   bool
	ForwardDecl bool
	Members     []Member
	Flat        []Field
	Size        int
	Align       int

	done bool
}

// VTablePath returns the member index path to the __vtable field, or nil
// when the record is not polymorphic.
func (l *RecordLayout) VTablePath() []int {
	for _, f := range l.Flat {
		if f.IsVTable {
			return f.Path
		}
	}
	return nil
}

// Resolution is the result of resolving one unit for one target.
type Resolution struct {
	Unit    *model.Unit
	Target  Target
	Order   []string // records in dependency order
	Records map[string]*RecordLayout

	index *model.Index
	cache *cache
}

// Index exposes the name index the resolution was built from.
func (r *Resolution) Index() *model.Index { return r.index }

// Record returns the layout of name.
func (r *Resolution) Record(name string) (*RecordLayout, bool) {
	l, ok := r.Records[name]
	return l, ok
}

// Ordered returns the record layouts in dependency order.
func (r *Resolution) Ordered() []*RecordLayout {
	out := make([]*RecordLayout, 0, len(r.Order))
	for _, name := range r.Order {
		out = append(out, r.Records[name])
	}
	return out
}

// ForwardDecls returns the records that need a forward declaration, in
// dependency order.
func (r *Resolution) ForwardDecls() []string {
	var out []string
	for _, name := range r.Order {
		if r.Records[name].ForwardDecl {
			out = append(out, name)
		}
	}
	return out
}

// LayoutOf computes the layout of any type reference of the unit.
func (r *Resolution) LayoutOf(t model.TypeRef) (TypeLayout, error) {
	return r.layoutOf(r.Unit.Name, t)
}

// Resolve orders the records of u by value dependency and lays them out for
// target. All model faults found are returned together; a value cycle is
// reported as CyclicTypeError.
func Resolve(u *model.Unit, target Target) (*Resolution, error) {
	if u == nil {
		return nil, errors.New("nil unit")
	}
	res := &Resolution{
		Unit:    u,
		Target:  target,
		Records: make(map[string]*RecordLayout, len(u.Records)),
		index:   model.BuildIndex(u),
		cache:   newCache(),
	}

	g, err := res.buildGraph()
	if err != nil {
		return nil, err
	}
	topo := dag.ToposortKahn(g)
	if topo.Cyclic {
		cycles := dag.Cycles(g, topo)
		errs := make([]error, 0, len(cycles))
		for _, c := range cycles {
			names := g.NamesOf(c)
			errs = append(errs, &CyclicTypeError{Type: names[0], Cycle: names})
		}
		return nil, errors.Join(errs...)
	}

	res.Order = g.NamesOf(topo.Order)
	for i, rec := range u.Records {
		res.Records[rec.Name] = &RecordLayout{Name: rec.Name, Record: rec, Decl: i, Parent: rec.Parent}
	}

	var errs []error
	for _, name := range res.Order {
		if err := res.layoutRecord(res.Records[name]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	res.markForwardDecls()
	return res, nil
}

func (r *Resolution) layoutRecord(l *RecordLayout) error {
	rec := l.Record
	var parent *RecordLayout
	if rec.Parent != "" {
		parent = r.Records[rec.Parent]
		if parent == nil || !parent.done {
			// a failed parent already reported its own error
			return nil
		}
		l.Depth = parent.Depth + 1
	}
	l.Polymorphic = rec.IsPolymorphic || rec.Kind == model.KindFunctionBlock || len(rec.Methods) > 0 ||
		(parent != nil && parent.Polymorphic)
	l.OwnVTable = l.Polymorphic && (parent == nil || !parent.Polymorphic)

	var members []Member
	if l.OwnVTable {
		pl := r.ptrLayout()
		members = append(members, Member{Name: VTableField, Kind: MemberVTable, Size: pl.Size, Align: pl.Align})
	}
	if parent != nil {
		members = append(members, Member{
			Name:  SuperField,
			Kind:  MemberSuper,
			Type:  model.Named(parent.Name),
			Size:  parent.Size,
			Align: parent.Align,
		})
	}
	var errs []error
	for _, f := range rec.Fields {
		fl, err := r.layoutOf(rec.Name, f.Type)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		members = append(members, Member{
			Name:        f.Name,
			Kind:        MemberField,
			Type:        f.Type,
			Size:        fl.Size,
			Align:       fl.Align,
			MaxElements: r.maxElements(f.Type),
			Default:     f.Default,
		})
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	if len(members) == 0 {
		// C has no empty structs and C++ gives them size 1; both sides agree
		// on one explicit byte.
		members = append(members, Member{Name: PadField, Kind: MemberPadding, Type: model.Prim("BYTE"), Size: 1, Align: 1})
	}

	sizes := make([]TypeLayout, len(members))
	for i, m := range members {
		sizes[i] = TypeLayout{Size: m.Size, Align: m.Align}
	}
	total, offsets, err := structLayout(sizes)
	if err != nil {
		return &LayoutError{Kind: LayoutErrOverflow, Type: rec.Name, Detail: "record " + rec.Name, Err: err}
	}
	for i := range members {
		members[i].Offset = offsets[i]
	}
	l.Members = members
	l.Size = total.Size
	l.Align = total.Align
	l.Flat = flatten(l, parent)
	l.done = true
	return nil
}

// flatten lists the vtable pointer (when polymorphic), then the parent's
// flattened fields without its vtable pointer, then the own fields.
func flatten(l *RecordLayout, parent *RecordLayout) []Field {
	var vt *Field
	var inherited, own []Field
	for i, m := range l.Members {
		switch m.Kind {
		case MemberVTable:
			vt = &Field{
				Name:     m.Name,
				Owner:    l.Name,
				IsVTable: true,
				Offset:   m.Offset,
				Size:     m.Size,
				Align:    m.Align,
				Path:     []int{i},
			}
		case MemberSuper:
			for _, pf := range parent.Flat {
				f := pf
				f.Offset += m.Offset
				f.Path = append([]int{i}, pf.Path...)
				if f.IsVTable {
					vt = &f
					continue
				}
				inherited = append(inherited, f)
			}
		case MemberField:
			own = append(own, Field{
				Name:        m.Name,
				Owner:       l.Name,
				Type:        m.Type,
				Offset:      m.Offset,
				Size:        m.Size,
				Align:       m.Align,
				MaxElements: m.MaxElements,
				Path:        []int{i},
			})
		}
	}
	out := make([]Field, 0, len(inherited)+len(own)+1)
	if vt != nil {
		out = append(out, *vt)
	}
	out = append(out, inherited...)
	return append(out, own...)
}

func (r *Resolution) maxElements(t model.TypeRef) int64 {
	resolved, err := r.index.Resolve(t)
	if err != nil {
		return 0
	}
	if arr, ok := resolved.Array(); ok {
		return arr.MaxElements()
	}
	return 0
}
