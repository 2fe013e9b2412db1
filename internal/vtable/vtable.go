// Package vtable assigns dispatch slots to the methods of polymorphic
// records. A subtype's table always starts with its parent's slots in the
// same order; overrides only rebind the implementation of a slot.
package vtable

import (
	"errors"

	"plcabi/internal/dialect"
	"plcabi/internal/layout"
	"plcabi/internal/model"
)

// BodySlot is the slot of a function block body. It comes before every
// method slot of the block that introduces it.
const BodySlot = "__body"

// Slot is one entry of a virtual table.
type Slot struct {
	Index      int
	Method     string
	Signature  model.Signature
	Introduced string // record that declared the slot first
	Impl       string // most specific record implementing it
	Symbol     string // linkage name of the implementation
}

// Table is the virtual table of one polymorphic record.
type Table struct {
	Record       string
	Parent       string // empty for a root table
	Slots        []Slot
	TypeName     string
	InstanceName string
	InitName     string
	// VTablePath is the member index path from the record to its __vtable
	// field, through the __SUPER chain.
	VTablePath []int
}

// Slot returns the slot bound to method.
func (t *Table) Slot(method string) (Slot, bool) {
	for _, s := range t.Slots {
		if s.Method == method {
			return s, true
		}
	}
	return Slot{}, false
}

// Set holds the tables of every polymorphic record of a unit.
type Set struct {
	Naming dialect.Naming
	Order  []string // records with a table, in resolution order
	Tables map[string]*Table
}

func (s *Set) Table(record string) (*Table, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.Tables[record]
	return t, ok
}

// Ordered returns the tables in resolution order.
func (s *Set) Ordered() []*Table {
	out := make([]*Table, 0, len(s.Order))
	for _, name := range s.Order {
		out = append(out, s.Tables[name])
	}
	return out
}

// Build computes the tables of all polymorphic records of res. Records are
// visited in resolution order, so a parent's table is complete before any
// subtype copies it. All violations are returned together.
func Build(res *layout.Resolution, naming dialect.Naming) (*Set, error) {
	if res == nil {
		return nil, errors.New("nil resolution")
	}
	set := &Set{Naming: naming, Tables: make(map[string]*Table)}
	var errs []error
	for _, l := range res.Ordered() {
		if !l.Polymorphic {
			continue
		}
		t := &Table{
			Record:       l.Name,
			TypeName:     naming.VTableTypeName(l.Name),
			InstanceName: naming.VTableInstanceName(l.Name),
			InitName:     naming.InitName(l.Name),
			VTablePath:   l.VTablePath(),
		}
		if parent, ok := set.Tables[l.Parent]; ok {
			t.Parent = parent.Record
			t.Slots = append([]Slot(nil), parent.Slots...)
		}
		errs = append(errs, bindMethods(t, l.Record, naming)...)
		set.Tables[l.Name] = t
		set.Order = append(set.Order, l.Name)
	}
	return set, errors.Join(errs...)
}

func bindMethods(t *Table, rec *model.RecordType, naming dialect.Naming) []error {
	var errs []error
	inherited := len(t.Slots)
	declared := make(map[string]struct{}, len(rec.Methods)+1)
	if rec.Kind == model.KindFunctionBlock {
		bindBody(t, rec.Name)
		declared[BodySlot] = struct{}{}
	}
	for _, m := range rec.Methods {
		if _, dup := declared[m.Name]; dup {
			errs = append(errs, &DuplicateMethodError{Type: rec.Name, Method: m.Name})
			continue
		}
		declared[m.Name] = struct{}{}

		idx := -1
		for i := range inherited {
			if t.Slots[i].Method == m.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			if m.IsOverride {
				errs = append(errs, &MissingOverrideError{Type: rec.Name, Method: m.Name})
				continue
			}
			t.Slots = append(t.Slots, Slot{
				Index:      len(t.Slots),
				Method:     m.Name,
				Signature:  m.Signature,
				Introduced: rec.Name,
				Impl:       rec.Name,
				Symbol:     naming.MethodSymbol(rec.Name, m.Name),
			})
			continue
		}

		slot := &t.Slots[idx]
		if !slot.Signature.SameShape(m.Signature) {
			errs = append(errs, &SignatureMismatchError{
				Type:   rec.Name,
				Method: m.Name,
				Base:   slot.Introduced,
				Want:   slot.Signature,
				Got:    m.Signature,
			})
			continue
		}
		slot.Impl = rec.Name
		slot.Symbol = naming.MethodSymbol(rec.Name, m.Name)
	}
	return errs
}

// bindBody points the body slot at the block's own entry point, adding the
// slot when no ancestor has one.
func bindBody(t *Table, record string) {
	for i := range t.Slots {
		if t.Slots[i].Method == BodySlot {
			t.Slots[i].Impl = record
			t.Slots[i].Symbol = record
			return
		}
	}
	t.Slots = append(t.Slots, Slot{
		Index:      len(t.Slots),
		Method:     BodySlot,
		Introduced: record,
		Impl:       record,
		Symbol:     record,
	})
}
