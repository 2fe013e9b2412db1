// Package enums resolves the integer value of every enumeration member.
// Values never depend on the emission dialect; the dialect only decides
// whether member names share one namespace across the unit.
package enums

import (
	"errors"
	"math"

	"fortio.org/safecast"

	"plcabi/internal/dialect"
	"plcabi/internal/model"
)

// Member is a resolved enumeration member.
type Member struct {
	Name     string
	Value    int64
	Explicit bool
}

// Enum is a resolved enumeration.
type Enum struct {
	Name    string
	Width   int
	Members []Member
}

// Table holds the resolved enums of one unit in declaration order.
type Table struct {
	Dialect dialect.Dialect
	Enums   []*Enum

	byName map[string]*Enum
}

func (t *Table) Enum(name string) (*Enum, bool) {
	if t == nil {
		return nil, false
	}
	e, ok := t.byName[name]
	return e, ok
}

// Value returns the resolved value of enum.member.
func (t *Table) Value(enum, member string) (int64, bool) {
	e, ok := t.Enum(enum)
	if !ok {
		return 0, false
	}
	for _, m := range e.Members {
		if m.Name == member {
			return m.Value, true
		}
	}
	return 0, false
}

// Values applies the numbering rule to e: an explicit value is kept; the
// first implicit member of the enum is 0; every later implicit member is the
// previous resolved value plus one.
func Values(e *model.EnumType) ([]int64, error) {
	out := make([]int64, len(e.Members))
	seenImplicit := false
	for i, m := range e.Members {
		switch {
		case m.Value != nil:
			out[i] = *m.Value
		case !seenImplicit:
			seenImplicit = true
			out[i] = 0
		default:
			prev := out[i-1]
			if prev == math.MaxInt64 {
				return nil, &ValueRangeError{Enum: e.Name, Member: m.Name, Value: prev, Width: 64}
			}
			out[i] = prev + 1
		}
	}
	return out, nil
}

// Assign resolves every enum and checks member names and value ranges. All
// violations are returned together.
func Assign(list []*model.EnumType, d dialect.Dialect) (*Table, error) {
	t := &Table{Dialect: d, byName: make(map[string]*Enum, len(list))}
	var errs []error
	owner := make(map[string]string)

	for _, decl := range list {
		values, err := Values(decl)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		en := &Enum{Name: decl.Name, Width: decl.BackingWidth(), Members: make([]Member, len(decl.Members))}

		own := make(map[string]struct{}, len(decl.Members))
		for i, m := range decl.Members {
			if _, dup := own[m.Name]; dup {
				errs = append(errs, &DuplicateMemberNameError{Member: m.Name, Enum: decl.Name, Other: decl.Name})
			} else if first, taken := owner[m.Name]; taken && d.RequiresUniqueMembers() {
				errs = append(errs, &DuplicateMemberNameError{Member: m.Name, Enum: decl.Name, Other: first})
			}
			own[m.Name] = struct{}{}
			if _, taken := owner[m.Name]; !taken {
				owner[m.Name] = decl.Name
			}

			if err := checkRange(values[i], en.Width); err != nil {
				errs = append(errs, &ValueRangeError{Enum: decl.Name, Member: m.Name, Value: values[i], Width: en.Width, Err: err})
			}
			en.Members[i] = Member{Name: m.Name, Value: values[i], Explicit: m.Value != nil}
		}
		if !validWidth(en.Width) {
			errs = append(errs, &ValueRangeError{Enum: decl.Name, Width: en.Width})
		}

		t.Enums = append(t.Enums, en)
		if _, dup := t.byName[en.Name]; !dup {
			t.byName[en.Name] = en
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return t, nil
}

func validWidth(w int) bool {
	switch w {
	case 8, 16, 32, 64:
		return true
	}
	return false
}

func checkRange(v int64, width int) error {
	var err error
	switch width {
	case 8:
		_, err = safecast.Conv[int8](v)
	case 16:
		_, err = safecast.Conv[int16](v)
	case 32:
		_, err = safecast.Conv[int32](v)
	}
	return err
}
