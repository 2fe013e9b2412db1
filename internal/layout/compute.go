package layout

import (
	"errors"
	"fmt"
	"math"

	"fortio.org/safecast"

	"plcabi/internal/model"
)

var errOverflow = errors.New("size exceeds the address space")

// layoutOf computes the layout of t as used inside owner. Records referenced
// by value must already be laid out.
func (r *Resolution) layoutOf(owner string, t model.TypeRef) (TypeLayout, error) {
	key := t.String()
	if t.Kind == model.RefNamed {
		if cached, ok := r.cache.get(key); ok {
			return cached, nil
		}
	}
	l, err := r.computeLayout(owner, t)
	if err != nil {
		return TypeLayout{Size: 0, Align: 1}, err
	}
	if t.Kind == model.RefNamed {
		r.cache.put(key, &l)
	}
	return l, nil
}

func (r *Resolution) computeLayout(owner string, t model.TypeRef) (TypeLayout, error) {
	switch t.Kind {
	case model.RefPrimitive:
		p, ok := t.Primitive()
		if !ok {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownType, Type: owner, Detail: t.Name}
		}
		return r.scalarLayoutBytes(p.Bytes()), nil

	case model.RefString:
		if t.Len <= 0 {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrInvalidArray, Type: owner, Detail: t.String()}
		}
		unit := 1
		if t.Wide {
			unit = 2
		}
		n, err := safecast.Conv[int](t.Len)
		if err != nil {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrOverflow, Type: owner, Detail: t.String(), Err: err}
		}
		size, err := mulChecked(n+1, unit)
		if err != nil {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrOverflow, Type: owner, Detail: t.String(), Err: err}
		}
		return TypeLayout{Size: size, Align: unit}, nil

	case model.RefPointer:
		return r.ptrLayout(), nil

	case model.RefArray:
		arr, ok := t.Array()
		if !ok || len(arr.Dims) == 0 {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrInvalidArray, Type: owner, Detail: t.String()}
		}
		return r.arrayFixedLayout(owner, arr)

	case model.RefNamed:
		d, ok := r.index.Lookup(t.Name)
		if !ok {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownType, Type: owner, Detail: t.Name}
		}
		switch d.Kind {
		case model.DeclAlias:
			resolved, err := r.index.Resolve(t)
			if err != nil {
				return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownType, Type: owner, Detail: t.Name}
			}
			return r.layoutOf(owner, resolved)
		case model.DeclEnum:
			return r.scalarLayoutBytes(d.Enum.BackingWidth() / 8), nil
		case model.DeclRecord:
			rec, ok := r.Records[t.Name]
			if !ok || !rec.done {
				return TypeLayout{}, fmt.Errorf("%s: record %q is not laid out yet", owner, t.Name)
			}
			return TypeLayout{Size: rec.Size, Align: rec.Align}, nil
		}
	}
	return TypeLayout{}, &LayoutError{Kind: LayoutErrUnknownType, Type: owner, Detail: t.String()}
}

func (r *Resolution) ptrLayout() TypeLayout {
	ptrSize := r.Target.PtrSize
	ptrAlign := r.Target.PtrAlign
	if ptrSize <= 0 {
		ptrSize = 8
	}
	if ptrAlign <= 0 {
		ptrAlign = ptrSize
	}
	return TypeLayout{Size: ptrSize, Align: ptrAlign}
}

func (r *Resolution) scalarLayoutBytes(size int) TypeLayout {
	if size <= 0 {
		return TypeLayout{Size: 0, Align: 1}
	}
	align := size
	if r.Target.MaxAlign > 0 && align > r.Target.MaxAlign {
		align = r.Target.MaxAlign
	}
	return TypeLayout{Size: size, Align: align}
}

func (r *Resolution) arrayFixedLayout(owner string, arr model.ArrayType) (TypeLayout, error) {
	for _, d := range arr.Dims {
		if d <= 0 {
			return TypeLayout{}, &LayoutError{Kind: LayoutErrInvalidArray, Type: owner, Detail: model.ArrayOf(arr.Elem, arr.Dims...).String()}
		}
	}
	elemLayout, err := r.layoutOf(owner, arr.Elem)
	if err != nil {
		return TypeLayout{}, err
	}
	elemAlign := elemLayout.Align
	if elemAlign <= 0 {
		elemAlign = 1
	}
	size := roundUp(elemLayout.Size, elemAlign)
	for _, d := range arr.Dims {
		n, err := safecast.Conv[int](d)
		if err == nil {
			size, err = mulChecked(size, n)
		}
		if err != nil {
			return TypeLayout{}, &LayoutError{
				Kind:   LayoutErrOverflow,
				Type:   owner,
				Detail: model.ArrayOf(arr.Elem, arr.Dims...).String(),
				Err:    err,
			}
		}
	}
	return TypeLayout{Size: size, Align: elemAlign}, nil
}

// structLayout places members in order with natural alignment.
func structLayout(members []TypeLayout) (TypeLayout, []int, error) {
	offsets := make([]int, len(members))
	size := 0
	align := 1
	for i, m := range members {
		fAlign := m.Align
		if fAlign <= 0 {
			fAlign = 1
		}
		size = roundUp(size, fAlign)
		offsets[i] = size
		if size > math.MaxInt-m.Size {
			return TypeLayout{}, nil, errOverflow
		}
		size += m.Size
		align = maxInt(align, fAlign)
	}
	size = roundUp(size, align)
	return TypeLayout{Size: size, Align: align}, offsets, nil
}

func mulChecked(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, errOverflow
	}
	if b != 0 && a > math.MaxInt/b {
		return 0, errOverflow
	}
	return a * b, nil
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
