package model

import (
	"errors"
	"fmt"

	"plcabi/internal/diag"
)

// ValidationErrorKind enumerates model consistency problems.
type ValidationErrorKind uint8

const (
	ValidationDuplicateType ValidationErrorKind = iota + 1
	ValidationDuplicateField
	ValidationUnknownType
	ValidationAliasCycle
	ValidationEmptyEnum
)

// ValidationError reports a model inconsistency attributed to Name.
type ValidationError struct {
	Kind   ValidationErrorKind
	Name   string
	Detail string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ValidationDuplicateType:
		return fmt.Sprintf("type %q is declared more than once", e.Name)
	case ValidationDuplicateField:
		return fmt.Sprintf("record %s: duplicate field %q", e.Name, e.Detail)
	case ValidationUnknownType:
		return fmt.Sprintf("%s: unknown type %q", e.Name, e.Detail)
	case ValidationAliasCycle:
		return fmt.Sprintf("alias %q refers to itself", e.Name)
	case ValidationEmptyEnum:
		return fmt.Sprintf("enum %q has no members", e.Name)
	default:
		return fmt.Sprintf("invalid model (%s): %s", e.Name, e.Detail)
	}
}

func (e *ValidationError) Code() diag.Code {
	switch e.Kind {
	case ValidationDuplicateType, ValidationDuplicateField:
		return diag.LayoutDuplicate
	case ValidationEmptyEnum:
		return diag.EnumEmpty
	default:
		return diag.LayoutUnknownType
	}
}

func (e *ValidationError) Subject() string { return e.Name }

// Validate checks name uniqueness and that every named reference resolves.
// All problems are returned together.
func (u *Unit) Validate() error {
	if u == nil {
		return errors.New("nil unit")
	}
	var errs []error
	seen := make(map[string]struct{}, len(u.Aliases)+len(u.Enums)+len(u.Records))
	declare := func(name string) {
		if _, dup := seen[name]; dup {
			errs = append(errs, &ValidationError{Kind: ValidationDuplicateType, Name: name})
			return
		}
		seen[name] = struct{}{}
	}
	for _, a := range u.Aliases {
		declare(a.Name)
	}
	for _, e := range u.Enums {
		declare(e.Name)
		if len(e.Members) == 0 {
			errs = append(errs, &ValidationError{Kind: ValidationEmptyEnum, Name: e.Name})
		}
	}
	for _, r := range u.Records {
		declare(r.Name)
	}

	idx := BuildIndex(u)
	check := func(subject string, t TypeRef) {
		if name, ok := unknownName(idx, t); ok {
			errs = append(errs, &ValidationError{Kind: ValidationUnknownType, Name: subject, Detail: name})
		}
	}

	for _, a := range u.Aliases {
		check(a.Name, a.Type)
		if aliasLoops(idx, a.Name) {
			errs = append(errs, &ValidationError{Kind: ValidationAliasCycle, Name: a.Name})
		}
	}
	for _, r := range u.Records {
		if r.Parent != "" {
			if _, ok := idx.Lookup(r.Parent); !ok {
				errs = append(errs, &ValidationError{Kind: ValidationUnknownType, Name: r.Name, Detail: r.Parent})
			}
		}
		fields := make(map[string]struct{}, len(r.Fields))
		for _, f := range r.Fields {
			if _, dup := fields[f.Name]; dup {
				errs = append(errs, &ValidationError{Kind: ValidationDuplicateField, Name: r.Name, Detail: f.Name})
			}
			fields[f.Name] = struct{}{}
			check(r.Name+"."+f.Name, f.Type)
		}
		for _, m := range r.Methods {
			checkSignature(check, r.Name+"."+m.Name, m.Signature)
		}
	}
	for _, g := range u.Globals {
		check(g.Name, g.Type)
	}
	for _, c := range u.Callables {
		checkSignature(check, c.Name, c.Signature)
	}
	return errors.Join(errs...)
}

func checkSignature(check func(string, TypeRef), subject string, sig Signature) {
	for _, p := range sig.Params {
		check(subject+"."+p.Name, p.Type)
	}
	if sig.Return != nil {
		check(subject, *sig.Return)
	}
}

// unknownName returns the first user type name inside t that is not declared.
func unknownName(idx *Index, t TypeRef) (string, bool) {
	switch t.Kind {
	case RefNamed:
		if _, ok := idx.Lookup(t.Name); !ok {
			return t.Name, true
		}
	case RefPointer, RefArray:
		if t.Elem != nil {
			return unknownName(idx, *t.Elem)
		}
	}
	return "", false
}

// aliasLoops reports whether following the alias chain from name returns to
// an alias already visited.
func aliasLoops(idx *Index, name string) bool {
	seen := make(map[string]struct{}, 4)
	for {
		d, ok := idx.Lookup(name)
		if !ok || d.Kind != DeclAlias {
			return false
		}
		if _, loop := seen[name]; loop {
			return true
		}
		seen[name] = struct{}{}
		if d.Alias.Type.Kind != RefNamed {
			return false
		}
		name = d.Alias.Type.Name
	}
}
