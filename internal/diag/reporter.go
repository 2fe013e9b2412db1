package diag

import "errors"

// Reporter is the minimal contract stages use to hand over diagnostics.
type Reporter interface {
	Report(code Code, sev Severity, subject, msg string, notes []Note)
}

// BagReporter writes into *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, subject, msg string, notes []Note) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{
		Severity: sev, Code: code, Message: msg,
		Subject: subject, Notes: notes,
	})
}

// Attributed is implemented by stage errors that know their diagnostic code
// and the type or member they belong to.
type Attributed interface {
	error
	Code() Code
	Subject() string
}

// Warner marks attributed errors that are reported as warnings.
type Warner interface {
	Warning() bool
}

// Noted lets an error contribute secondary notes.
type Noted interface {
	Notes() []Note
}

// FromError flattens err (including errors.Join trees and %w chains) into
// diagnostics. Errors without attribution become UnknownCode errors.
func FromError(err error) []Diagnostic {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []Diagnostic
		for _, e := range joined.Unwrap() {
			out = append(out, FromError(e)...)
		}
		return out
	}
	var attr Attributed
	if !errors.As(err, &attr) {
		return []Diagnostic{NewError(UnknownCode, "", err.Error())}
	}
	sev := SevError
	if w, ok := attr.(Warner); ok && w.Warning() {
		sev = SevWarning
	}
	d := New(sev, attr.Code(), attr.Subject(), attr.Error())
	if n, ok := attr.(Noted); ok {
		d.Notes = append(d.Notes, n.Notes()...)
	}
	return []Diagnostic{d}
}

// ReportError forwards every diagnostic derived from err to r.
func ReportError(r Reporter, err error) {
	if r == nil {
		return
	}
	for _, d := range FromError(err) {
		r.Report(d.Code, d.Severity, d.Subject, d.Message, d.Notes)
	}
}
