package diag

import (
	"encoding/json"
	"io"
	"sort"
)

// NoteJSON is the JSON form of a Note.
type NoteJSON struct {
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// DiagnosticJSON is the JSON form of a Diagnostic.
type DiagnosticJSON struct {
	Severity string     `json:"severity"`
	Code     string     `json:"code"`
	Title    string     `json:"title"`
	Subject  string     `json:"subject,omitempty"`
	Message  string     `json:"message"`
	Notes    []NoteJSON `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root of the JSON output.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

// ToJSON converts diagnostics to their JSON form, sorted like Bag.Sort.
func ToJSON(diags []Diagnostic) []DiagnosticJSON {
	sorted := make([]Diagnostic, len(diags))
	copy(sorted, diags)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := sorted[i], sorted[j]
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		if di.Subject != dj.Subject {
			return di.Subject < dj.Subject
		}
		return di.Code < dj.Code
	})

	out := make([]DiagnosticJSON, 0, len(sorted))
	for _, d := range sorted {
		j := DiagnosticJSON{
			Severity: d.Severity.label(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Subject:  d.Subject,
			Message:  sanitizeMessage(d.Message),
		}
		for _, n := range d.Notes {
			j.Notes = append(j.Notes, NoteJSON{Subject: n.Subject, Message: sanitizeMessage(n.Msg)})
		}
		out = append(out, j)
	}
	return out
}

// JSON writes diagnostics as one indented JSON document.
func JSON(w io.Writer, diags []Diagnostic) error {
	output := DiagnosticsOutput{
		Diagnostics: ToJSON(diags),
		Count:       len(diags),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
