package pipeline

import (
	"encoding/json"
	"io"

	"plcabi/internal/diag"
	"plcabi/internal/observ"
)

// UnitReport is the JSON summary of one unit build.
type UnitReport struct {
	Unit        string                `json:"unit,omitempty"`
	Source      string                `json:"source"`
	Header      string                `json:"header,omitempty"`
	Native      string                `json:"native,omitempty"`
	Cached      bool                  `json:"cached"`
	Failed      bool                  `json:"failed"`
	Timing      observ.Report         `json:"timing"`
	Diagnostics []diag.DiagnosticJSON `json:"diagnostics"`
}

// BatchReport is the JSON summary of a batch.
type BatchReport struct {
	Units  []UnitReport `json:"units"`
	Failed int          `json:"failed"`
}

// Summarize builds the report of results. Failed units list no artifact
// paths since nothing was written for them.
func Summarize(results []*Result) BatchReport {
	rep := BatchReport{Units: make([]UnitReport, 0, len(results))}
	for _, r := range results {
		if r == nil {
			continue
		}
		u := UnitReport{
			Unit:        r.Unit,
			Source:      r.Source,
			Cached:      r.Cached,
			Failed:      r.Failed(),
			Timing:      r.Timing,
			Diagnostics: diag.ToJSON(r.Bag.Items()),
		}
		if u.Failed {
			rep.Failed++
		} else {
			u.Header = r.HeaderPath
			u.Native = r.NativePath
		}
		rep.Units = append(rep.Units, u)
	}
	return rep
}

// WriteReport writes the report of results as indented JSON.
func WriteReport(w io.Writer, results []*Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Summarize(results))
}
