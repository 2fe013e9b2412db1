package observ

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("layout")
	tm.End(idx, "4 records")
	tm.End(idx+5, "ignored")
	tm.End(tm.Begin("header"), "")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != "layout" || r.Phases[0].Note != "4 records" {
		t.Fatalf("unexpected report: %+v", r)
	}
	summary := tm.Summary()
	for _, want := range []string{"layout", "// 4 records", "header", "total"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary misses %q:\n%s", want, summary)
		}
	}
}

func TestTimerFields(t *testing.T) {
	tm := NewTimer()
	tm.End(tm.Begin("layout"), "")
	tm.End(tm.Begin("vtable"), "")

	fields := tm.Fields()
	if len(fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(fields))
	}
	names := []string{"layout", "vtable", "total"}
	var sum time.Duration
	for i, f := range fields {
		if f.Key != names[i] || f.Type != zapcore.DurationType {
			t.Fatalf("field %d = %s/%v", i, f.Key, f.Type)
		}
		if i < 2 {
			sum += time.Duration(f.Integer)
		}
	}
	if time.Duration(fields[2].Integer) != sum {
		t.Fatalf("total %v != sum %v", time.Duration(fields[2].Integer), sum)
	}
}

func TestEmptyTimer(t *testing.T) {
	tm := NewTimer()
	if r := tm.Report(); len(r.Phases) != 0 || r.TotalMS != 0 {
		t.Fatalf("unexpected report: %+v", r)
	}
	if f := tm.Fields(); len(f) != 1 || f[0].Key != "total" {
		t.Fatalf("unexpected fields: %v", f)
	}
}
