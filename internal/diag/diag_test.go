package diag

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

type testErr struct {
	code    Code
	subject string
	warn    bool
}

func (e *testErr) Error() string   { return fmt.Sprintf("problem with %s", e.subject) }
func (e *testErr) Code() Code      { return e.code }
func (e *testErr) Subject() string { return e.subject }
func (e *testErr) Warning() bool   { return e.warn }

func TestFromErrorFlattensJoinedErrors(t *testing.T) {
	err := errors.Join(
		&testErr{code: EnumDuplicateMember, subject: "red"},
		fmt.Errorf("wrapped: %w", &testErr{code: HeaderPathEncoding, subject: "??.h", warn: true}),
		errors.New("plain"),
	)

	got := FromError(err)
	if len(got) != 3 {
		t.Fatalf("expected 3 diagnostics, got %d: %+v", len(got), got)
	}
	if got[0].Code != EnumDuplicateMember || got[0].Subject != "red" || got[0].Severity != SevError {
		t.Fatalf("unexpected first diagnostic: %+v", got[0])
	}
	if got[1].Code != HeaderPathEncoding || got[1].Severity != SevWarning {
		t.Fatalf("unexpected second diagnostic: %+v", got[1])
	}
	if got[2].Code != UnknownCode || got[2].Message != "plain" {
		t.Fatalf("unexpected third diagnostic: %+v", got[2])
	}
}

func TestFormatShortAlignsSubjects(t *testing.T) {
	diags := []Diagnostic{
		NewWarning(HeaderPathEncoding, "x", "fallback guard used"),
		NewError(LayoutCyclicType, "Node", "cycle\nfound"),
	}
	want := "error   LAY1001 Node cycle found\n" +
		"warning HDR4001 x    fallback guard used"
	if got := FormatShort(diags, false); got != want {
		t.Fatalf("unexpected output:\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestBagLimitAndDedup(t *testing.T) {
	bag := NewBag(2)
	d := NewError(VTableSignatureMismatch, "Square.area", "mismatch")
	if !bag.Add(d) || !bag.Add(d) {
		t.Fatal("expected first two adds to succeed")
	}
	if bag.Add(d) {
		t.Fatal("expected add beyond limit to fail")
	}
	bag.Dedup()
	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic after dedup, got %d", bag.Len())
	}
	if !bag.HasErrors() {
		t.Fatal("expected HasErrors")
	}
}

func TestParseColorMode(t *testing.T) {
	cases := map[string]ColorMode{"": ColorAuto, "auto": ColorAuto, "ON": ColorOn, "never": ColorOff}
	for in, want := range cases {
		got, err := ParseColorMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseColorMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseColorMode("rainbow"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestJSONOrdersAndFlattens(t *testing.T) {
	warn := NewWarning(HeaderPathEncoding, "x.h", "fallback\nguard used")
	err := NewError(LayoutCyclicType, "Node", "cycle").WithNote("Node.next", "field closes the cycle")

	var buf bytes.Buffer
	if e := JSON(&buf, []Diagnostic{warn, err}); e != nil {
		t.Fatal(e)
	}
	var out DiagnosticsOutput
	if e := json.Unmarshal(buf.Bytes(), &out); e != nil {
		t.Fatalf("invalid JSON: %v\n%s", e, buf.String())
	}
	if out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Fatalf("unexpected output: %+v", out)
	}
	first, second := out.Diagnostics[0], out.Diagnostics[1]
	if first.Severity != "error" || first.Code != "LAY1001" || first.Title != LayoutCyclicType.Title() {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if len(first.Notes) != 1 || first.Notes[0].Subject != "Node.next" {
		t.Fatalf("unexpected notes: %+v", first.Notes)
	}
	if second.Severity != "warning" || second.Message != "fallback guard used" {
		t.Fatalf("unexpected second entry: %+v", second)
	}
}
