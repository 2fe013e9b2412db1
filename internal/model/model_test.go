package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseTypeRef(t *testing.T) {
	cases := []struct {
		src  string
		want TypeRef
		text string
	}{
		{"int", Prim("INT"), "INT"},
		{"Shape", Named("Shape"), "Shape"},
		{"POINTER TO Node", PointerTo(Named("Node")), "POINTER TO Node"},
		{"REF_TO DINT", PointerTo(Prim("DINT")), "POINTER TO DINT"},
		{"ARRAY[3, 0..3] OF INT", ArrayOf(Prim("INT"), 3, 4), "ARRAY[3,4] OF INT"},
		{"STRING", String(DefaultStringLength), "STRING[80]"},
		{"WSTRING[10]", WString(10), "WSTRING[10]"},
		{"ARRAY[1..2] OF POINTER TO Point", ArrayOf(PointerTo(Named("Point")), 2), "ARRAY[2] OF POINTER TO Point"},
	}
	for _, tc := range cases {
		got, err := ParseTypeRef(tc.src)
		if err != nil {
			t.Fatalf("ParseTypeRef(%q): %v", tc.src, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseTypeRef(%q) = %s, want %s", tc.src, got, tc.want)
		}
		if got.String() != tc.text {
			t.Fatalf("String() = %q, want %q", got.String(), tc.text)
		}
	}
}

func TestParseTypeRefRejectsGarbage(t *testing.T) {
	for _, src := range []string{"", "ARRAY[3] INT", "POINTER Node", "INT extra", "STRING[x]"} {
		if _, err := ParseTypeRef(src); err == nil {
			t.Fatalf("expected error for %q", src)
		}
	}
}

func TestArrayNested(t *testing.T) {
	arr, ok := ArrayOf(Prim("INT"), 3, 4, 5).Array()
	if !ok {
		t.Fatal("expected array view")
	}
	if arr.MaxElements() != 3 {
		t.Fatalf("MaxElements = %d, want 3", arr.MaxElements())
	}
	nested := arr.Nested()
	if len(nested) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(nested))
	}
	if got := nested[0].Elem.String(); got != "ARRAY[4,5] OF INT" {
		t.Fatalf("outer element = %q", got)
	}
	if got := nested[2].Elem.String(); got != "INT" {
		t.Fatalf("inner element = %q", got)
	}
}

func TestSignatureSameShape(t *testing.T) {
	ret := Prim("REAL")
	base := Signature{Params: []Param{{Name: "x", Type: Prim("INT")}}, Return: &ret}

	renamed := Signature{Params: []Param{{Name: "other", Type: Prim("INT")}}, Return: &ret}
	if !base.SameShape(renamed) {
		t.Fatal("parameter names must not matter")
	}
	byRef := Signature{Params: []Param{{Name: "x", Type: Prim("INT"), ByRef: true}}, Return: &ret}
	if base.SameShape(byRef) {
		t.Fatal("by-ref flag must matter")
	}
	void := Signature{Params: base.Params}
	if base.SameShape(void) {
		t.Fatal("return type must matter")
	}
	variadic := Signature{Params: base.Params, Return: &ret, Variadic: true}
	if base.SameShape(variadic) {
		t.Fatal("variadic flag must matter")
	}
}

const shapesTOML = `
name = "shapes"

[[alias]]
name = "Coord"
type = "INT"

[[enum]]
name = "RGB"
[[enum.member]]
name = "red"
[[enum.member]]
name = "green"
value = 4

[[record]]
name = "Shape"
polymorphic = true
[[record.method]]
name = "area"
return = "REAL"

[[record]]
name = "Rectangle"
parent = "Shape"
constructor = true
[[record.field]]
name = "w"
type = "Coord"
default = 2
[[record.method]]
name = "area"
override = true
return = "REAL"

[[global]]
name = "gShapes"
type = "ARRAY[4] OF POINTER TO Shape"

[[function]]
name = "draw"
variadic = true
[[function.param]]
name = "s"
type = "Shape"
by_ref = true
`

func TestParseTOML(t *testing.T) {
	u, err := ParseTOML(shapesTOML)
	if err != nil {
		t.Fatalf("ParseTOML: %v", err)
	}
	if u.Name != "shapes" || len(u.Aliases) != 1 || len(u.Enums) != 1 || len(u.Records) != 2 {
		t.Fatalf("unexpected unit: %+v", u)
	}
	if v := u.Enums[0].Members[1].Value; v == nil || *v != 4 {
		t.Fatalf("expected explicit value 4, got %v", v)
	}
	if u.Enums[0].Members[0].Value != nil {
		t.Fatal("expected implicit first member")
	}
	rect := u.Records[1]
	if rect.Parent != "Shape" || !rect.HasConstructor || !rect.Methods[0].IsOverride {
		t.Fatalf("unexpected record: %+v", rect)
	}
	if d := rect.Fields[0].Default; d == nil || d.Kind != LitInt || d.Int != 2 {
		t.Fatalf("unexpected default: %+v", d)
	}
	fn := u.Callables[0]
	if !fn.Variadic || !fn.Params[0].ByRef || fn.Return != nil {
		t.Fatalf("unexpected callable: %+v", fn)
	}
	if err := u.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseTOMLRejectsUnknownKeys(t *testing.T) {
	if _, err := ParseTOML("name = \"x\"\ncolour = 1\n"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestMsgpackRoundTripThroughFile(t *testing.T) {
	u, err := ParseTOML(shapesTOML)
	if err != nil {
		t.Fatalf("ParseTOML: %v", err)
	}
	data, err := Encode(u)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "shapes.mp")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.Name != "shapes" || got.File != path {
		t.Fatalf("unexpected identity %q %q", got.Name, got.File)
	}
	g := got.Globals[0].Type
	if !g.Equal(u.Globals[0].Type) {
		t.Fatalf("global type changed: %s vs %s", g, u.Globals[0].Type)
	}
	if got.Callables[0].Name != "draw" || !got.Callables[0].Variadic {
		t.Fatalf("callable lost: %+v", got.Callables[0])
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	u := &Unit{
		Aliases: []*AliasType{
			{Name: "A", Type: Named("B")},
			{Name: "B", Type: Named("A")},
		},
		Enums: []*EnumType{{Name: "Hollow"}},
		Records: []*RecordType{
			{Name: "R", Parent: "Missing", Fields: []Field{
				{Name: "x", Type: Prim("INT")},
				{Name: "x", Type: Named("Nope")},
			}},
			{Name: "R"},
		},
	}
	err := u.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	kinds := map[ValidationErrorKind]int{}
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var ve *ValidationError
		if !errors.As(e, &ve) {
			t.Fatalf("unexpected error type %T", e)
		}
		kinds[ve.Kind]++
	}
	if kinds[ValidationDuplicateType] != 1 || kinds[ValidationDuplicateField] != 1 ||
		kinds[ValidationUnknownType] != 2 || kinds[ValidationAliasCycle] != 2 ||
		kinds[ValidationEmptyEnum] != 1 {
		t.Fatalf("unexpected kinds: %v", kinds)
	}
}

func TestIndexResolveFollowsAliases(t *testing.T) {
	u := &Unit{
		Aliases: []*AliasType{{Name: "Outer", Type: Named("Inner")}, {Name: "Inner", Type: Named("Point")}},
		Records: []*RecordType{{Name: "Point"}},
	}
	idx := BuildIndex(u)
	got, err := idx.Resolve(Named("Outer"))
	if err != nil || got.Kind != RefNamed || got.Name != "Point" {
		t.Fatalf("Resolve(Outer) = %v, %v", got, err)
	}
	if d, ok := idx.Lookup(got.Name); !ok || d.Kind != DeclRecord {
		t.Fatalf("Lookup(Point) = %+v, %v", d, ok)
	}
	if _, err := idx.Resolve(Named("Missing")); err == nil {
		t.Fatal("expected error for an unknown name")
	}
}

func TestRecordKinds(t *testing.T) {
	u, err := ParseTOML(`
name = "pous"

[[record]]
name = "Motor"
kind = "function_block"

[[record]]
name = "Main"
kind = "program"

[[record]]
name = "Point"
`)
	if err != nil {
		t.Fatalf("ParseTOML: %v", err)
	}
	want := []RecordKind{KindFunctionBlock, KindProgram, KindStruct}
	for i, r := range u.Records {
		if r.Kind != want[i] {
			t.Fatalf("%s: kind = %v, want %v", r.Name, r.Kind, want[i])
		}
		if r.HasBody() != (want[i] != KindStruct) {
			t.Fatalf("%s: HasBody = %v", r.Name, r.HasBody())
		}
	}
	if _, err := ParseTOML("[[record]]\nname = \"X\"\nkind = \"interface\"\n"); err == nil {
		t.Fatal("expected error for an unknown kind")
	}
}
