package dialect

import "testing"

func TestParse(t *testing.T) {
	cases := map[string]Dialect{"": Strict, "strict": Strict, " Compatible ": Compatible, "compat": Compatible}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil || got != want {
			t.Fatalf("Parse(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := Parse("loose"); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
	if !Strict.RequiresUniqueMembers() || Compatible.RequiresUniqueMembers() {
		t.Fatal("only strict requires unique members")
	}
}

func TestNamingVersions(t *testing.T) {
	cases := []struct {
		naming                Naming
		init, vtype, instance string
	}{
		{NamingV1, "__init_Shape", "__vtable_Shape", "__vtable_Shape_instance"},
		{NamingV2, "__init__Shape", "__vtable_Shape_type", "__vtable_Shape"},
	}
	for _, tc := range cases {
		if got := tc.naming.InitName("Shape"); got != tc.init {
			t.Fatalf("%v InitName = %q, want %q", tc.naming, got, tc.init)
		}
		if got := tc.naming.VTableTypeName("Shape"); got != tc.vtype {
			t.Fatalf("%v VTableTypeName = %q, want %q", tc.naming, got, tc.vtype)
		}
		if got := tc.naming.VTableInstanceName("Shape"); got != tc.instance {
			t.Fatalf("%v VTableInstanceName = %q, want %q", tc.naming, got, tc.instance)
		}
		if got := tc.naming.MethodSymbol("Shape", "area"); got != "Shape__area" {
			t.Fatalf("%v MethodSymbol = %q", tc.naming, got)
		}
	}
}

func TestParseNaming(t *testing.T) {
	for in, want := range map[string]Naming{"": NamingV1, "v1": NamingV1, "2": NamingV2, "V2": NamingV2} {
		got, err := ParseNaming(in)
		if err != nil || got != want {
			t.Fatalf("ParseNaming(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseNaming("v3"); err == nil {
		t.Fatal("expected error")
	}
}
