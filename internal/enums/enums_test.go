package enums

import (
	"errors"
	"slices"
	"testing"

	"plcabi/internal/dialect"
	"plcabi/internal/model"
)

func val(v int64) *int64 { return &v }

func enum(name string, members ...model.EnumMember) *model.EnumType {
	return &model.EnumType{Name: name, Members: members}
}

func implicit(names ...string) []model.EnumMember {
	out := make([]model.EnumMember, len(names))
	for i, n := range names {
		out[i] = model.EnumMember{Name: n}
	}
	return out
}

func TestValues(t *testing.T) {
	cases := []struct {
		name    string
		members []model.EnumMember
		want    []int64
	}{
		{"implicit", implicit("red", "green", "blue"), []int64{0, 1, 2}},
		{
			"mixed",
			[]model.EnumMember{
				{Name: "A", Value: val(2)},
				{Name: "B"},
				{Name: "C"},
				{Name: "D", Value: val(1000)},
				{Name: "E"},
			},
			[]int64{2, 0, 1, 1000, 1001},
		},
		{
			"negative",
			[]model.EnumMember{{Name: "lo"}, {Name: "neg", Value: val(-5)}, {Name: "next"}},
			[]int64{0, -5, -4},
		},
	}
	for _, tc := range cases {
		got, err := Values(enum("E", tc.members...))
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !slices.Equal(got, tc.want) {
			t.Fatalf("%s: values = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestValuesDoNotDependOnDialect(t *testing.T) {
	list := []*model.EnumType{enum("RGB", implicit("red", "green", "blue")...)}
	strict, err := Assign(list, dialect.Strict)
	if err != nil {
		t.Fatalf("strict: %v", err)
	}
	compat, err := Assign(list, dialect.Compatible)
	if err != nil {
		t.Fatalf("compatible: %v", err)
	}
	for _, m := range []string{"red", "green", "blue"} {
		a, _ := strict.Value("RGB", m)
		b, _ := compat.Value("RGB", m)
		if a != b {
			t.Fatalf("%s differs: %d vs %d", m, a, b)
		}
	}
	if v, ok := strict.Value("RGB", "blue"); !ok || v != 2 {
		t.Fatalf("blue = %d, %v", v, ok)
	}
}

func TestCrossEnumDuplicatesOnlyInStrict(t *testing.T) {
	list := []*model.EnumType{
		enum("Light", implicit("red", "green")...),
		enum("Color", implicit("red", "blue")...),
	}
	if _, err := Assign(list, dialect.Compatible); err != nil {
		t.Fatalf("compatible must accept shared names: %v", err)
	}
	_, err := Assign(list, dialect.Strict)
	var dup *DuplicateMemberNameError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateMemberNameError, got %v", err)
	}
	if dup.Member != "red" || dup.Enum != "Color" || dup.Other != "Light" {
		t.Fatalf("unexpected attribution: %+v", dup)
	}
}

func TestDuplicateWithinEnumAlwaysRejected(t *testing.T) {
	list := []*model.EnumType{enum("Mode", implicit("on", "off", "on")...)}
	for _, d := range []dialect.Dialect{dialect.Strict, dialect.Compatible} {
		_, err := Assign(list, d)
		var dup *DuplicateMemberNameError
		if !errors.As(err, &dup) || dup.Other != "Mode" {
			t.Fatalf("%v: expected in-enum duplicate, got %v", d, err)
		}
	}
}

func TestValueRange(t *testing.T) {
	small := &model.EnumType{Name: "Small", Width: 8, Members: []model.EnumMember{
		{Name: "zero"},
		{Name: "ok", Value: val(127)},
		{Name: "over"},
	}}
	_, err := Assign([]*model.EnumType{small}, dialect.Strict)
	var rng *ValueRangeError
	if !errors.As(err, &rng) {
		t.Fatalf("expected ValueRangeError, got %v", err)
	}
	if rng.Member != "over" || rng.Value != 128 || rng.Subject() != "Small.over" {
		t.Fatalf("unexpected error: %+v", rng)
	}

	odd := &model.EnumType{Name: "Odd", Width: 12, Members: implicit("a")}
	if _, err := Assign([]*model.EnumType{odd}, dialect.Strict); !errors.As(err, &rng) || rng.Width != 12 {
		t.Fatalf("expected width error, got %v", err)
	}
}
