package plcabi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"plcabi/internal/diag"
	"plcabi/internal/pipeline"
)

const manifest = `
[header]
output = "include"

[codegen]
output = "ir"

[build]
units = ["units/*.toml"]
cache = ".cache"
jobs = 2
`

const goodUnit = `
name = "good"

[[record]]
name = "Motor"
kind = "function_block"
[[record.field]]
name = "speed"
type = "INT"
`

const cyclicUnit = `
name = "cyclic"

[[record]]
name = "A"
[[record.field]]
name = "self"
type = "A"
`

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"plcabi.toml":       manifest,
		"units/good.toml":   goodUnit,
		"units/cyclic.toml": cyclicUnit,
	}
	for name, text := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestBuildReportsEveryUnit(t *testing.T) {
	root := writeProject(t)
	nested := filepath.Join(root, "units")

	var out bytes.Buffer
	sum, err := Build(context.Background(), nested, &out, BuildOptions{Color: diag.ColorOff})
	if !errors.Is(err, ErrUnitsFailed) {
		t.Fatalf("expected ErrUnitsFailed, got %v", err)
	}
	if sum != (Summary{Units: 2, Failed: 1}) {
		t.Fatalf("summary = %+v", sum)
	}
	text := out.String()
	if !strings.Contains(text, "cyclic.toml:\n") || !strings.Contains(text, "error   LAY1001 A ") {
		t.Fatalf("unexpected report:\n%s", text)
	}
	if strings.Contains(text, "\x1b[") {
		t.Fatalf("colour written with ColorOff:\n%s", text)
	}
	header, err := os.ReadFile(filepath.Join(root, "include", "good.h"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(header), "void Motor(Motor_type* self);\n") {
		t.Fatalf("header misses the body prototype:\n%s", header)
	}
	if _, err := os.Stat(filepath.Join(root, "ir", "good.ll")); err != nil {
		t.Fatalf("native module missing: %v", err)
	}

	sum, _ = Build(context.Background(), root, &out, BuildOptions{Color: diag.ColorOff})
	if sum.Cached != 1 {
		t.Fatalf("second build cached %d units", sum.Cached)
	}
	sum, _ = Build(context.Background(), root, &out, BuildOptions{Color: diag.ColorOff, Clean: true})
	if sum.Cached != 0 {
		t.Fatalf("clean build cached %d units", sum.Cached)
	}
}

func TestBuildJSON(t *testing.T) {
	root := writeProject(t)
	var out bytes.Buffer
	if _, err := Build(context.Background(), root, &out, BuildOptions{JSON: true}); !errors.Is(err, ErrUnitsFailed) {
		t.Fatalf("expected ErrUnitsFailed, got %v", err)
	}
	var rep pipeline.BatchReport
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("invalid report: %v\n%s", err, out.String())
	}
	if rep.Failed != 1 || len(rep.Units) != 2 || rep.Units[0].Unit != "cyclic" {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestBuildWithoutUnits(t *testing.T) {
	if _, err := Build(context.Background(), t.TempDir(), &bytes.Buffer{}, BuildOptions{}); !errors.Is(err, ErrNoUnits) {
		t.Fatalf("expected ErrNoUnits, got %v", err)
	}
}
