package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"plcabi/internal/backend/llvm"
	"plcabi/internal/cache"
	"plcabi/internal/diag"
	"plcabi/internal/dialect"
	"plcabi/internal/layout"
	"plcabi/internal/project"
)

const goodUnit = `
name = "good"

[[enum]]
name = "RGB"
[[enum.member]]
name = "red"
[[enum.member]]
name = "green"

[[record]]
name = "Shape"
[[record.method]]
name = "area"
return = "REAL"

[[record]]
name = "Square"
parent = "Shape"
constructor = true
[[record.field]]
name = "side"
type = "INT"
default = 2
[[record.method]]
name = "area"
override = true
return = "REAL"
`

const cyclicUnit = `
name = "cyclic"

[[record]]
name = "A"
[[record.field]]
name = "b"
type = "B"

[[record]]
name = "B"
[[record.field]]
name = "a"
type = "A"
`

const clashUnit = `
name = "clash"

[[enum]]
name = "Traffic"
[[enum.member]]
name = "red"

[[enum]]
name = "Paint"
[[enum.member]]
name = "red"
`

func writeUnits(t *testing.T, dir string, units map[string]string) map[string]string {
	t.Helper()
	paths := make(map[string]string, len(units))
	for name, text := range units {
		p := filepath.Join(dir, name+".toml")
		if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
		paths[name] = p
	}
	return paths
}

func testOptions(dir string) Options {
	return Options{
		Dialect:   dialect.Strict,
		Naming:    dialect.NamingV1,
		Target:    layout.X86_64LinuxGNU(),
		HeaderDir: filepath.Join(dir, "include"),
		NativeDir: filepath.Join(dir, "ir"),
		InitArray: true,
		Jobs:      2,
	}
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestCompileBatchIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	paths := writeUnits(t, dir, map[string]string{"good": goodUnit, "cyclic": cyclicUnit, "clash": clashUnit})
	opts := testOptions(dir)

	results, err := CompileBatch(context.Background(), []string{paths["cyclic"], paths["good"], paths["clash"]}, opts)
	if err != nil {
		t.Fatalf("CompileBatch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}

	cyclic, good, clash := results[0], results[1], results[2]
	if !cyclic.Failed() || !hasCode(cyclic.Bag, diag.LayoutCyclicType) {
		t.Fatalf("cyclic unit: err=%v diags=%v", cyclic.Err, cyclic.Bag.Items())
	}
	var cte *layout.CyclicTypeError
	if !errors.As(cyclic.Err, &cte) {
		t.Fatalf("expected CyclicTypeError, got %v", cyclic.Err)
	}
	if !clash.Failed() || !hasCode(clash.Bag, diag.EnumDuplicateMember) {
		t.Fatalf("clash unit: err=%v diags=%v", clash.Err, clash.Bag.Items())
	}
	if good.Failed() {
		t.Fatalf("good unit failed: %v", good.Err)
	}

	for _, name := range []string{"cyclic.h", "clash.h"} {
		if _, err := os.Stat(filepath.Join(opts.HeaderDir, name)); !os.IsNotExist(err) {
			t.Fatalf("%s written for a failed unit", name)
		}
	}
	text, err := os.ReadFile(good.HeaderPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"#ifndef GOOD_H\n",
		"typedef enum eRGB {\n",
		"typedef struct Square {\n    Shape __SUPER;\n    int16_t side;\n} Square;\n",
		"void __user_init_Square(Square* self);\n",
	} {
		if !strings.Contains(string(text), want) {
			t.Fatalf("header misses %q:\n%s", want, text)
		}
	}
	native, err := os.ReadFile(good.NativePath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(native), "store i16 2, ptr %f0, align 2\n") {
		t.Fatalf("native module misses the default store:\n%s", native)
	}
	if len(good.Timing.Phases) == 0 {
		t.Fatal("no timings recorded")
	}
}

func TestCompatibleDialectAcceptsSharedMembers(t *testing.T) {
	dir := t.TempDir()
	paths := writeUnits(t, dir, map[string]string{"clash": clashUnit})
	opts := testOptions(dir)
	opts.Dialect = dialect.Compatible

	res := CompileFile(context.Background(), paths["clash"], opts)
	if res.Failed() {
		t.Fatalf("compatible build failed: %v", res.Err)
	}
	text := string(res.Header.Text)
	if !strings.Contains(text, "#define Traffic_red ((Traffic)0)\n") || !strings.Contains(text, "#define Paint_red ((Paint)0)\n") {
		t.Fatalf("unexpected header:\n%s", text)
	}
}

func TestPrefixNamesSingleUnitHeader(t *testing.T) {
	dir := t.TempDir()
	paths := writeUnits(t, dir, map[string]string{"good": goodUnit})
	opts := testOptions(dir)
	opts.Prefix = "plc"
	opts.NativeDir = ""

	results, err := CompileBatch(context.Background(), []string{paths["good"]}, opts)
	if err != nil {
		t.Fatal(err)
	}
	res := results[0]
	if res.HeaderPath != filepath.Join(opts.HeaderDir, "plc.h") || res.Header.Guard != "PLC_H" {
		t.Fatalf("path=%q guard=%q", res.HeaderPath, res.Header.Guard)
	}
	if res.NativePath != "" {
		t.Fatalf("native module written to %q", res.NativePath)
	}
}

func TestCacheHit(t *testing.T) {
	dir := t.TempDir()
	paths := writeUnits(t, dir, map[string]string{"good": goodUnit})
	opts := testOptions(dir)
	c, err := cache.Open(filepath.Join(dir, ".cache"))
	if err != nil {
		t.Fatal(err)
	}
	opts.Cache = c

	first := CompileFile(context.Background(), paths["good"], opts)
	if first.Failed() || first.Cached {
		t.Fatalf("first build: err=%v cached=%v", first.Err, first.Cached)
	}
	if err := os.Remove(first.HeaderPath); err != nil {
		t.Fatal(err)
	}

	second := CompileFile(context.Background(), paths["good"], opts)
	if second.Failed() || !second.Cached {
		t.Fatalf("second build: err=%v cached=%v", second.Err, second.Cached)
	}
	text, err := os.ReadFile(second.HeaderPath)
	if err != nil {
		t.Fatalf("cached header not rewritten: %v", err)
	}
	if !bytes.Equal(text, first.Header.Text) || second.Native != first.Native {
		t.Fatal("cached artifacts differ from the built ones")
	}

	opts.Dialect = dialect.Compatible
	third := CompileFile(context.Background(), paths["good"], opts)
	if third.Cached {
		t.Fatal("dialect change hit the cache")
	}
}

type failingBridge struct{}

func (failingBridge) SetInitArrayOption(bool) error { return errors.New("no backend") }
func (failingBridge) CreateStringDebugType(string, int64, llvm.StringEncoding) error {
	return nil
}
func (failingBridge) InstallInstrumentationPass(string) error { return nil }

func TestBridgeFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	paths := writeUnits(t, dir, map[string]string{"good": goodUnit})
	opts := testOptions(dir)
	opts.NewBridge = func() llvm.Bridge { return failingBridge{} }

	res := CompileFile(context.Background(), paths["good"], opts)
	var be *llvm.BridgeError
	if !errors.As(res.Err, &be) || !hasCode(res.Bag, diag.NativeBridgeFailure) {
		t.Fatalf("expected bridge failure, got %v", res.Err)
	}
	if _, err := os.Stat(res.HeaderPath); !os.IsNotExist(err) {
		t.Fatal("header written although the native stage failed")
	}
}

func TestLoadFailure(t *testing.T) {
	dir := t.TempDir()
	res := CompileFile(context.Background(), filepath.Join(dir, "missing.toml"), testOptions(dir))
	var le *LoadError
	if !errors.As(res.Err, &le) || !hasCode(res.Bag, diag.ProjModelLoad) {
		t.Fatalf("expected LoadError, got %v", res.Err)
	}
}

func TestCompileBatchCancelled(t *testing.T) {
	dir := t.TempDir()
	paths := writeUnits(t, dir, map[string]string{"good": goodUnit})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CompileBatch(ctx, []string{paths["good"]}, testOptions(dir))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "include", "good.h")); !os.IsNotExist(err) {
		t.Fatal("cancelled batch wrote artifacts")
	}
}

func TestBatchLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	dir := t.TempDir()
	paths := writeUnits(t, dir, map[string]string{"good": goodUnit, "cyclic": cyclicUnit})
	opts := testOptions(dir)
	opts.Prefix = "ignored"
	if _, err := CompileBatch(context.Background(), []string{paths["good"], paths["cyclic"]}, opts); err != nil {
		t.Fatal(err)
	}

	if logs.FilterMessage("header prefix ignored for multi-unit builds").Len() != 1 {
		t.Fatal("prefix warning not logged")
	}
	failed := logs.FilterMessage("unit failed").All()
	if len(failed) != 1 || failed[0].ContextMap()["unit"] != "cyclic" {
		t.Fatalf("unit failure not logged: %v", failed)
	}
	done := logs.FilterMessage("batch compiled").All()
	if len(done) != 1 || done[0].ContextMap()["failed"] != int64(1) {
		t.Fatalf("batch summary not logged: %v", done)
	}
}

func TestFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := project.Default(dir)
	cfg.Dialect = dialect.Compatible
	cfg.CacheDir = filepath.Join(dir, "cache")

	opts, err := FromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Dialect != dialect.Compatible || opts.Cache == nil || opts.Jobs != cfg.Jobs {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if _, err := os.Stat(cfg.CacheDir); err != nil {
		t.Fatalf("cache directory not created: %v", err)
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	paths := writeUnits(t, dir, map[string]string{"good": goodUnit, "cyclic": cyclicUnit})
	results, err := CompileBatch(context.Background(), []string{paths["good"], paths["cyclic"]}, testOptions(dir))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, results); err != nil {
		t.Fatal(err)
	}
	var rep BatchReport
	if err := json.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("invalid report: %v\n%s", err, buf.String())
	}
	if rep.Failed != 1 || len(rep.Units) != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	good, cyclic := rep.Units[0], rep.Units[1]
	if good.Failed || good.Header != results[0].HeaderPath || len(good.Timing.Phases) == 0 {
		t.Fatalf("unexpected good entry: %+v", good)
	}
	if !cyclic.Failed || cyclic.Header != "" || len(cyclic.Diagnostics) == 0 || cyclic.Diagnostics[0].Code != "LAY1001" {
		t.Fatalf("unexpected cyclic entry: %+v", cyclic)
	}
}

func TestNativeWriteFailureRestoresHeader(t *testing.T) {
	dir := t.TempDir()
	paths := writeUnits(t, dir, map[string]string{"good": goodUnit})
	opts := testOptions(dir)
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts.NativeDir = filepath.Join(blocker, "ir")

	res := CompileFile(context.Background(), paths["good"], opts)
	if !res.Failed() || !hasCode(res.Bag, diag.HeaderWrite) {
		t.Fatalf("expected write failure, got %v", res.Err)
	}
	if _, err := os.Stat(res.HeaderPath); !os.IsNotExist(err) {
		t.Fatal("new header left behind without its native module")
	}

	if err := os.MkdirAll(opts.HeaderDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(res.HeaderPath, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	res = CompileFile(context.Background(), paths["good"], opts)
	if !res.Failed() {
		t.Fatal("expected write failure")
	}
	text, err := os.ReadFile(res.HeaderPath)
	if err != nil || string(text) != "old" {
		t.Fatalf("previous header not restored: %q, %v", text, err)
	}
}

func TestBagIsSortedAndDeduplicated(t *testing.T) {
	dir := t.TempDir()
	paths := writeUnits(t, dir, map[string]string{"bad": `
name = "bad"

[[record]]
name = "Z"
[[record.field]]
name = "a"
type = "Missing"
[[record.field]]
name = "a"
type = "Missing"

[[record]]
name = "A"
[[record.field]]
name = "c"
type = "Other"
`})
	res := CompileFile(context.Background(), paths["bad"], testOptions(dir))
	if !res.Failed() {
		t.Fatal("expected failure")
	}
	items := res.Bag.Items()
	var subjects []string
	for _, d := range items {
		subjects = append(subjects, d.Subject)
	}
	if strings.Join(subjects, " ") != "A.c Z Z.a" {
		t.Fatalf("unexpected diagnostics: %v", items)
	}
}
