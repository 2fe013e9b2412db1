// Package pipeline runs the stages of one unit in order (validation, layout,
// virtual tables, enums, header, native module) and writes the artifacts.
// Independent units of a batch are compiled in parallel.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"plcabi/internal/backend/llvm"
	"plcabi/internal/cache"
	"plcabi/internal/diag"
	"plcabi/internal/dialect"
	"plcabi/internal/enums"
	"plcabi/internal/header"
	"plcabi/internal/layout"
	"plcabi/internal/model"
	"plcabi/internal/observ"
	"plcabi/internal/project"
	"plcabi/internal/vtable"
)

// Options selects the dialect, naming and target of a build and where its
// artifacts go.
type Options struct {
	Dialect dialect.Dialect
	Naming  dialect.Naming
	Target  layout.Target

	HeaderDir string
	// NativeDir receives <base>.ll; empty skips the native module file.
	NativeDir string
	Prefix    string

	InitArray       bool
	Instrumentation string
	// NewBridge returns the bridge of one unit. Nil uses llvm.IRBridge and
	// enables the artifact cache.
	NewBridge func() llvm.Bridge

	Jobs           int
	MaxDiagnostics int
	Cache          *cache.DiskCache
}

// FromConfig maps a project configuration to build options, opening the
// artifact cache when one is configured.
func FromConfig(cfg project.Config) (Options, error) {
	opts := Options{
		Dialect:         cfg.Dialect,
		Naming:          cfg.Naming,
		Target:          cfg.Target,
		HeaderDir:       cfg.HeaderDir,
		NativeDir:       cfg.NativeDir,
		Prefix:          cfg.Prefix,
		InitArray:       cfg.InitArray,
		Instrumentation: cfg.Instrumentation,
		Jobs:            cfg.Jobs,
	}
	if cfg.CacheDir != "" {
		c, err := cache.Open(cfg.CacheDir)
		if err != nil {
			return Options{}, &CacheError{Err: err}
		}
		opts.Cache = c
	}
	return opts, nil
}

// Result describes the build of one unit. Bag holds its diagnostics; Err is
// the error that stopped it, if any.
type Result struct {
	Unit       string
	Source     string
	HeaderPath string
	NativePath string
	Header     *header.Artifact
	Native     string
	Cached     bool
	Bag        *diag.Bag
	Timing     observ.Report
	Err        error
}

// Failed reports whether the unit produced no artifacts.
func (r *Result) Failed() bool { return r.Err != nil }

// LoadError reports a unit file that could not be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string   { return fmt.Sprintf("load %s: %v", e.Path, e.Err) }
func (e *LoadError) Unwrap() error   { return e.Err }
func (e *LoadError) Code() diag.Code { return diag.ProjModelLoad }
func (e *LoadError) Subject() string { return e.Path }

// CacheError reports a cache failure. The build continues without the cache.
type CacheError struct {
	Err error
}

func (e *CacheError) Error() string   { return fmt.Sprintf("artifact cache: %v", e.Err) }
func (e *CacheError) Unwrap() error   { return e.Err }
func (e *CacheError) Code() diag.Code { return diag.ProjCacheFailed }
func (e *CacheError) Subject() string { return "cache" }
func (e *CacheError) Warning() bool   { return true }

// CompileFile loads the unit at path and compiles it.
func CompileFile(ctx context.Context, path string, opts Options) *Result {
	u, err := model.LoadFile(path)
	if err != nil {
		res := &Result{Source: path, Bag: diag.NewBag(opts.MaxDiagnostics)}
		res.fail(&LoadError{Path: path, Err: err})
		return res
	}
	return CompileUnit(ctx, u, opts)
}

// CompileUnit resolves u and writes its header and native module. A unit
// that fails any stage writes nothing.
func CompileUnit(ctx context.Context, u *model.Unit, opts Options) *Result {
	res := &Result{Unit: u.Name, Source: u.File, Bag: diag.NewBag(opts.MaxDiagnostics)}
	log := Logger().With(zap.String("unit", u.Name))
	timer := observ.NewTimer()
	defer func() {
		res.Bag.Dedup()
		res.Bag.Sort()
		res.Timing = timer.Report()
		fields := append(timer.Fields(), zap.Bool("cached", res.Cached), zap.Int("diagnostics", res.Bag.Len()))
		if res.Err != nil {
			log.Warn("unit failed", append(fields, zap.Error(res.Err),
				zap.String("report", diag.FormatShort(res.Bag.Items(), false)))...)
			return
		}
		log.Debug("unit compiled", fields...)
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	base := opts.Prefix
	if base == "" {
		base = u.Name
	}
	headerName := base + ".h"
	res.HeaderPath = filepath.Join(opts.HeaderDir, headerName)
	if opts.NativeDir != "" {
		res.NativePath = filepath.Join(opts.NativeDir, base+".ll")
	}

	var key project.Digest
	useCache := opts.Cache != nil && opts.NewBridge == nil
	if useCache {
		idx := timer.Begin("cache")
		encoded, err := model.Encode(u)
		if err != nil {
			res.warn(&CacheError{Err: err})
			useCache = false
		} else {
			key = cache.Key(encoded, optionKey(opts, headerName)...)
			var p cache.Payload
			hit, err := opts.Cache.Get(key, &p)
			if err != nil {
				res.warn(&CacheError{Err: err})
			}
			if hit {
				res.Cached = true
				res.Header = &header.Artifact{Name: p.HeaderName, Guard: p.Guard, Text: p.Header}
				res.Native = p.Native
				for _, w := range p.Warnings {
					res.Bag.Add(diag.NewWarning(diag.HeaderPathEncoding, headerName, w))
				}
			}
		}
		timer.End(idx, "")
	}

	if !res.Cached {
		if !res.build(u, opts, headerName, timer) {
			return res
		}
	}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	idx := timer.Begin("write")
	err := res.write()
	timer.End(idx, "")
	if err != nil {
		res.fail(err)
		return res
	}

	if useCache && !res.Cached {
		p := &cache.Payload{
			Unit:       u.Name,
			HeaderName: res.Header.Name,
			Guard:      res.Header.Guard,
			Header:     res.Header.Text,
			Native:     res.Native,
		}
		for _, w := range res.Header.Warnings {
			p.Warnings = append(p.Warnings, w.Error())
		}
		if err := opts.Cache.Put(key, p); err != nil {
			res.warn(&CacheError{Err: err})
		}
	}
	return res
}

// build runs every stage. It returns false when a stage failed; the
// failure is recorded in res.
func (res *Result) build(u *model.Unit, opts Options, headerName string, timer *observ.Timer) bool {
	idx := timer.Begin("validate")
	err := u.Validate()
	timer.End(idx, "")
	if err != nil {
		res.fail(err)
		return false
	}

	idx = timer.Begin("layout")
	resolution, err := layout.Resolve(u, opts.Target)
	timer.End(idx, strconv.Itoa(len(u.Records))+" records")
	if err != nil {
		res.fail(err)
		return false
	}

	idx = timer.Begin("vtable")
	tables, err := vtable.Build(resolution, opts.Naming)
	timer.End(idx, "")
	if err != nil {
		res.fail(err)
		return false
	}

	idx = timer.Begin("enums")
	values, err := enums.Assign(u.Enums, opts.Dialect)
	timer.End(idx, "")
	if err != nil {
		res.fail(err)
		return false
	}

	idx = timer.Begin("header")
	art, err := header.Emit(
		header.Input{Unit: u, Layout: resolution, VTables: tables, Enums: values},
		header.Options{Dialect: opts.Dialect, Naming: opts.Naming, Name: headerName},
	)
	timer.End(idx, "")
	if err != nil {
		res.fail(err)
		return false
	}
	for _, w := range art.Warnings {
		res.warn(w)
	}
	res.Header = art

	idx = timer.Begin("native")
	var bridge llvm.Bridge
	if opts.NewBridge != nil {
		bridge = opts.NewBridge()
	}
	native, err := llvm.EmitModule(
		llvm.Input{Unit: u, Layout: resolution, VTables: tables},
		llvm.Options{
			Naming:                opts.Naming,
			Bridge:                bridge,
			InitArray:             opts.InitArray,
			InstrumentationOutput: opts.Instrumentation,
		},
	)
	timer.End(idx, "")
	if err != nil {
		res.fail(err)
		return false
	}
	res.Native = native
	return true
}

// write replaces the artifacts of the unit. The header goes first; when the
// native module cannot be written the previous header is restored, or the
// new one removed, so the two files always come from the same build.
func (res *Result) write() error {
	prev, err := os.ReadFile(res.HeaderPath)
	existed := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &header.WriteError{Path: res.HeaderPath, Err: err}
	}
	if err := header.WriteAtomic(res.HeaderPath, res.Header.Text); err != nil {
		return err
	}
	if res.NativePath == "" {
		return nil
	}
	err = header.WriteAtomic(res.NativePath, []byte(res.Native))
	if err == nil {
		return nil
	}
	var undo error
	if existed {
		undo = header.WriteAtomic(res.HeaderPath, prev)
	} else if rmErr := os.Remove(res.HeaderPath); rmErr != nil {
		undo = &header.WriteError{Path: res.HeaderPath, Err: rmErr}
	}
	if undo != nil {
		return errors.Join(err, undo)
	}
	return err
}

func (res *Result) fail(err error) {
	res.Err = err
	diag.ReportError(diag.BagReporter{Bag: res.Bag}, err)
}

func (res *Result) warn(err error) {
	diag.ReportError(diag.BagReporter{Bag: res.Bag}, err)
}

func optionKey(opts Options, headerName string) []string {
	return []string{
		opts.Dialect.String(),
		strconv.Itoa(int(opts.Naming)),
		opts.Target.Triple,
		headerName,
		strconv.FormatBool(opts.InitArray),
		opts.Instrumentation,
	}
}
