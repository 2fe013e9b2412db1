package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"plcabi/internal/diag"
	"plcabi/internal/dialect"
	"plcabi/internal/layout"
)

// Config is the validated content of a plcabi.toml.
type Config struct {
	// Root is the directory containing the manifest; relative paths below
	// are resolved against it.
	Root string

	Dialect   dialect.Dialect
	Naming    dialect.Naming
	HeaderDir string
	// Prefix replaces the unit stem as header base name. It only applies
	// to single-unit builds.
	Prefix string

	Target          layout.Target
	NativeDir       string
	InitArray       bool
	Instrumentation string

	Units    []string
	Jobs     int
	CacheDir string // empty disables the artifact cache
}

// ConfigError reports an invalid manifest entry.
type ConfigError struct {
	Path string
	Key  string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error   { return e.Err }
func (e *ConfigError) Code() diag.Code { return diag.ProjConfig }
func (e *ConfigError) Subject() string { return e.Path }

type manifest struct {
	Header struct {
		Dialect string `toml:"dialect"`
		Naming  string `toml:"naming"`
		Output  string `toml:"output"`
		Prefix  string `toml:"prefix"`
	} `toml:"header"`
	Codegen struct {
		Target          string `toml:"target"`
		Output          string `toml:"output"`
		InitArray       bool   `toml:"init_array"`
		Instrumentation string `toml:"instrumentation"`
	} `toml:"codegen"`
	Build struct {
		Units []string `toml:"units"`
		Jobs  int      `toml:"jobs"`
		Cache string   `toml:"cache"`
	} `toml:"build"`
}

// Default returns the configuration used when no manifest exists.
func Default(root string) Config {
	return Config{
		Root:      root,
		Dialect:   dialect.Strict,
		Naming:    dialect.NamingV1,
		HeaderDir: root,
		Target:    layout.X86_64LinuxGNU(),
		NativeDir: root,
		InitArray: true,
		Jobs:      runtime.GOMAXPROCS(0),
	}
}

// LoadConfig parses the manifest at path. Keys that are not set keep their
// defaults; unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	var doc manifest
	meta, err := toml.DecodeFile(path, &doc)
	if err != nil {
		return Config{}, &ConfigError{Path: path, Err: fmt.Errorf("failed to parse TOML: %w", err)}
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, &ConfigError{Path: path, Err: fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))}
	}

	root := filepath.Dir(path)
	cfg := Default(root)
	var errs []error
	fail := func(key string, err error) {
		errs = append(errs, &ConfigError{Path: path, Key: key, Err: err})
	}

	if meta.IsDefined("header", "dialect") {
		if cfg.Dialect, err = dialect.Parse(doc.Header.Dialect); err != nil {
			fail("header.dialect", err)
		}
	}
	if meta.IsDefined("header", "naming") {
		if cfg.Naming, err = dialect.ParseNaming(doc.Header.Naming); err != nil {
			fail("header.naming", err)
		}
	}
	if meta.IsDefined("header", "output") {
		cfg.HeaderDir = resolvePath(root, doc.Header.Output)
	}
	cfg.Prefix = strings.TrimSpace(doc.Header.Prefix)

	if meta.IsDefined("codegen", "target") {
		if cfg.Target, err = layout.ParseTarget(doc.Codegen.Target); err != nil {
			fail("codegen.target", err)
		}
	}
	if meta.IsDefined("codegen", "output") {
		cfg.NativeDir = resolvePath(root, doc.Codegen.Output)
	}
	if meta.IsDefined("codegen", "init_array") {
		cfg.InitArray = doc.Codegen.InitArray
	}
	if p := strings.TrimSpace(doc.Codegen.Instrumentation); p != "" {
		cfg.Instrumentation = resolvePath(root, p)
	}

	for _, u := range doc.Build.Units {
		cfg.Units = append(cfg.Units, resolvePath(root, u))
	}
	if meta.IsDefined("build", "jobs") {
		if doc.Build.Jobs < 1 {
			fail("build.jobs", fmt.Errorf("must be at least 1, got %d", doc.Build.Jobs))
		} else {
			cfg.Jobs = doc.Build.Jobs
		}
	}
	if c := strings.TrimSpace(doc.Build.Cache); c != "" {
		cfg.CacheDir = resolvePath(root, c)
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Discover loads the manifest found from startDir upwards, or the default
// configuration rooted at startDir when there is none.
func Discover(startDir string) (Config, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		abs, err := filepath.Abs(startDir)
		if err != nil {
			return Config{}, err
		}
		return Default(abs), nil
	}
	return LoadConfig(path)
}

// UnitFiles expands the unit patterns of the configuration, sorted and
// without duplicates.
func (c Config) UnitFiles() ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range c.Units {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, &ConfigError{Path: filepath.Join(c.Root, ManifestName), Key: "build.units", Err: err}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	slices.Sort(out)
	return out, nil
}

func resolvePath(root, p string) string {
	p = filepath.FromSlash(strings.TrimSpace(p))
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
