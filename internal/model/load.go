package model

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vmihailenco/msgpack/v5"
)

// unitDoc is the TOML form of a unit. Types are written in the text form
// accepted by ParseTypeRef.
type unitDoc struct {
	Name      string        `toml:"name"`
	Aliases   []aliasDoc    `toml:"alias"`
	Enums     []enumDoc     `toml:"enum"`
	Records   []recordDoc   `toml:"record"`
	Globals   []globalDoc   `toml:"global"`
	Callables []callableDoc `toml:"function"`
}

type aliasDoc struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

type enumDoc struct {
	Name    string      `toml:"name"`
	Width   int         `toml:"width"`
	Members []memberDoc `toml:"member"`
}

type memberDoc struct {
	Name  string `toml:"name"`
	Value *int64 `toml:"value"`
}

type recordDoc struct {
	Name        string      `toml:"name"`
	Kind        string      `toml:"kind"`
	Parent      string      `toml:"parent"`
	Polymorphic bool        `toml:"polymorphic"`
	Constructor bool        `toml:"constructor"`
	Fields      []fieldDoc  `toml:"field"`
	Methods     []methodDoc `toml:"method"`
}

type fieldDoc struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	Default any    `toml:"default"`
}

type methodDoc struct {
	Name     string     `toml:"name"`
	Override bool       `toml:"override"`
	Return   string     `toml:"return"`
	Variadic bool       `toml:"variadic"`
	Params   []paramDoc `toml:"param"`
}

type paramDoc struct {
	Name  string `toml:"name"`
	Type  string `toml:"type"`
	ByRef bool   `toml:"by_ref"`
}

type globalDoc struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

type callableDoc struct {
	Name     string     `toml:"name"`
	Return   string     `toml:"return"`
	Variadic bool       `toml:"variadic"`
	Params   []paramDoc `toml:"param"`
}

// LoadFile reads a unit from path. ".toml" files are fixtures written by
// hand; ".mp" files are MessagePack produced by Encode.
func LoadFile(path string) (*Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var u *Unit
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		u, err = ParseTOML(string(data))
	case ".mp", ".msgpack":
		u, err = Decode(data)
	default:
		return nil, fmt.Errorf("%s: unsupported model format", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if u.File == "" {
		u.File = path
	}
	if u.Name == "" {
		u.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return u, nil
}

// ParseTOML decodes a unit from its TOML text form.
func ParseTOML(src string) (*Unit, error) {
	var doc unitDoc
	meta, err := toml.Decode(src, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return doc.unit()
}

func (d *unitDoc) unit() (*Unit, error) {
	u := &Unit{Name: d.Name}
	for _, a := range d.Aliases {
		t, err := ParseTypeRef(a.Type)
		if err != nil {
			return nil, fmt.Errorf("alias %s: %w", a.Name, err)
		}
		u.Aliases = append(u.Aliases, &AliasType{Name: a.Name, Type: t})
	}
	for _, e := range d.Enums {
		en := &EnumType{Name: e.Name, Width: e.Width}
		for _, m := range e.Members {
			en.Members = append(en.Members, EnumMember{Name: m.Name, Value: m.Value})
		}
		u.Enums = append(u.Enums, en)
	}
	for _, r := range d.Records {
		kind, err := ParseRecordKind(r.Kind)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.Name, err)
		}
		rec := &RecordType{
			Name:           r.Name,
			Kind:           kind,
			Parent:         r.Parent,
			IsPolymorphic:  r.Polymorphic,
			HasConstructor: r.Constructor,
		}
		for _, f := range r.Fields {
			t, err := ParseTypeRef(f.Type)
			if err != nil {
				return nil, fmt.Errorf("record %s.%s: %w", r.Name, f.Name, err)
			}
			lit, err := literalOf(f.Default)
			if err != nil {
				return nil, fmt.Errorf("record %s.%s: %w", r.Name, f.Name, err)
			}
			rec.Fields = append(rec.Fields, Field{Name: f.Name, Type: t, Default: lit})
		}
		for _, m := range r.Methods {
			sig, err := signatureOf(m.Params, m.Return, m.Variadic)
			if err != nil {
				return nil, fmt.Errorf("method %s.%s: %w", r.Name, m.Name, err)
			}
			rec.Methods = append(rec.Methods, Method{Name: m.Name, Signature: sig, IsOverride: m.Override})
		}
		u.Records = append(u.Records, rec)
	}
	for _, g := range d.Globals {
		t, err := ParseTypeRef(g.Type)
		if err != nil {
			return nil, fmt.Errorf("global %s: %w", g.Name, err)
		}
		u.Globals = append(u.Globals, &GlobalVariable{Name: g.Name, Type: t})
	}
	for _, c := range d.Callables {
		sig, err := signatureOf(c.Params, c.Return, c.Variadic)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", c.Name, err)
		}
		u.Callables = append(u.Callables, &CallableSignature{Name: c.Name, Signature: sig})
	}
	return u, nil
}

func signatureOf(params []paramDoc, ret string, variadic bool) (Signature, error) {
	sig := Signature{Variadic: variadic}
	for _, p := range params {
		t, err := ParseTypeRef(p.Type)
		if err != nil {
			return Signature{}, fmt.Errorf("param %s: %w", p.Name, err)
		}
		sig.Params = append(sig.Params, Param{Name: p.Name, Type: t, ByRef: p.ByRef})
	}
	if strings.TrimSpace(ret) != "" {
		t, err := ParseTypeRef(ret)
		if err != nil {
			return Signature{}, fmt.Errorf("return: %w", err)
		}
		sig.Return = &t
	}
	return sig, nil
}

func literalOf(v any) (*Literal, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return IntLit(x), nil
	case float64:
		return FloatLit(x), nil
	case bool:
		return BoolLit(x), nil
	default:
		return nil, fmt.Errorf("unsupported default value %v", v)
	}
}

// Encode writes u in the MessagePack interchange form.
func Encode(u *Unit) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(u); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a unit written by Encode.
func Decode(data []byte) (*Unit, error) {
	var u Unit
	if err := msgpack.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	return &u, nil
}
