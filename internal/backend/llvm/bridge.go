package llvm

import (
	"fmt"
	"strings"

	"plcabi/internal/diag"
)

// StringEncoding is the character encoding of a sized string type.
type StringEncoding uint8

const (
	UTF8 StringEncoding = iota + 1
	UTF16
)

func (e StringEncoding) String() string {
	switch e {
	case UTF8:
		return "UTF8"
	case UTF16:
		return "UTF16"
	default:
		return fmt.Sprintf("StringEncoding(%d)", uint8(e))
	}
}

// dwarfEncoding is the DW_ATE attribute debuggers use to tell the encodings
// apart independently of the string length.
func (e StringEncoding) dwarfEncoding() string {
	if e == UTF16 {
		return "DW_ATE_UCS"
	}
	return "DW_ATE_UTF"
}

// unitBits is the size of one code unit.
func (e StringEncoding) unitBits() int64 {
	if e == UTF16 {
		return 16
	}
	return 8
}

// Bridge is the native code generation service the emitter talks to.
// Every call may fail; a failure aborts the module being emitted.
type Bridge interface {
	SetInitArrayOption(enabled bool) error
	// CreateStringDebugType registers the debug type of a string holding
	// length code units, terminator included.
	CreateStringDebugType(name string, length int64, enc StringEncoding) error
	InstallInstrumentationPass(output string) error
}

// BridgeError wraps a failed Bridge call.
type BridgeError struct {
	Op  string
	Err error
}

func (e *BridgeError) Error() string   { return fmt.Sprintf("native bridge: %s: %v", e.Op, e.Err) }
func (e *BridgeError) Unwrap() error   { return e.Err }
func (e *BridgeError) Code() diag.Code { return diag.NativeBridgeFailure }
func (e *BridgeError) Subject() string { return e.Op }

// trailer is implemented by bridges that contribute text to the module.
type trailer interface {
	trailer() string
}

type stringDebugType struct {
	name   string
	length int64
	enc    StringEncoding
}

// IRBridge records bridge requests as part of the textual module: a module
// flag for the init-array option, DIStringType metadata for string debug
// types and a comment naming the instrumentation pass.
type IRBridge struct {
	initArray  *bool
	strings    []stringDebugType
	passOutput string
}

func NewIRBridge() *IRBridge { return &IRBridge{} }

func (b *IRBridge) SetInitArrayOption(enabled bool) error {
	b.initArray = &enabled
	return nil
}

func (b *IRBridge) CreateStringDebugType(name string, length int64, enc StringEncoding) error {
	if length <= 0 {
		return fmt.Errorf("string type %s: length %d must be positive", name, length)
	}
	if enc != UTF8 && enc != UTF16 {
		return fmt.Errorf("string type %s: unknown encoding %s", name, enc)
	}
	b.strings = append(b.strings, stringDebugType{name: name, length: length, enc: enc})
	return nil
}

func (b *IRBridge) InstallInstrumentationPass(output string) error {
	if output == "" {
		return fmt.Errorf("instrumentation pass needs an output path")
	}
	b.passOutput = output
	return nil
}

func (b *IRBridge) trailer() string {
	var nodes strings.Builder
	next := 0
	var flags, types []string
	if b.initArray != nil {
		v := 0
		if *b.initArray {
			v = 1
		}
		fmt.Fprintf(&nodes, "!%d = !{i32 1, !\"plc.use-init-array\", i32 %d}\n", next, v)
		flags = append(flags, fmt.Sprintf("!%d", next))
		next++
	}
	for _, s := range b.strings {
		fmt.Fprintf(&nodes, "!%d = !DIStringType(name: %q, size: %d, encoding: %s)\n",
			next, s.name, s.length*s.enc.unitBits(), s.enc.dwarfEncoding())
		types = append(types, fmt.Sprintf("!%d", next))
		next++
	}

	var out strings.Builder
	if b.passOutput != "" {
		fmt.Fprintf(&out, "; pass: instrprof (profile output %q)\n", b.passOutput)
	}
	if len(flags) > 0 {
		fmt.Fprintf(&out, "!llvm.module.flags = !{%s}\n", strings.Join(flags, ", "))
	}
	if len(types) > 0 {
		fmt.Fprintf(&out, "!plc.string.types = !{%s}\n", strings.Join(types, ", "))
	}
	out.WriteString(nodes.String())
	return out.String()
}
