package layout

import (
	"fmt"
	"strings"
)

// Target describes the ABI target triple and its pointer properties.
type Target struct {
	Triple     string // e.g. "x86_64-linux-gnu"
	DataLayout string // LLVM datalayout string
	PtrSize    int    // bytes
	PtrAlign   int    // bytes
	MaxAlign   int    // cap on scalar alignment; 0 means natural alignment
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:     "x86_64-linux-gnu",
		DataLayout: "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-i128:128-f80:128-n8:16:32:64-S128",
		PtrSize:    8,
		PtrAlign:   8,
	}
}

func AArch64LinuxGNU() Target {
	return Target{
		Triple:     "aarch64-linux-gnu",
		DataLayout: "e-m:e-i8:8:32-i16:16:32-i64:64-i128:128-n32:64-S128",
		PtrSize:    8,
		PtrAlign:   8,
	}
}

// I686LinuxGNU is the 32-bit SysV target: 4-byte pointers and 64-bit
// scalars aligned to 4.
func I686LinuxGNU() Target {
	return Target{
		Triple:     "i686-linux-gnu",
		DataLayout: "e-m:e-p:32:32-p270:32:32-p271:32:32-p272:64:64-i128:128-f64:32:64-f80:32-n8:16:32-S128",
		PtrSize:    4,
		PtrAlign:   4,
		MaxAlign:   4,
	}
}

// ParseTarget maps a triple to a known Target. An empty triple selects
// x86_64-linux-gnu.
func ParseTarget(triple string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(triple)) {
	case "", "x86_64-linux-gnu", "x86_64-unknown-linux-gnu":
		return X86_64LinuxGNU(), nil
	case "aarch64-linux-gnu", "aarch64-unknown-linux-gnu":
		return AArch64LinuxGNU(), nil
	case "i686-linux-gnu", "i686-unknown-linux-gnu":
		return I686LinuxGNU(), nil
	default:
		return Target{}, fmt.Errorf("unsupported target %q", triple)
	}
}
