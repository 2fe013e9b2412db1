package llvm

import "testing"

func TestIRBridgeTrailer(t *testing.T) {
	b := NewIRBridge()
	if got := b.trailer(); got != "" {
		t.Fatalf("fresh bridge renders %q", got)
	}
	if err := b.CreateStringDebugType("WSTRING[10]", 11, UTF16); err != nil {
		t.Fatal(err)
	}
	if err := b.InstallInstrumentationPass("cov.profraw"); err != nil {
		t.Fatal(err)
	}
	want := "; pass: instrprof (profile output \"cov.profraw\")\n" +
		"!plc.string.types = !{!0}\n" +
		"!0 = !DIStringType(name: \"WSTRING[10]\", size: 176, encoding: DW_ATE_UCS)\n"
	if got := b.trailer(); got != want {
		t.Fatalf("trailer:\n%s\nwant:\n%s", got, want)
	}
}

func TestIRBridgeRejectsBadRequests(t *testing.T) {
	b := NewIRBridge()
	if err := b.CreateStringDebugType("STRING[0]", 0, UTF8); err == nil {
		t.Fatal("zero length accepted")
	}
	if err := b.CreateStringDebugType("STRING[4]", 5, StringEncoding(9)); err == nil {
		t.Fatal("unknown encoding accepted")
	}
	if err := b.InstallInstrumentationPass(""); err == nil {
		t.Fatal("empty output accepted")
	}
}
