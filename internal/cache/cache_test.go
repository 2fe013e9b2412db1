package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"plcabi/internal/project"
)

func TestPutGet(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	key := Key([]byte("unit"), "strict", "v1")
	var out Payload
	if ok, err := c.Get(key, &out); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	in := &Payload{Unit: "shapes", HeaderName: "shapes.h", Guard: "SHAPES_H", Header: []byte("#ifndef SHAPES_H\n"), Native: "; ModuleID = 'shapes'\n"}
	if err := c.Put(key, in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	ok, err := c.Get(key, &out)
	if !ok || err != nil {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if out.Guard != "SHAPES_H" || string(out.Header) != string(in.Header) || out.Native != in.Native {
		t.Fatalf("payload changed: %+v", out)
	}

	entries, err := os.ReadDir(filepath.Join(c.dir, "units"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v %v", entries, err)
	}
}

func TestKeyDependsOnEveryPart(t *testing.T) {
	base := Key([]byte("unit"), "strict", "v1")
	for _, other := range []project.Digest{
		Key([]byte("unit2"), "strict", "v1"),
		Key([]byte("unit"), "compatible", "v1"),
		Key([]byte("unit"), "v1", "strict"),
		Key([]byte("unit"), "strict"),
	} {
		if other == base {
			t.Fatal("different inputs share a key")
		}
	}
	if Key([]byte("unit"), "strict", "v1") != base {
		t.Fatal("key is not deterministic")
	}
}

func TestOtherSchemaIsMiss(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := Key([]byte("unit"))
	data, err := msgpack.Marshal(&Payload{Schema: schemaVersion + 1, Unit: "old"})
	if err != nil {
		t.Fatal(err)
	}
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	var out Payload
	if ok, err := c.Get(key, &out); ok || err != nil {
		t.Fatalf("stale schema: ok=%v err=%v", ok, err)
	}
}

func TestDropAll(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	key := Key([]byte("unit"))
	if err := c.Put(key, &Payload{Unit: "u"}); err != nil {
		t.Fatal(err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	var out Payload
	if ok, _ := c.Get(key, &out); ok {
		t.Fatal("entry survived DropAll")
	}
	if err := c.Put(key, &Payload{Unit: "u"}); err != nil {
		t.Fatalf("Put after DropAll: %v", err)
	}
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *DiskCache
	if err := c.Put(Key(nil), &Payload{}); err != nil {
		t.Fatal(err)
	}
	var out Payload
	if ok, err := c.Get(Key(nil), &out); ok || err != nil {
		t.Fatalf("nil cache: ok=%v err=%v", ok, err)
	}
}
