package fat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecordSizes(t *testing.T) {
	if got := binary.Size(RootDir{}); got != BlockSize {
		t.Errorf("binary.Size(RootDir{}) = %d, want %d", got, BlockSize)
	}
	if got := binary.Size(Dir{}); got != BlockSize {
		t.Errorf("binary.Size(Dir{}) = %d, want %d", got, BlockSize)
	}
}

func TestRootDir(t *testing.T) {
	var r RootDir
	for _, name := range []string{"docs", "src", "music"} {
		r.Add(r.FreeSlot(), name)
	}
	r.Remove(r.Find("src"))

	b := r.Encode()
	if len(b) != BlockSize {
		t.Fatalf("len(Encode()) = %d, want %d", len(b), BlockSize)
	}
	// packed layout: count, then name[9] + start block per slot
	if got := binary.LittleEndian.Uint32(b[0:4]); got != 2 {
		t.Fatalf("encoded count = %d, want 2", got)
	}
	if got := string(b[4:8]); got != "docs" {
		t.Fatalf("first slot name = %q, want %q", got, "docs")
	}
	if got := int64(binary.LittleEndian.Uint64(b[4+9:])); got != 1 {
		t.Fatalf("first slot start block = %d, want 1", got)
	}

	decoded, err := DecodeRootDir(b)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"docs", "music"}, decoded.Names()); diff != "" {
		t.Fatalf("unexpected names: diff (-want +got):\n%s", diff)
	}
	if got := decoded.Find("music"); got != 2 {
		t.Fatalf(`Find("music") = %d, want 2`, got)
	}
	if got := decoded.Find("src"); got != -1 {
		t.Fatalf(`Find("src") = %d, want -1`, got)
	}
	// the hole left by src is reused first
	if got := decoded.FreeSlot(); got != 1 {
		t.Fatalf("FreeSlot() = %d, want 1", got)
	}
	if got, want := decoded.Dirs[2].StartBlock, DirBlockOf(2); got != want {
		t.Fatalf("music start block = %d, want %d", got, want)
	}
}

func TestRootDirFull(t *testing.T) {
	var r RootDir
	for i := 0; i < RootCapacity; i++ {
		r.Add(r.FreeSlot(), "d")
	}
	if got := r.FreeSlot(); got != -1 {
		t.Fatalf("FreeSlot() on full root = %d, want -1", got)
	}
}

func TestDir(t *testing.T) {
	var d Dir
	d.Add("a", "txt", DataBlockOf(1))
	d.Add("b", "c", DataBlockOf(2))
	d.Add("longname", "ext", DataBlockOf(3))
	d.Files[1].Size = 4711

	decoded, err := DecodeDir(d.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a.txt", "b.c", "longname.ext"}, decoded.Names()); diff != "" {
		t.Fatalf("unexpected names: diff (-want +got):\n%s", diff)
	}
	if got := decoded.Find("b", "c"); got != 1 {
		t.Fatalf(`Find("b", "c") = %d, want 1`, got)
	}
	if got := decoded.Files[1].Size; got != 4711 {
		t.Fatalf("Size = %d, want 4711", got)
	}
	if got := decoded.Find("b", "txt"); got != -1 {
		t.Fatalf(`Find("b", "txt") = %d, want -1`, got)
	}

	decoded.Remove(0)
	if diff := cmp.Diff([]string{"b.c", "longname.ext"}, decoded.Names()); diff != "" {
		t.Fatalf("unexpected names after Remove: diff (-want +got):\n%s", diff)
	}
	if got, want := decoded.Files[0].StartBlock, DataBlockOf(2); got != want {
		t.Fatalf("start block after Remove = %d, want %d", got, want)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	b := make([]byte, BlockSize)
	binary.LittleEndian.PutUint32(b, RootCapacity+1)
	if _, err := DecodeRootDir(b); !errors.Is(err, ErrCorrupt) {
		t.Errorf("DecodeRootDir(count too large) = %v, want %v", err, ErrCorrupt)
	}
	if _, err := DecodeDir(b); !errors.Is(err, ErrCorrupt) {
		t.Errorf("DecodeDir(count too large) = %v, want %v", err, ErrCorrupt)
	}
	if _, err := DecodeDir(b[:100]); !errors.Is(err, ErrCorrupt) {
		t.Errorf("DecodeDir(short) = %v, want %v", err, ErrCorrupt)
	}
}

func TestDataBlock(t *testing.T) {
	for _, tt := range []struct {
		desc string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("hello")},
		{"binary with NUL", []byte{1, 0, 2, 0, 0, 3}},
		{"full", bytes.Repeat([]byte{0xAB}, PayloadSize)},
	} {
		t.Run(tt.desc, func(t *testing.T) {
			got := DecodeDataBlock(DataBlock{Data: tt.data}.Encode())
			if diff := cmp.Diff(tt.data, got.Data, cmp.Comparer(bytes.Equal)); diff != "" {
				t.Fatalf("unexpected data: diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDataBlockWithoutHeader(t *testing.T) {
	b := make([]byte, BlockSize)
	copy(b[blockHeaderSize:], "nameserver 8.8.8.8\x00garbage")
	got := DecodeDataBlock(b)
	if string(got.Data) != "nameserver 8.8.8.8" {
		t.Fatalf("DecodeDataBlock = %q, want %q", got.Data, "nameserver 8.8.8.8")
	}
}
