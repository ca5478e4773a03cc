package fat

import (
	"bytes"
	"testing"
)

func TestFormat(t *testing.T) {
	for _, blocks := range []int{MinBlocks, DefaultBlocks} {
		var buf bytes.Buffer
		if err := Format(&buf, blocks); err != nil {
			t.Fatal(err)
		}
		img := buf.Bytes()
		if got, want := len(img), blocks*BlockSize; got != want {
			t.Fatalf("image size = %d, want %d", got, want)
		}

		root, err := DecodeRootDir(img[:BlockSize])
		if err != nil {
			t.Fatal(err)
		}
		if root.Count != 0 || root.FreeSlot() != 0 {
			t.Fatalf("root not empty: count %d, first free slot %d", root.Count, root.FreeSlot())
		}

		off := int(TableBlock(int64(blocks))) * BlockSize
		tbl, err := DecodeTable(img[off : off+BlockSize])
		if err != nil {
			t.Fatal(err)
		}
		if got, want := tbl.FreeCount(), FATEntries-reservedEntries; got != want {
			t.Fatalf("FreeCount() = %d, want %d", got, want)
		}
	}
}

func TestFormatTooSmall(t *testing.T) {
	if err := Format(&bytes.Buffer{}, MinBlocks-1); err == nil {
		t.Fatalf("Format(%d blocks) unexpectedly succeeded", MinBlocks-1)
	}
}

func TestPaddingWriter(t *testing.T) {
	var buf bytes.Buffer
	pw := &paddingWriter{w: &buf}
	if _, err := pw.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	for _, offset := range []int{
		BlockSize,
		BlockSize,         // already there: no-op
		100*BlockSize + 3, // spans several zero chunks, unaligned end
	} {
		if err := pw.fillTo(offset); err != nil {
			t.Fatal(err)
		}
		if got := buf.Len(); got != offset {
			t.Fatalf("fillTo(%d): length = %d", offset, got)
		}
	}
	if got, want := buf.Bytes()[:5], []byte("hello"); !bytes.Equal(got, want) {
		t.Fatalf("prefix = %q, want %q", got, want)
	}
	if bytes.ContainsFunc(buf.Bytes()[5:], func(r rune) bool { return r != 0 }) {
		t.Fatalf("padding contains non-zero bytes")
	}
}
