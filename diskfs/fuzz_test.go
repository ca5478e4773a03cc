package diskfs

import (
	"bytes"
	"testing"
)

func FuzzWrite(f *testing.F) {
	f.Add([]byte("hello"), uint16(0), []byte("J"), false)
	f.Add(bytes.Repeat([]byte{0}, 600), uint16(503), []byte("across the block boundary"), false)
	f.Add(bytes.Repeat([]byte("x"), 1200), uint16(10), []byte("rewrite"), true)
	f.Add([]byte{}, uint16(0), bytes.Repeat([]byte("y"), 1100), true)
	f.Fuzz(func(t *testing.T, first []byte, off uint16, second []byte, legacy bool) {
		if len(first) > 8192 || len(second) > 8192 {
			t.Skip()
		}
		fsys, _ := newMemFS(t, Options{LegacyWrites: legacy})
		if err := fsys.Mkdir("/d"); err != nil {
			t.Fatal(err)
		}
		mustCreate(t, fsys, "/d/f.bin")
		mustWrite(t, fsys, "/d/f.bin", first, 0)

		at := int64(off) % int64(len(first)+1)
		mustWrite(t, fsys, "/d/f.bin", second, at)

		want := append([]byte(nil), first...)
		switch {
		case len(second) == 0:
		case legacy && at < int64(len(first)):
			want = append([]byte(nil), second...)
		default:
			if end := int(at) + len(second); end > len(want) {
				want = append(want, make([]byte, end-len(want))...)
			}
			copy(want[at:], second)
		}
		if got := mustRead(t, fsys, "/d/f.bin"); !bytes.Equal(got, want) {
			t.Fatalf("read back %d bytes, want %d bytes", len(got), len(want))
		}
		problems, err := fsys.Check()
		if err != nil {
			t.Fatal(err)
		}
		if len(problems) > 0 {
			t.Fatalf("Check: %v", problems)
		}
	})
}
