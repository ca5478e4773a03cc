package fspath

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassify(t *testing.T) {
	for _, tt := range []struct {
		path string
		want Path
	}{
		{"/", Path{Kind: Root}},
		{"", Path{Kind: Root}},
		{"docs", Path{Kind: Root}},
		{"//a.txt", Path{Kind: Root}},
		{"/docs", Path{Dir: "docs", Kind: Dir}},
		{"/docs/", Path{Dir: "docs", Kind: Dir}},
		{"/docs/a", Path{Dir: "docs", Name: "a", Kind: Sub}},
		{"/docs/a.", Path{Dir: "docs", Name: "a", Kind: Sub}},
		{"/docs/.txt", Path{Dir: "docs", Kind: Dir}},
		{"/docs/a.txt", Path{Dir: "docs", Name: "a", Ext: "txt", Kind: File}},
		{"/docs/archive.tar.gz", Path{Dir: "docs", Name: "archive", Ext: "tar.gz", Kind: File}},
		{"/docs/a.txt trailing", Path{Dir: "docs", Name: "a", Ext: "txt", Kind: File}},
		{"/verylongdir/verylongname.long", Path{Dir: "verylongdir", Name: "verylongname", Ext: "long", Kind: File}},
		{"/a/b/c.txt", Path{Dir: "a", Name: "b/c", Ext: "txt", Kind: File}},
	} {
		t.Run(tt.path, func(t *testing.T) {
			got := Classify(tt.path)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Classify(%q): diff (-want +got):\n%s", tt.path, diff)
			}
		})
	}
}

func TestString(t *testing.T) {
	for _, path := range []string{"/", "/docs", "/docs/a", "/docs/a.txt"} {
		if got := Classify(path).String(); got != path {
			t.Errorf("Classify(%q).String() = %q", path, got)
		}
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{
		Root:    "root",
		Dir:     "directory",
		Sub:     "subdirectory",
		File:    "file",
		Kind(9): "unknown",
	} {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}
