package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gokrazy/fatdisk/archive"
	"github.com/gokrazy/fatdisk/diskfs"
	"github.com/gokrazy/fatdisk/fat"
	"github.com/google/go-cmp/cmp"
)

type harness struct {
	t     *testing.T
	image string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("HOME", tmp)
	h := &harness{t: t, image: filepath.Join(tmp, "disk.img")}
	h.mustRun("format", "--blocks", "1024")
	return h
}

func (h *harness) run(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	err := run(append([]string{"-i", h.image}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("fatdisk %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func (h *harness) localFile(name string, content []byte) string {
	h.t.Helper()
	fn := filepath.Join(h.t.TempDir(), name)
	if err := os.WriteFile(fn, content, 0644); err != nil {
		h.t.Fatal(err)
	}
	return fn
}

func TestCommands(t *testing.T) {
	h := newHarness(t)
	content := bytes.Repeat([]byte("fatdisk "), 1000)

	h.mustRun("mkdir", "/docs", "/music")
	h.mustRun("put", h.localFile("a.txt", content), "/docs/a.txt")
	h.mustRun("put", h.localFile("b.txt", []byte("hello")), "/docs/b.txt")

	if got := h.mustRun("cat", "/docs/a.txt"); got != string(content) {
		t.Fatalf("cat returned %d bytes, want %d", len(got), len(content))
	}
	if diff := cmp.Diff("docs/\nmusic/\n", h.mustRun("ls")); diff != "" {
		t.Fatalf("ls /: diff (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("a.txt\nb.txt\n", h.mustRun("ls", "/docs")); diff != "" {
		t.Fatalf("ls /docs: diff (-want +got):\n%s", diff)
	}
	if got := h.mustRun("ls", "-l", "/docs/b.txt"); !strings.Contains(got, " 5 /docs/b.txt") {
		t.Fatalf("ls -l /docs/b.txt = %q", got)
	}
	if got := h.mustRun("stat", "/docs/a.txt"); !strings.Contains(got, "Size: 8000") {
		t.Fatalf("stat = %q", got)
	}

	// overwrite part of b.txt in place
	h.mustRun("put", "--offset", "1", h.localFile("patch", []byte("EL")), "/docs/b.txt")
	if got, want := h.mustRun("cat", "/docs/b.txt"), "hELlo"; got != want {
		t.Fatalf("cat after patch = %q, want %q", got, want)
	}

	if got := h.mustRun("fsck"); !strings.Contains(got, "clean") {
		t.Fatalf("fsck = %q", got)
	}
	if got := h.mustRun("df"); !strings.Contains(got, "files:       2") {
		t.Fatalf("df = %q", got)
	}

	if _, err := h.run("rmdir", "/docs"); !errors.Is(err, diskfs.ErrNotEmpty) {
		t.Fatalf("rmdir of non-empty directory = %v, want %v", err, diskfs.ErrNotEmpty)
	}
	h.mustRun("rm", "/docs/a.txt", "/docs/b.txt")
	h.mustRun("rmdir", "/docs")
	if diff := cmp.Diff("music/\n", h.mustRun("ls")); diff != "" {
		t.Fatalf("ls / after rmdir: diff (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	h := newHarness(t)
	for _, args := range [][]string{
		{},
		{"frobnicate"},
		{"format"}, // image exists
		{"cat"},
		{"cat", "/nodir/a.txt"},
		{"mkdir", "/a/b"},
		{"put", "only-one-arg"},
		{"export", "--codec", "gzip", "out"},
		{"--write_mode", "sideways", "ls"},
		{"--log_level", "chatty", "ls"},
	} {
		if _, err := h.run(args...); err == nil {
			t.Errorf("fatdisk %s unexpectedly succeeded", strings.Join(args, " "))
		}
	}
}

func TestArgCountErrors(t *testing.T) {
	h := newHarness(t)
	for _, tt := range []struct {
		args []string
		want string
	}{
		{[]string{"cat"}, "cat requires exactly one path argument"},
		{[]string{"stat", "/a", "/b"}, "stat requires exactly one path argument"},
		{[]string{"export"}, "export requires exactly one archive argument"},
		{[]string{"import"}, "import requires exactly one archive argument"},
		{[]string{"mount"}, "mount requires exactly one mount point argument"},
	} {
		_, err := h.run(tt.args...)
		if err == nil {
			t.Errorf("fatdisk %s unexpectedly succeeded", strings.Join(tt.args, " "))
			continue
		}
		if got := err.Error(); !strings.Contains(got, tt.want) {
			t.Errorf("fatdisk %s: error %q does not contain %q", strings.Join(tt.args, " "), got, tt.want)
		}
	}
}

func TestLegacyWriteMode(t *testing.T) {
	h := newHarness(t)
	h.mustRun("mkdir", "/d")
	h.mustRun("put", h.localFile("f", []byte("0123456789")), "/d/f.txt")
	h.mustRun("--write_mode", "legacy", "put", "--offset", "4", h.localFile("g", []byte("xy")), "/d/f.txt")
	// legacy writes below the end restart the file
	if got, want := h.mustRun("cat", "/d/f.txt"), "xy"; got != want {
		t.Fatalf("cat = %q, want %q", got, want)
	}
}

func TestExportImport(t *testing.T) {
	for _, codec := range []string{"zstd", "lz4"} {
		t.Run(codec, func(t *testing.T) {
			h := newHarness(t)
			h.mustRun("mkdir", "/d")
			h.mustRun("put", h.localFile("f", []byte("exported")), "/d/f.txt")
			arch := filepath.Join(t.TempDir(), "disk.fdz")
			h.mustRun("export", "--codec", codec, arch)

			want, err := os.ReadFile(h.image)
			if err != nil {
				t.Fatal(err)
			}
			restored := &harness{t: t, image: filepath.Join(t.TempDir(), "restored.img")}
			restored.mustRun("import", arch)
			got, err := os.ReadFile(restored.image)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("imported image differs from the exported one")
			}
			if got, want := restored.mustRun("cat", "/d/f.txt"), "exported"; got != want {
				t.Fatalf("cat = %q, want %q", got, want)
			}
		})
	}
}

func TestImportChecksum(t *testing.T) {
	h := newHarness(t)
	arch := filepath.Join(t.TempDir(), "disk.fdz")
	h.mustRun("export", arch)
	b, err := os.ReadFile(arch)
	if err != nil {
		t.Fatal(err)
	}
	b[24] ^= 0xff // first digest byte
	if err := os.WriteFile(arch, b, 0644); err != nil {
		t.Fatal(err)
	}
	restored := &harness{t: t, image: filepath.Join(t.TempDir(), "restored.img")}
	_, err = restored.run("import", arch)
	var cerr *archive.ChecksumError
	if !errors.As(err, &cerr) {
		t.Fatalf("import = %v, want a *archive.ChecksumError", err)
	}
	if _, err := os.Stat(restored.image); !os.IsNotExist(err) {
		t.Fatalf("image created despite checksum mismatch: %v", err)
	}
}

func TestFormatSize(t *testing.T) {
	h := newHarness(t)
	st, err := os.Stat(h.image)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := st.Size(), int64(1024*fat.BlockSize); got != want {
		t.Fatalf("image size = %d, want %d", got, want)
	}
	if _, err := h.run("format", "--force", "--blocks", "10"); err == nil {
		t.Fatal("format with too few blocks unexpectedly succeeded")
	}
}
