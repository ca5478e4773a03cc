package progress

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestLine(t *testing.T) {
	p := &Reporter{Counter: &Counter{}}
	p.SetStatus("export")
	p.SetTotal(4 << 20)
	got := p.line(2<<20, 3<<20)
	want := "\r[export] 50.00% of 4 MiB, at 3 MiB/s"
	if !strings.HasPrefix(got, want) {
		t.Fatalf("line = %q, want prefix %q", got, want)
	}
}

func TestReport(t *testing.T) {
	var out bytes.Buffer
	c := &Counter{}
	p := &Reporter{Counter: c, Out: &out}
	p.SetStatus("copy")
	if _, err := io.Copy(c, strings.NewReader("hello")); err != nil {
		t.Fatal(err)
	}
	if got := c.Load(); got != 5 {
		t.Fatalf("Load() = %d, want 5", got)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Report(ctx, time.Hour)
	if got := out.String(); !strings.HasSuffix(got, "\n") || !strings.Contains(got, "[copy]") {
		t.Fatalf("final report = %q", got)
	}
}
