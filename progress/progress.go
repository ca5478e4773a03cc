// Package progress reports the throughput of long-running copies, such
// as exporting an image.
package progress

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gokrazy/fatdisk/humanize"
)

// Counter is an io.Writer counting the bytes written to it.
type Counter struct {
	n atomic.Uint64
}

func (c *Counter) Write(p []byte) (n int, err error) {
	c.n.Add(uint64(len(p)))
	return len(p), nil
}

func (c *Counter) Load() uint64 { return c.n.Load() }

type Reporter struct {
	Counter *Counter
	Out     io.Writer

	total atomic.Uint64

	mu     sync.Mutex
	status string
}

func (p *Reporter) SetStatus(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

func (p *Reporter) SetTotal(total uint64) {
	p.total.Store(total)
}

func (p *Reporter) getStatus() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Reporter) line(transferred, bytesPerS uint64) string {
	rate := humanize.BPS(bytesPerS)
	status := rate
	if total := p.total.Load(); total > 0 {
		pct := float64(transferred) / float64(total) * 100
		status = fmt.Sprintf("%02.2f%% of %s, at %s",
			pct,
			humanize.Bytes(total),
			rate)
	}
	return fmt.Sprintf("\r[%s] %s                 ", p.getStatus(), status)
}

// Report prints a status line every interval until ctx is canceled.
func (p *Reporter) Report(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := p.Counter.Load()
	for {
		select {
		case <-ticker.C:
			transferred := p.Counter.Load()
			bytesPerS := uint64(float64(transferred-last) / interval.Seconds())
			last = transferred
			fmt.Fprint(p.Out, p.line(transferred, bytesPerS))
		case <-ctx.Done():
			fmt.Fprint(p.Out, p.line(p.Counter.Load(), 0)+"\n")
			return
		}
	}
}
