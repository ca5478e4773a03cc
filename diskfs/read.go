package diskfs

import (
	"fmt"

	"github.com/gokrazy/fatdisk/fat"
	"github.com/gokrazy/fatdisk/fspath"
)

// Read returns up to size bytes of the file path starting at off.
// Reading at the end of the file returns no data.
func (f *FS) Read(path string, size int, off int64) (_ []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.logResult("read", path, err) }()

	p := fspath.Classify(path)
	switch p.Kind {
	case fspath.Root, fspath.Dir:
		return nil, fmt.Errorf("%s: %w", p, ErrIsDir)
	case fspath.Sub:
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	_, d, slot, err := f.findFile(p)
	if err != nil {
		return nil, err
	}
	e := d.Files[slot]
	if off < 0 || uint64(off) > e.Size {
		return nil, fmt.Errorf("%s: offset %d, size %d: %w", p, off, e.Size, ErrInvalidOffset)
	}
	b, err := f.readFile(&e, off)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	if size >= 0 && len(b) > size {
		b = b[:size]
	}
	return b, nil
}

// readFile returns the content of e from off up to its recorded size.
// Offsets are resolved using the used length of each block, so chains
// with partially filled blocks in the middle read back correctly.
func (f *FS) readFile(e *fat.FileEntry, off int64) ([]byte, error) {
	want := int64(e.Size) - off
	if want <= 0 {
		return nil, nil
	}
	t, err := f.loadTable()
	if err != nil {
		return nil, err
	}
	chain, err := f.chainOf(t, e)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, want)
	skip := off
	for _, idx := range chain {
		blk, err := f.loadBlock(idx)
		if err != nil {
			return nil, err
		}
		if skip >= int64(len(blk.Data)) {
			skip -= int64(len(blk.Data))
			continue
		}
		out = append(out, blk.Data[skip:]...)
		skip = 0
		if int64(len(out)) >= want {
			return out[:want], nil
		}
	}
	f.log.Warn("file shorter than its recorded size",
		"file", e.FullName(),
		"size", e.Size,
		"stored", off+int64(len(out)))
	return out, nil
}

// chainOf returns the FAT indexes holding the data of e. A broken chain
// is returned up to the point where it breaks, along with the error.
func (f *FS) chainOf(t *fat.Table, e *fat.FileEntry) ([]int, error) {
	start, ok := fat.IndexOf(e.StartBlock)
	if !ok {
		return nil, ioErr(fmt.Errorf("%w: %s starts at block %d", fat.ErrCorrupt, e.FullName(), e.StartBlock))
	}
	chain, err := t.Chain(start)
	if err != nil {
		return chain, ioErr(fmt.Errorf("%s: %w", e.FullName(), err))
	}
	return chain, nil
}
