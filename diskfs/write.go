package diskfs

import (
	"errors"
	"fmt"

	"github.com/gokrazy/fatdisk/fat"
	"github.com/gokrazy/fatdisk/fspath"
)

// Write stores data in the file path at off, growing the file as
// needed. off may be at most the current size of the file.
func (f *FS) Write(path string, data []byte, off int64) (_ int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.logResult("write", path, err) }()

	p := fspath.Classify(path)
	switch p.Kind {
	case fspath.Root, fspath.Dir:
		return 0, fmt.Errorf("%s: %w", p, ErrIsDir)
	case fspath.Sub:
		return 0, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if err := f.writable(); err != nil {
		return 0, err
	}
	dirBlock, d, slot, err := f.findFile(p)
	if err != nil {
		return 0, err
	}
	e := &d.Files[slot]
	if off < 0 {
		return 0, fmt.Errorf("%s: offset %d: %w", p, off, ErrInvalidOffset)
	}
	if uint64(off) > e.Size {
		return 0, fmt.Errorf("%s: offset %d, size %d: %w", p, off, e.Size, ErrOffsetTooLarge)
	}
	if len(data) == 0 {
		return 0, nil
	}

	t, err := f.loadTable()
	if err != nil {
		return 0, err
	}
	chain, err := f.chainOf(t, e)
	if err != nil {
		return 0, err
	}
	u := &update{
		t:      t,
		blocks: make(map[int]fat.DataBlock),
	}
	var size uint64
	if f.legacyWrites {
		size, err = f.writeLegacy(u, chain, e.Size, data, off)
	} else {
		size, err = f.writeInPlace(u, chain, e.Size, data, off)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", p, err)
	}
	e.Size = size
	if err := f.commit(u, dirBlock, d); err != nil {
		return 0, err
	}
	return len(data), nil
}

// update collects the blocks and FAT entries a write changes, so that
// nothing reaches the image unless the whole write can be satisfied.
type update struct {
	t      *fat.Table
	blocks map[int]fat.DataBlock
	order  []int
}

func (u *update) put(idx int, data []byte) {
	if _, ok := u.blocks[idx]; !ok {
		u.order = append(u.order, idx)
	}
	u.blocks[idx] = fat.DataBlock{Data: data}
}

// alloc appends a new block to the chain ending at tail.
func (u *update) alloc(tail int) (int, error) {
	idx, err := u.t.Alloc()
	if err != nil {
		if errors.Is(err, fat.ErrTableFull) {
			return 0, fmt.Errorf("%w: %w", ErrNoSpace, err)
		}
		return 0, err
	}
	u.t.Link(tail, idx)
	return idx, nil
}

// appendBlocks stores data in newly allocated blocks following tail.
func (u *update) appendBlocks(tail int, data []byte) error {
	for len(data) > 0 {
		idx, err := u.alloc(tail)
		if err != nil {
			return err
		}
		n := min(len(data), fat.PayloadSize)
		u.put(idx, append([]byte(nil), data[:n]...))
		data = data[n:]
		tail = idx
	}
	return nil
}

// commit writes data blocks first, then the FAT, then the directory, so
// that a failure part-way leaves at most unreferenced blocks behind.
func (f *FS) commit(u *update, dirBlock int64, d *fat.Dir) error {
	for _, idx := range u.order {
		if err := f.saveBlock(idx, u.blocks[idx]); err != nil {
			return err
		}
	}
	if err := f.saveTable(u.t); err != nil {
		return err
	}
	return f.saveDir(dirBlock, d)
}

// writeInPlace overwrites the file content at off. Blocks keep their
// used length except for the last one, which fills up to PayloadSize
// before further blocks are appended.
func (f *FS) writeInPlace(u *update, chain []int, size uint64, data []byte, off int64) (uint64, error) {
	newSize := max(size, uint64(off)+uint64(len(data)))
	rest := data
	var start int64 // file offset of the current block
	for ci, idx := range chain {
		if len(rest) == 0 {
			break
		}
		blk, err := f.loadBlock(idx)
		if err != nil {
			return 0, err
		}
		used := int64(len(blk.Data))
		limit := used
		if ci == len(chain)-1 {
			limit = fat.PayloadSize
		}
		if off >= start+limit {
			start += used
			continue
		}
		i := int(off - start)
		n := min(len(rest), int(limit)-i)
		buf := blk.Data
		if len(buf) < i+n {
			buf = append(buf, make([]byte, i+n-len(buf))...)
		}
		copy(buf[i:], rest[:n])
		u.put(idx, buf)
		rest = rest[n:]
		off += int64(n)
		start += used
	}
	if err := u.appendBlocks(chain[len(chain)-1], rest); err != nil {
		return 0, err
	}
	return newSize, nil
}

// writeLegacy implements block-granular writes. Appending (off equal
// to the size) always starts a new block after the end of the chain.
// Any other write frees every block after the first and stores data
// from the first block on, leaving a file of len(data) bytes.
func (f *FS) writeLegacy(u *update, chain []int, size uint64, data []byte, off int64) (uint64, error) {
	if uint64(off) == size {
		if err := u.appendBlocks(chain[len(chain)-1], data); err != nil {
			return 0, err
		}
		return size + uint64(len(data)), nil
	}

	first := chain[0]
	for _, idx := range chain[1:] {
		u.t.Set(idx, fat.Free)
	}
	u.t.Set(first, fat.EndOfChain)
	n := min(len(data), fat.PayloadSize)
	u.put(first, append([]byte(nil), data[:n]...))
	if err := u.appendBlocks(first, data[n:]); err != nil {
		return 0, err
	}
	return uint64(len(data)), nil
}
