package fat

import (
	"encoding/binary"
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Table is the file allocation table: one int16 per data block, holding
// Free, EndOfChain or the FAT index of the next block of the chain.
type Table struct {
	entries [FATEntries]int16

	// used has a bit set for every non-Free entry, so that the first free
	// entry can be found without scanning the entries one by one.
	used *bitset.BitSet
}

// NewTable returns the table of a freshly formatted image.
func NewTable() *Table {
	t := &Table{used: bitset.New(FATEntries)}
	for i := 0; i < reservedEntries; i++ {
		t.Set(i, EndOfChain)
	}
	return t
}

// DecodeTable parses the FAT block b.
func DecodeTable(b []byte) (*Table, error) {
	if len(b) < FATEntries*2 {
		return nil, fmt.Errorf("%w: FAT block is %d bytes", ErrCorrupt, len(b))
	}
	t := &Table{used: bitset.New(FATEntries)}
	for i := range t.entries {
		t.Set(i, int16(binary.LittleEndian.Uint16(b[2*i:])))
	}
	return t, nil
}

// Encode returns the FAT block.
func (t *Table) Encode() []byte {
	b := make([]byte, BlockSize)
	for i, e := range t.entries {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(e))
	}
	return b
}

// Clone returns a deep copy, used to plan allocations without touching t.
func (t *Table) Clone() *Table {
	return &Table{
		entries: t.entries,
		used:    t.used.Clone(),
	}
}

func (t *Table) Entry(i int) int16 {
	return t.entries[i]
}

func (t *Table) Set(i int, v int16) {
	t.entries[i] = v
	t.used.SetTo(uint(i), v != Free)
}

// Link makes to the successor of from.
func (t *Table) Link(from, to int) {
	t.Set(from, int16(to))
}

// FindFree returns the lowest free index, skipping reserved entries.
func (t *Table) FindFree() (int, bool) {
	i, ok := t.used.NextClear(reservedEntries)
	if !ok || i >= FATEntries {
		return 0, false
	}
	return int(i), true
}

// Alloc claims the lowest free entry and marks it as the end of a chain.
func (t *Table) Alloc() (int, error) {
	i, ok := t.FindFree()
	if !ok {
		return 0, ErrTableFull
	}
	t.Set(i, EndOfChain)
	return i, nil
}

// FreeCount returns the number of entries Alloc can still hand out.
func (t *Table) FreeCount() int {
	free := FATEntries - int(t.used.Count())
	for i := 0; i < reservedEntries; i++ {
		if t.entries[i] == Free {
			free--
		}
	}
	return free
}

// Chain returns the FAT indexes of the chain starting at start, in
// order. The chain must end in EndOfChain without visiting a free entry
// or any index twice.
func (t *Table) Chain(start int) ([]int, error) {
	var (
		chain []int
		seen  = bitset.New(FATEntries)
		cur   = start
	)
	for {
		if cur < 0 || cur >= FATEntries {
			return chain, fmt.Errorf("%w: index %d out of range", ErrBrokenChain, cur)
		}
		if seen.Test(uint(cur)) {
			return chain, fmt.Errorf("%w: cycle at index %d", ErrBrokenChain, cur)
		}
		seen.Set(uint(cur))
		next := t.entries[cur]
		if next == Free {
			return chain, fmt.Errorf("%w: index %d is free", ErrBrokenChain, cur)
		}
		chain = append(chain, cur)
		if next == EndOfChain {
			return chain, nil
		}
		cur = int(next)
	}
}

// FreeChain releases every entry of the chain starting at start. A
// broken chain is released up to the point where it breaks. Reserved
// entries are left alone.
func (t *Table) FreeChain(start int) {
	chain, _ := t.Chain(start)
	for _, i := range chain {
		if !IsReserved(i) {
			t.Set(i, Free)
		}
	}
}
