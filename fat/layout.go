package fat

import "errors"

const (
	BlockSize = 512

	MaxName = 8
	MaxExt  = 3

	// rootEntrySize is the packed size of one root directory slot: a
	// NUL-terminated name and the int64 block number of the directory.
	rootEntrySize = (MaxName + 1) + 8

	// fileEntrySize is the packed size of one directory slot: name,
	// extension (both NUL-terminated), uint64 size and int64 start block.
	fileEntrySize = (MaxName + 1) + (MaxExt + 1) + 8 + 8

	// countSize is the int32 entry count heading both directory records.
	countSize = 4

	RootCapacity = (BlockSize - countSize) / rootEntrySize
	DirCapacity  = (BlockSize - countSize) / fileEntrySize

	rootPadding = BlockSize - countSize - RootCapacity*rootEntrySize
	dirPadding  = BlockSize - countSize - DirCapacity*fileEntrySize

	// FileBlockBase is the absolute block number of the data block
	// belonging to FAT index 0. Blocks 1..RootCapacity hold directories.
	FileBlockBase = 1 + RootCapacity

	// blockHeaderSize bytes at the start of every data block are reserved
	// for the block header; the rest is payload.
	blockHeaderSize = 8
	PayloadSize     = BlockSize - blockHeaderSize

	// FATEntries is the number of int16 entries in the single FAT block,
	// which bounds the number of data blocks in the file system.
	FATEntries = BlockSize / 2

	// reservedEntries at the start of the FAT are never allocated: the
	// value 0 means “free”, so no chain could ever link to index 0.
	reservedEntries = 1

	// DefaultBlocks is the size of a freshly formatted image (5 MiB).
	DefaultBlocks = 10240

	// MinBlocks is the smallest image in which the FAT block does not
	// overlap the data area.
	MinBlocks = FileBlockBase + FATEntries + 1
)

const (
	// Free marks an unused FAT entry.
	Free = int16(0)

	// EndOfChain marks the last block of a file in the FAT.
	EndOfChain = int16(-1)
)

var (
	ErrCorrupt     = errors.New("corrupt record")
	ErrTableFull   = errors.New("file allocation table full")
	ErrBrokenChain = errors.New("broken block chain")
)

// TableBlock returns the absolute block number holding the FAT in an
// image of the given number of blocks.
func TableBlock(blocks int64) int64 {
	return blocks - 1
}

// DataBlockOf returns the absolute block number backing FAT index i.
func DataBlockOf(i int) int64 {
	return int64(FileBlockBase + i)
}

// IsReserved reports whether FAT index i is never handed out by Alloc.
func IsReserved(i int) bool {
	return i < reservedEntries
}

// IndexOf converts the start block stored in a directory entry into a
// FAT index. ok is false if the block lies outside the data area.
func IndexOf(startBlock int64) (i int, ok bool) {
	i = int(startBlock - FileBlockBase)
	if startBlock < FileBlockBase || i >= FATEntries {
		return 0, false
	}
	return i, true
}
