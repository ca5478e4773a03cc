package fat

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Subdir is one slot of the root directory.
type Subdir struct {
	RawName    [MaxName + 1]byte
	StartBlock int64 // 0 marks a free slot
}

func (s *Subdir) Name() string { return cString(s.RawName[:]) }

func (s *Subdir) Free() bool { return s.StartBlock == 0 }

// RootDir is the record stored in block 0.
type RootDir struct {
	Count int32
	Dirs  [RootCapacity]Subdir
	_     [rootPadding]byte
}

// FileEntry is one slot of a directory.
type FileEntry struct {
	RawName    [MaxName + 1]byte
	RawExt     [MaxExt + 1]byte
	Size       uint64
	StartBlock int64
}

func (e *FileEntry) Name() string { return cString(e.RawName[:]) }

func (e *FileEntry) Ext() string { return cString(e.RawExt[:]) }

// FullName returns the name as presented to users, e.g. “a.txt”.
func (e *FileEntry) FullName() string { return e.Name() + "." + e.Ext() }

// Dir is the record of one subdirectory, stored in block 1+slot.
type Dir struct {
	Count int32
	Files [DirCapacity]FileEntry
	_     [dirPadding]byte
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i > -1 {
		b = b[:i]
	}
	return string(b)
}

// setCString stores s NUL-terminated in dst, truncating if necessary.
func setCString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst[:len(dst)-1], s)
}

func decode(b []byte, v interface{}) error {
	if len(b) != BlockSize {
		return fmt.Errorf("%w: record is %d bytes, want %d", ErrCorrupt, len(b), BlockSize)
	}
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, v)
}

func encode(v interface{}) []byte {
	var buf bytes.Buffer
	buf.Grow(BlockSize)
	// bytes.Buffer writes never fail
	binary.Write(&buf, binary.LittleEndian, v)
	return buf.Bytes()
}

// DecodeRootDir parses block 0.
func DecodeRootDir(b []byte) (*RootDir, error) {
	var r RootDir
	if err := decode(b, &r); err != nil {
		return nil, err
	}
	if r.Count < 0 || r.Count > RootCapacity {
		return nil, fmt.Errorf("%w: root directory count %d", ErrCorrupt, r.Count)
	}
	return &r, nil
}

func (r *RootDir) Encode() []byte { return encode(r) }

// Find returns the slot of the directory called name, or -1. All slots
// are scanned, so holes left by removed directories are skipped.
func (r *RootDir) Find(name string) int {
	for i := range r.Dirs {
		if !r.Dirs[i].Free() && r.Dirs[i].Name() == name {
			return i
		}
	}
	return -1
}

// FreeSlot returns the first slot whose start block is 0, or -1.
func (r *RootDir) FreeSlot() int {
	for i := range r.Dirs {
		if r.Dirs[i].Free() {
			return i
		}
	}
	return -1
}

// Add stores name in slot, which also determines the directory block.
func (r *RootDir) Add(slot int, name string) {
	setCString(r.Dirs[slot].RawName[:], name)
	r.Dirs[slot].StartBlock = DirBlockOf(slot)
	r.Count++
}

// Remove frees slot.
func (r *RootDir) Remove(slot int) {
	r.Dirs[slot] = Subdir{}
	r.Count--
}

// Names returns the directory names in slot order.
func (r *RootDir) Names() []string {
	var names []string
	for i := range r.Dirs {
		if !r.Dirs[i].Free() {
			names = append(names, r.Dirs[i].Name())
		}
	}
	return names
}

// DirBlockOf returns the block holding the directory in root slot.
func DirBlockOf(slot int) int64 {
	return int64(1 + slot)
}

// DecodeDir parses a directory block.
func DecodeDir(b []byte) (*Dir, error) {
	var d Dir
	if err := decode(b, &d); err != nil {
		return nil, err
	}
	if d.Count < 0 || d.Count > DirCapacity {
		return nil, fmt.Errorf("%w: directory count %d", ErrCorrupt, d.Count)
	}
	return &d, nil
}

func (d *Dir) Encode() []byte { return encode(d) }

// Find returns the slot of the file name.ext, or -1.
func (d *Dir) Find(name, ext string) int {
	for i := 0; i < int(d.Count); i++ {
		if d.Files[i].Name() == name && d.Files[i].Ext() == ext {
			return i
		}
	}
	return -1
}

// Full reports whether no further file can be added.
func (d *Dir) Full() bool { return d.Count >= DirCapacity }

// Add appends an empty file starting at startBlock and returns its slot.
func (d *Dir) Add(name, ext string, startBlock int64) int {
	slot := int(d.Count)
	e := &d.Files[slot]
	*e = FileEntry{StartBlock: startBlock}
	setCString(e.RawName[:], name)
	setCString(e.RawExt[:], ext)
	d.Count++
	return slot
}

// Remove deletes slot, keeping the remaining entries contiguous and in
// order.
func (d *Dir) Remove(slot int) {
	n := int(d.Count)
	copy(d.Files[slot:n], d.Files[slot+1:n])
	d.Files[n-1] = FileEntry{}
	d.Count--
}

// Names returns “name.ext” for every file in slot order.
func (d *Dir) Names() []string {
	names := make([]string, 0, d.Count)
	for i := 0; i < int(d.Count); i++ {
		names = append(names, d.Files[i].FullName())
	}
	return names
}
