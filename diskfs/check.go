package diskfs

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/gokrazy/fatdisk/fat"
)

// Problem is an inconsistency found by Check.
type Problem struct {
	Path string
	Desc string
}

func (p Problem) String() string {
	return p.Path + ": " + p.Desc
}

// Check verifies the image without modifying it. An error is returned
// only if the root directory or the FAT cannot be read at all.
func (f *FS) Check() (_ []Problem, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.logResult("check", "/", err) }()

	root, err := f.loadRoot()
	if err != nil {
		return nil, err
	}
	t, err := f.loadTable()
	if err != nil {
		return nil, err
	}

	var problems []Problem
	report := func(path, format string, args ...any) {
		problems = append(problems, Problem{
			Path: path,
			Desc: fmt.Sprintf(format, args...),
		})
	}

	claimed := bitset.New(fat.FATEntries)
	dirNames := make(map[string]bool)
	occupied := 0
	for slot := range root.Dirs {
		sd := &root.Dirs[slot]
		if sd.Free() {
			continue
		}
		occupied++
		dirPath := "/" + sd.Name()
		if dirNames[sd.Name()] {
			report(dirPath, "duplicate directory name")
		}
		dirNames[sd.Name()] = true
		if want := fat.DirBlockOf(slot); sd.StartBlock != want {
			report(dirPath, "stored in block %d, want %d", sd.StartBlock, want)
			continue
		}
		d, err := f.loadDir(sd.StartBlock)
		if err != nil {
			report(dirPath, "%v", err)
			continue
		}
		fileNames := make(map[string]bool)
		for i := 0; i < int(d.Count); i++ {
			e := &d.Files[i]
			filePath := dirPath + "/" + e.FullName()
			if fileNames[e.FullName()] {
				report(filePath, "duplicate file name")
			}
			fileNames[e.FullName()] = true
			chain, err := f.chainOf(t, e)
			if err != nil {
				report(filePath, "%v", err)
			}
			var stored uint64
			for _, idx := range chain {
				if claimed.Test(uint(idx)) {
					report(filePath, "block %d is shared with another file", fat.DataBlockOf(idx))
				}
				claimed.Set(uint(idx))
				blk, err := f.loadBlock(idx)
				if err != nil {
					report(filePath, "%v", err)
					continue
				}
				stored += uint64(len(blk.Data))
			}
			if err == nil && stored < e.Size {
				report(filePath, "size %d exceeds the %d bytes stored", e.Size, stored)
			}
		}
	}
	if occupied != int(root.Count) {
		report("/", "directory count %d, but %d slots in use", root.Count, occupied)
	}
	for i := 0; i < fat.FATEntries; i++ {
		if fat.IsReserved(i) || t.Entry(i) == fat.Free || claimed.Test(uint(i)) {
			continue
		}
		report("/", "block %d allocated but not part of any file", fat.DataBlockOf(i))
	}
	return problems, nil
}
