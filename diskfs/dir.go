package diskfs

import (
	"fmt"
	"io/fs"

	"github.com/gokrazy/fatdisk/fat"
	"github.com/gokrazy/fatdisk/fspath"
)

// Attr describes a path.
type Attr struct {
	Mode  fs.FileMode
	Nlink uint32
	Size  int64
}

func (a Attr) IsDir() bool { return a.Mode.IsDir() }

var (
	dirAttr = Attr{Mode: fs.ModeDir | 0755, Nlink: 2}
)

// Getattr returns the attributes of path.
func (f *FS) Getattr(path string) (_ Attr, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.logResult("getattr", path, err) }()

	p := fspath.Classify(path)
	switch p.Kind {
	case fspath.Root:
		return dirAttr, nil
	case fspath.Dir:
		root, err := f.loadRoot()
		if err != nil {
			return Attr{}, err
		}
		if root.Find(p.Dir) < 0 {
			return Attr{}, fmt.Errorf("%s: %w", p, ErrNotFound)
		}
		return dirAttr, nil
	case fspath.File:
		_, d, slot, err := f.findFile(p)
		if err != nil {
			return Attr{}, err
		}
		return Attr{
			Mode:  0666,
			Nlink: 1,
			Size:  int64(d.Files[slot].Size),
		}, nil
	default:
		return Attr{}, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
}

// Readdir returns the names in the directory path: subdirectory names
// for the root and name.ext for a directory.
func (f *FS) Readdir(path string) (_ []string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.logResult("readdir", path, err) }()

	p := fspath.Classify(path)
	switch p.Kind {
	case fspath.Root:
		root, err := f.loadRoot()
		if err != nil {
			return nil, err
		}
		return root.Names(), nil
	case fspath.Dir:
		_, d, err := f.findDir(p.Dir)
		if err != nil {
			return nil, err
		}
		return d.Names(), nil
	default:
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
}

// Mkdir creates the directory path in the root directory.
func (f *FS) Mkdir(path string) (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.logResult("mkdir", path, err) }()

	p := fspath.Classify(path)
	switch p.Kind {
	case fspath.Root:
		return fmt.Errorf("%s: %w", p, ErrExist)
	case fspath.Sub, fspath.File:
		return fmt.Errorf("%s: only one level of directories: %w", p, ErrPermission)
	}
	if err := checkNames(p); err != nil {
		return err
	}
	if err := f.writable(); err != nil {
		return err
	}

	root, err := f.loadRoot()
	if err != nil {
		return err
	}
	if root.Find(p.Dir) > -1 {
		return fmt.Errorf("%s: %w", p, ErrExist)
	}
	slot := root.FreeSlot()
	if slot < 0 {
		return fmt.Errorf("%s: root directory full: %w", p, ErrNoSpace)
	}
	root.Add(slot, p.Dir)
	if err := f.saveDir(root.Dirs[slot].StartBlock, &fat.Dir{}); err != nil {
		return err
	}
	return f.saveRoot(root)
}

// Rmdir removes the empty directory path and frees its root slot.
func (f *FS) Rmdir(path string) (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.logResult("rmdir", path, err) }()

	p := fspath.Classify(path)
	switch p.Kind {
	case fspath.Root:
		return fmt.Errorf("%s: %w", p, ErrPermission)
	case fspath.Sub, fspath.File:
		return fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if err := f.writable(); err != nil {
		return err
	}

	root, err := f.loadRoot()
	if err != nil {
		return err
	}
	slot := root.Find(p.Dir)
	if slot < 0 {
		return fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	block := root.Dirs[slot].StartBlock
	d, err := f.loadDir(block)
	if err != nil {
		return err
	}
	if d.Count > 0 {
		return fmt.Errorf("%s: %w", p, ErrNotEmpty)
	}
	root.Remove(slot)
	if err := f.saveRoot(root); err != nil {
		return err
	}
	return f.saveDir(block, &fat.Dir{})
}

// Mknod creates the empty file path. Its chain consists of a single
// block.
func (f *FS) Mknod(path string) (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.logResult("mknod", path, err) }()

	p := fspath.Classify(path)
	if err := checkNames(p); err != nil {
		return err
	}
	if p.Kind != fspath.File {
		return fmt.Errorf("%s: files need a directory, name and extension: %w", p, ErrPermission)
	}
	if err := f.writable(); err != nil {
		return err
	}

	dirBlock, d, err := f.findDir(p.Dir)
	if err != nil {
		return err
	}
	if d.Find(p.Name, p.Ext) > -1 {
		return fmt.Errorf("%s: %w", p, ErrExist)
	}
	if d.Full() {
		return fmt.Errorf("%s: directory full: %w", p, ErrNoSpace)
	}
	t, err := f.loadTable()
	if err != nil {
		return err
	}
	idx, err := t.Alloc()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", p, ErrNoSpace, err)
	}
	// the block may hold data of a removed file
	if err := f.saveBlock(idx, fat.DataBlock{}); err != nil {
		return err
	}
	if err := f.saveTable(t); err != nil {
		return err
	}
	d.Add(p.Name, p.Ext, fat.DataBlockOf(idx))
	return f.saveDir(dirBlock, d)
}

// Unlink removes the file path and frees its blocks.
func (f *FS) Unlink(path string) (err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() { f.logResult("unlink", path, err) }()

	p := fspath.Classify(path)
	switch p.Kind {
	case fspath.Root, fspath.Dir:
		return fmt.Errorf("%s: %w", p, ErrIsDir)
	case fspath.Sub:
		return fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if err := f.writable(); err != nil {
		return err
	}

	dirBlock, d, slot, err := f.findFile(p)
	if err != nil {
		return err
	}
	t, err := f.loadTable()
	if err != nil {
		return err
	}
	start := d.Files[slot].StartBlock
	d.Remove(slot)
	// Drop the reference before freeing, so that an interrupted unlink
	// leaks blocks rather than leaving a file pointing at free ones.
	if err := f.saveDir(dirBlock, d); err != nil {
		return err
	}
	if idx, ok := fat.IndexOf(start); ok {
		t.FreeChain(idx)
	}
	return f.saveTable(t)
}

// Open always succeeds; there is no per-file state.
func (f *FS) Open(path string) error {
	f.logResult("open", path, nil)
	return nil
}

// Flush syncs the image. It always succeeds.
func (f *FS) Flush(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.store.Sync(); err != nil {
		f.log.Warn("sync failed", "path", path, "error", err)
	}
	f.logResult("flush", path, nil)
	return nil
}

// Truncate always succeeds and does not change the file size.
func (f *FS) Truncate(path string, size int64) error {
	f.log.Debug("truncate", "path", path, "size", size)
	return nil
}
