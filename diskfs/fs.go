// Package diskfs implements the fatdisk file system calls on top of a
// block store: directory management, the FAT-chain read and write
// engines, and a consistency checker.
//
// An FS owns its store for its whole lifetime. Calls are serialized by
// a mutex, and every call loads the records it needs, mutates them and
// writes them back before returning.
package diskfs

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gokrazy/fatdisk/blockstore"
	"github.com/gokrazy/fatdisk/fat"
	"github.com/gokrazy/fatdisk/fspath"
)

type Options struct {
	// Logger receives one debug record per call. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// LegacyWrites selects block-granular write semantics: appends always
	// start a new block, and writes below the end of the file discard
	// everything after the first block and restart output there. The
	// default engine writes in place at the requested offset. Only legacy
	// writes allocate one new block per PayloadSize bytes written to a
	// freshly created file; the in-place engine fills the file's first
	// block before appending.
	LegacyWrites bool

	// ReadOnly opens the image read-only (Open only).
	ReadOnly bool
}

type FS struct {
	mu           sync.Mutex
	store        *blockstore.Store
	log          *slog.Logger
	legacyWrites bool
}

// Open opens the image at path.
func Open(path string, opts Options) (*FS, error) {
	s, err := blockstore.Open(path, opts.ReadOnly)
	if err != nil {
		return nil, ioErr(err)
	}
	return New(s, opts), nil
}

// New returns an FS operating on s.
func New(s *blockstore.Store, opts Options) *FS {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &FS{
		store:        s,
		log:          log.With("image_blocks", s.Blocks()),
		legacyWrites: opts.LegacyWrites,
	}
}

func (f *FS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.store.Sync(); err != nil {
		f.store.Close()
		return ioErr(err)
	}
	if err := f.store.Close(); err != nil {
		return ioErr(err)
	}
	return nil
}

func (f *FS) logResult(op, path string, err error) {
	switch {
	case err == nil:
		f.log.Debug(op, "path", path)
	case errors.Is(err, ErrIO):
		f.log.Warn(op+" failed", "path", path, "error", err)
	default:
		f.log.Debug(op+" rejected", "path", path, "error", err)
	}
}

func (f *FS) writable() error {
	if f.store.ReadOnly() {
		return ErrReadOnly
	}
	return nil
}

func (f *FS) loadRoot() (*fat.RootDir, error) {
	b, err := f.store.ReadBlock(0)
	if err != nil {
		return nil, ioErr(err)
	}
	r, err := fat.DecodeRootDir(b)
	if err != nil {
		return nil, ioErr(err)
	}
	return r, nil
}

func (f *FS) saveRoot(r *fat.RootDir) error {
	if err := f.store.WriteBlock(0, r.Encode()); err != nil {
		return ioErr(err)
	}
	return nil
}

func (f *FS) loadDir(block int64) (*fat.Dir, error) {
	b, err := f.store.ReadBlock(block)
	if err != nil {
		return nil, ioErr(err)
	}
	d, err := fat.DecodeDir(b)
	if err != nil {
		return nil, ioErr(fmt.Errorf("directory block %d: %w", block, err))
	}
	return d, nil
}

func (f *FS) saveDir(block int64, d *fat.Dir) error {
	if err := f.store.WriteBlock(block, d.Encode()); err != nil {
		return ioErr(err)
	}
	return nil
}

func (f *FS) loadTable() (*fat.Table, error) {
	b, err := f.store.ReadBlock(fat.TableBlock(f.store.Blocks()))
	if err != nil {
		return nil, ioErr(err)
	}
	t, err := fat.DecodeTable(b)
	if err != nil {
		return nil, ioErr(err)
	}
	return t, nil
}

func (f *FS) saveTable(t *fat.Table) error {
	if err := f.store.WriteBlock(fat.TableBlock(f.store.Blocks()), t.Encode()); err != nil {
		return ioErr(err)
	}
	return nil
}

func (f *FS) loadBlock(i int) (fat.DataBlock, error) {
	b, err := f.store.ReadBlock(fat.DataBlockOf(i))
	if err != nil {
		return fat.DataBlock{}, ioErr(err)
	}
	return fat.DecodeDataBlock(b), nil
}

func (f *FS) saveBlock(i int, blk fat.DataBlock) error {
	if err := f.store.WriteBlock(fat.DataBlockOf(i), blk.Encode()); err != nil {
		return ioErr(err)
	}
	return nil
}

// checkNames enforces the 8.3 limits on the components of p.
func checkNames(p fspath.Path) error {
	if len(p.Dir) > fat.MaxName || len(p.Name) > fat.MaxName || len(p.Ext) > fat.MaxExt {
		return fmt.Errorf("%s: %w", p, ErrNameTooLong)
	}
	if strings.Contains(p.Name, "/") {
		// only one level of directories
		return fmt.Errorf("%s: %w", p, ErrPermission)
	}
	return nil
}

// findDir resolves the directory name to its block and record.
func (f *FS) findDir(name string) (int64, *fat.Dir, error) {
	root, err := f.loadRoot()
	if err != nil {
		return 0, nil, err
	}
	slot := root.Find(name)
	if slot < 0 {
		return 0, nil, fmt.Errorf("/%s: %w", name, ErrNotFound)
	}
	block := root.Dirs[slot].StartBlock
	d, err := f.loadDir(block)
	if err != nil {
		return 0, nil, err
	}
	return block, d, nil
}

// findFile resolves a file path to its directory and slot.
func (f *FS) findFile(p fspath.Path) (dirBlock int64, d *fat.Dir, slot int, _ error) {
	dirBlock, d, err := f.findDir(p.Dir)
	if err != nil {
		return 0, nil, 0, err
	}
	slot = d.Find(p.Name, p.Ext)
	if slot < 0 {
		return 0, nil, 0, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return dirBlock, d, slot, nil
}

// Usage summarizes how much of the image is in use.
type Usage struct {
	DataBlocks int // allocatable data blocks
	FreeBlocks int
	Dirs       int
	FreeDirs   int
	Files      int
}

// Statfs reports the usage of the image.
func (f *FS) Statfs() (Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	root, err := f.loadRoot()
	if err != nil {
		return Usage{}, err
	}
	t, err := f.loadTable()
	if err != nil {
		return Usage{}, err
	}
	u := Usage{
		FreeBlocks: t.FreeCount(),
		Dirs:       int(root.Count),
		FreeDirs:   fat.RootCapacity - int(root.Count),
	}
	for i := 0; i < fat.FATEntries; i++ {
		if !fat.IsReserved(i) {
			u.DataBlocks++
		}
	}
	for i := range root.Dirs {
		if root.Dirs[i].Free() {
			continue
		}
		d, err := f.loadDir(root.Dirs[i].StartBlock)
		if err != nil {
			return Usage{}, err
		}
		u.Files += int(d.Count)
	}
	return u, nil
}
