// Package fusefs exposes a diskfs.FS through FUSE.
package fusefs

import (
	"context"
	"log/slog"
	"syscall"
	"time"

	"github.com/gokrazy/fatdisk/diskfs"
	"github.com/gokrazy/fatdisk/fat"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Node is a path in the file system. The kernel caches nothing, so
// every call is resolved against the image.
type Node struct {
	fs.Inode

	fsys *diskfs.FS
	path string
	log  *slog.Logger
}

var (
	_ fs.NodeLookuper  = (*Node)(nil)
	_ fs.NodeGetattrer = (*Node)(nil)
	_ fs.NodeSetattrer = (*Node)(nil)
	_ fs.NodeReaddirer = (*Node)(nil)
	_ fs.NodeMkdirer   = (*Node)(nil)
	_ fs.NodeRmdirer   = (*Node)(nil)
	_ fs.NodeCreater   = (*Node)(nil)
	_ fs.NodeMknoder   = (*Node)(nil)
	_ fs.NodeUnlinker  = (*Node)(nil)
	_ fs.NodeOpener    = (*Node)(nil)
	_ fs.NodeReader    = (*Node)(nil)
	_ fs.NodeWriter    = (*Node)(nil)
	_ fs.NodeFlusher   = (*Node)(nil)
	_ fs.NodeStatfser  = (*Node)(nil)
)

// NewRoot returns the root node for fsys.
func NewRoot(fsys *diskfs.FS, log *slog.Logger) *Node {
	if log == nil {
		log = slog.Default()
	}
	return &Node{
		fsys: fsys,
		path: "/",
		log:  log.With("component", "fuse"),
	}
}

func (n *Node) child(name string) string {
	if n.path == "/" {
		return "/" + name
	}
	return n.path + "/" + name
}

func (n *Node) newChild(ctx context.Context, name string, attr diskfs.Attr) *fs.Inode {
	c := &Node{
		fsys: n.fsys,
		path: n.child(name),
		log:  n.log,
	}
	return n.NewInode(ctx, c, fs.StableAttr{Mode: fileType(attr)})
}

func fileType(attr diskfs.Attr) uint32 {
	if attr.IsDir() {
		return fuse.S_IFDIR
	}
	return fuse.S_IFREG
}

func fillAttr(attr diskfs.Attr, out *fuse.Attr) {
	out.Mode = fileType(attr) | uint32(attr.Mode.Perm())
	out.Nlink = attr.Nlink
	out.Size = uint64(attr.Size)
	out.Blocks = (out.Size + fat.BlockSize - 1) / fat.BlockSize
	out.Blksize = fat.BlockSize
}

// errno maps err and logs unexpected failures.
func (n *Node) errno(op string, err error) syscall.Errno {
	errno := diskfs.Errno(err)
	if errno == syscall.EIO {
		n.log.Error(op, "path", n.path, "error", err)
	}
	return errno
}

func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	attr, err := n.fsys.Getattr(n.child(name))
	if err != nil {
		return nil, n.errno("lookup", err)
	}
	fillAttr(attr, &out.Attr)
	return n.newChild(ctx, name, attr), 0
}

func (n *Node) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.fsys.Getattr(n.path)
	if err != nil {
		return n.errno("getattr", err)
	}
	fillAttr(attr, &out.Attr)
	return 0
}

// Setattr accepts size changes without resizing the file, so that
// O_TRUNC opens succeed.
func (n *Node) Setattr(ctx context.Context, fh fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if err := n.fsys.Truncate(n.path, int64(size)); err != nil {
			return n.errno("truncate", err)
		}
	}
	return n.Getattr(ctx, fh, out)
}

func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := n.fsys.Readdir(n.path)
	if err != nil {
		return nil, n.errno("readdir", err)
	}
	entries := []fuse.DirEntry{
		{Name: ".", Mode: fuse.S_IFDIR},
		{Name: "..", Mode: fuse.S_IFDIR},
	}
	mode := uint32(fuse.S_IFREG)
	if n.path == "/" {
		mode = fuse.S_IFDIR
	}
	for _, name := range names {
		entries = append(entries, fuse.DirEntry{Name: name, Mode: mode})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	return n.create(ctx, "mkdir", name, n.fsys.Mkdir, out)
}

func (n *Node) Mknod(ctx context.Context, name string, mode uint32, dev uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	return n.create(ctx, "mknod", name, n.fsys.Mknod, out)
}

func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	inode, errno := n.create(ctx, "create", name, n.fsys.Mknod, out)
	return inode, nil, fuse.FOPEN_DIRECT_IO, errno
}

func (n *Node) create(ctx context.Context, op, name string, mk func(string) error, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	path := n.child(name)
	if err := mk(path); err != nil {
		return nil, n.errno(op, err)
	}
	attr, err := n.fsys.Getattr(path)
	if err != nil {
		return nil, n.errno(op, err)
	}
	fillAttr(attr, &out.Attr)
	return n.newChild(ctx, name, attr), 0
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return n.errno("rmdir", n.fsys.Rmdir(n.child(name)))
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	return n.errno("unlink", n.fsys.Unlink(n.child(name)))
}

// Open returns no file handle: reads and writes go through the node.
func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if err := n.fsys.Open(n.path); err != nil {
		return nil, 0, n.errno("open", err)
	}
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *Node) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	b, err := n.fsys.Read(n.path, len(dest), off)
	if err != nil {
		return nil, n.errno("read", err)
	}
	return fuse.ReadResultData(b), 0
}

func (n *Node) Write(ctx context.Context, fh fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	written, err := n.fsys.Write(n.path, data, off)
	if err != nil {
		return 0, n.errno("write", err)
	}
	return uint32(written), 0
}

func (n *Node) Flush(ctx context.Context, fh fs.FileHandle) syscall.Errno {
	return n.errno("flush", n.fsys.Flush(n.path))
}

func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	u, err := n.fsys.Statfs()
	if err != nil {
		return n.errno("statfs", err)
	}
	out.Bsize = fat.BlockSize
	out.Frsize = fat.BlockSize
	out.Blocks = uint64(u.DataBlocks)
	out.Bfree = uint64(u.FreeBlocks)
	out.Bavail = uint64(u.FreeBlocks)
	out.Files = uint64(fat.RootCapacity + u.Dirs*fat.DirCapacity)
	out.Ffree = uint64(u.FreeDirs + u.Dirs*fat.DirCapacity - u.Files)
	out.NameLen = fat.MaxName + 1 + fat.MaxExt
	return 0
}

type MountOptions struct {
	// FsName appears as the source in the mount table, typically the
	// image path.
	FsName     string
	AllowOther bool
	Debug      bool
	Logger     *slog.Logger
}

// Mount mounts fsys on dir. The caller waits for the returned server
// and unmounts it.
func Mount(dir string, fsys *diskfs.FS, opts MountOptions) (*fuse.Server, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	var noCache time.Duration
	return fs.Mount(dir, NewRoot(fsys, log), &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName:     opts.FsName,
			Name:       "fatdisk",
			AllowOther: opts.AllowOther,
			Debug:      opts.Debug,
		},
		EntryTimeout:    &noCache,
		AttrTimeout:     &noCache,
		NegativeTimeout: &noCache,
		Logger:          slog.NewLogLogger(log.Handler(), slog.LevelDebug),
	})
}
