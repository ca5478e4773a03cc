package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gokrazy/fatdisk/diskfs"
	"github.com/gokrazy/fatdisk/fat"
	"github.com/gokrazy/fatdisk/humanize"
)

func runFormat(e *env, args []string) error {
	fset := flagSet(e, "format")
	blocks := fset.Int("blocks", fat.DefaultBlocks, "size of the image in blocks of 512 bytes")
	force := fset.Bool("force", false, "overwrite an existing image")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() != 0 {
		return fmt.Errorf("format takes no arguments")
	}
	if _, err := os.Stat(e.image); err == nil && !*force {
		return fmt.Errorf("%s already exists, use --force to overwrite", e.image)
	}
	if err := fat.FormatFile(e.image, *blocks); err != nil {
		return err
	}
	e.log.Info("formatted image", "path", e.image, "blocks", *blocks)
	fmt.Fprintf(e.stdout, "%s: %s\n", e.image, humanize.Blocks(*blocks))
	return nil
}

func runLs(e *env, args []string) error {
	fset := flagSet(e, "ls")
	long := fset.BoolP("long", "l", false, "print sizes")
	if err := fset.Parse(args); err != nil {
		return err
	}
	path := "/"
	if fset.NArg() > 0 {
		path = fset.Arg(0)
	}
	return e.withFS(true, func(fsys *diskfs.FS) error {
		attr, err := fsys.Getattr(path)
		if err != nil {
			return err
		}
		if !attr.IsDir() {
			printEntry(e.stdout, path, attr, *long)
			return nil
		}
		names, err := fsys.Readdir(path)
		if err != nil {
			return err
		}
		for _, name := range names {
			child := path + "/" + name
			if path == "/" {
				child = "/" + name
			}
			attr, err := fsys.Getattr(child)
			if err != nil {
				return err
			}
			printEntry(e.stdout, name, attr, *long)
		}
		return nil
	})
}

func printEntry(w io.Writer, name string, attr diskfs.Attr, long bool) {
	if attr.IsDir() {
		name += "/"
	}
	if long {
		fmt.Fprintf(w, "%-10s %8d %s\n", attr.Mode, attr.Size, name)
		return
	}
	fmt.Fprintln(w, name)
}

func runStat(e *env, args []string) error {
	fset := flagSet(e, "stat")
	if err := fset.Parse(args); err != nil {
		return err
	}
	path, err := oneArg(fset, "stat", "path")
	if err != nil {
		return err
	}
	return e.withFS(true, func(fsys *diskfs.FS) error {
		attr, err := fsys.Getattr(path)
		if err != nil {
			return err
		}
		kind := "regular file"
		if attr.IsDir() {
			kind = "directory"
		}
		fmt.Fprintf(e.stdout, "  File: %s\n", path)
		fmt.Fprintf(e.stdout, "  Type: %s\n", kind)
		fmt.Fprintf(e.stdout, "  Size: %d\n", attr.Size)
		fmt.Fprintf(e.stdout, "  Mode: %s\n", attr.Mode)
		fmt.Fprintf(e.stdout, " Links: %d\n", attr.Nlink)
		return nil
	})
}

func runCat(e *env, args []string) error {
	fset := flagSet(e, "cat")
	if err := fset.Parse(args); err != nil {
		return err
	}
	path, err := oneArg(fset, "cat", "path")
	if err != nil {
		return err
	}
	return e.withFS(true, func(fsys *diskfs.FS) error {
		attr, err := fsys.Getattr(path)
		if err != nil {
			return err
		}
		b, err := fsys.Read(path, int(attr.Size), 0)
		if err != nil {
			return err
		}
		_, err = e.stdout.Write(b)
		return err
	})
}

// putChunk is the size of the writes put issues, like a kernel would.
const putChunk = 4096

func runPut(e *env, args []string) error {
	fset := flagSet(e, "put")
	offset := fset.Int64("offset", 0, "file offset to write at; at most the current file size")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() != 2 {
		return fmt.Errorf("put requires a local file (or -) and a path")
	}
	src, path := fset.Arg(0), fset.Arg(1)
	var data []byte
	var err error
	if src == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return err
	}
	return e.withFS(false, func(fsys *diskfs.FS) error {
		if _, err := fsys.Getattr(path); errors.Is(err, diskfs.ErrNotFound) {
			if err := fsys.Mknod(path); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		off := *offset
		for len(data) > 0 {
			n := min(len(data), putChunk)
			if _, err := fsys.Write(path, data[:n], off); err != nil {
				return err
			}
			data = data[n:]
			off += int64(n)
		}
		return fsys.Flush(path)
	})
}

func runMkdir(e *env, args []string) error {
	return runPathOp(e, "mkdir", args, (*diskfs.FS).Mkdir)
}

func runRmdir(e *env, args []string) error {
	return runPathOp(e, "rmdir", args, (*diskfs.FS).Rmdir)
}

func runRm(e *env, args []string) error {
	return runPathOp(e, "rm", args, (*diskfs.FS).Unlink)
}

func runPathOp(e *env, name string, args []string, op func(*diskfs.FS, string) error) error {
	fset := flagSet(e, name)
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() == 0 {
		return fmt.Errorf("%s requires at least one path argument", name)
	}
	return e.withFS(false, func(fsys *diskfs.FS) error {
		for _, path := range fset.Args() {
			if err := op(fsys, path); err != nil {
				return err
			}
		}
		return nil
	})
}
