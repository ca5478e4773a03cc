package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gokrazy/fatdisk/archive"
	"github.com/gokrazy/fatdisk/diskfs"
	"github.com/gokrazy/fatdisk/fat"
	"github.com/gokrazy/fatdisk/fusefs"
	"github.com/gokrazy/fatdisk/humanize"
	"github.com/gokrazy/fatdisk/progress"
	"golang.org/x/sync/errgroup"
)

func runDf(e *env, args []string) error {
	fset := flagSet(e, "df")
	if err := fset.Parse(args); err != nil {
		return err
	}
	return e.withFS(true, func(fsys *diskfs.FS) error {
		u, err := fsys.Statfs()
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "data:        %s\n", humanize.Blocks(u.DataBlocks))
		fmt.Fprintf(e.stdout, "free:        %s\n", humanize.Blocks(u.FreeBlocks))
		fmt.Fprintf(e.stdout, "directories: %d of %d\n", u.Dirs, u.Dirs+u.FreeDirs)
		fmt.Fprintf(e.stdout, "files:       %d\n", u.Files)
		return nil
	})
}

func runFsck(e *env, args []string) error {
	fset := flagSet(e, "fsck")
	if err := fset.Parse(args); err != nil {
		return err
	}
	return e.withFS(true, func(fsys *diskfs.FS) error {
		problems, err := fsys.Check()
		if err != nil {
			return err
		}
		for _, p := range problems {
			fmt.Fprintln(e.stdout, p)
		}
		if len(problems) > 0 {
			return fmt.Errorf("%s: %d problems found", e.image, len(problems))
		}
		fmt.Fprintf(e.stdout, "%s: clean\n", e.image)
		return nil
	})
}

// withProgress runs fn while reporting the bytes written to the
// counter it receives.
func withProgress(e *env, status string, total uint64, fn func(io.Writer) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	counter := &progress.Counter{}
	reporter := &progress.Reporter{Counter: counter, Out: e.stderr}
	reporter.SetStatus(status)
	reporter.SetTotal(total)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		reporter.Report(ctx, time.Second)
		return nil
	})
	eg.Go(func() error {
		defer cancel()
		return fn(counter)
	})
	return eg.Wait()
}

func runExport(e *env, args []string) error {
	fset := flagSet(e, "export")
	codecName := fset.String("codec", "zstd", "compression: zstd or lz4")
	if err := fset.Parse(args); err != nil {
		return err
	}
	dst, err := oneArg(fset, "export", "archive")
	if err != nil {
		return err
	}
	codec, err := archive.ParseCodec(*codecName)
	if err != nil {
		return err
	}

	// hold a shared lock, so that the image does not change underneath
	fsys, err := e.open(true)
	if err != nil {
		return err
	}
	defer fsys.Close()
	src, err := os.Open(e.image)
	if err != nil {
		return err
	}
	defer src.Close()
	st, err := src.Stat()
	if err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	blocks := st.Size() / fat.BlockSize
	err = withProgress(e, "export", uint64(st.Size()), func(counter io.Writer) error {
		_, err := archive.Export(out, src, blocks, archive.Options{
			Codec:    codec,
			Progress: counter,
		})
		return err
	})
	if err != nil {
		os.Remove(dst)
		return err
	}
	e.log.Info("exported image", "archive", dst, "codec", codec, "blocks", blocks)
	return out.Close()
}

func runImport(e *env, args []string) error {
	fset := flagSet(e, "import")
	force := fset.Bool("force", false, "overwrite an existing image")
	if err := fset.Parse(args); err != nil {
		return err
	}
	src, err := oneArg(fset, "import", "archive")
	if err != nil {
		return err
	}
	if _, err := os.Stat(e.image); err == nil && !*force {
		return fmt.Errorf("%s already exists, use --force to overwrite", e.image)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	st, err := in.Stat()
	if err != nil {
		return err
	}

	// extract next to the image and rename once verified
	tmp, err := os.CreateTemp(filepath.Dir(e.image), filepath.Base(e.image)+".import-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	var hdr *archive.Header
	err = withProgress(e, "import", 0, func(counter io.Writer) error {
		var err error
		hdr, err = archive.Import(tmp, in, archive.Options{Progress: counter})
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), e.image); err != nil {
		return err
	}
	e.log.Info("imported image", "archive", src, "archive_size", st.Size(), "codec", hdr.Codec, "blocks", hdr.Blocks)
	return nil
}

func runMount(e *env, args []string) error {
	fset := flagSet(e, "mount")
	allowOther := fset.Bool("allow_other", false, "allow other users to access the mount")
	debug := fset.Bool("debug", false, "log every FUSE request")
	if err := fset.Parse(args); err != nil {
		return err
	}
	dir, err := oneArg(fset, "mount", "mount point")
	if err != nil {
		return err
	}
	fsys, err := e.open(false)
	if err != nil {
		return err
	}
	defer fsys.Close()

	server, err := fusefs.Mount(dir, fsys, fusefs.MountOptions{
		FsName:     e.image,
		AllowOther: *allowOther,
		Debug:      *debug,
		Logger:     e.log,
	})
	if err != nil {
		return fmt.Errorf("mounting %s: %w", dir, err)
	}
	e.log.Info("mounted", "image", e.image, "dir", dir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if err := server.Unmount(); err != nil {
				e.log.Error("unmount failed", "dir", dir, "error", err)
			}
		case <-done:
		}
	}()
	server.Wait()
	close(done)
	return nil
}
