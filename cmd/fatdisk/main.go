// fatdisk manages fatdisk images: single-level file systems of 8.3
// names stored in one flat image file.
//
// Usage:
//
//	fatdisk [-i image] format [--blocks n] [--force]
//	fatdisk [-i image] ls [-l] [path]
//	fatdisk [-i image] stat <path>
//	fatdisk [-i image] cat <path>
//	fatdisk [-i image] put [--offset n] <local file|-> <path>
//	fatdisk [-i image] mkdir <path>
//	fatdisk [-i image] rmdir <path>
//	fatdisk [-i image] rm <path>
//	fatdisk [-i image] df
//	fatdisk [-i image] fsck
//	fatdisk [-i image] export [--codec zstd|lz4] <archive>
//	fatdisk [-i image] import <archive>
//	fatdisk [-i image] mount [--allow-other] [--debug] <dir>
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gokrazy/fatdisk/config"
	"github.com/gokrazy/fatdisk/diskfs"
	"github.com/gokrazy/fatdisk/imageflag"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "fatdisk: %v\n", err)
		os.Exit(1)
	}
}

type env struct {
	image  string
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
	opts   diskfs.Options
}

type command struct {
	name string
	run  func(e *env, args []string) error
}

var commands = []command{
	{"format", runFormat},
	{"ls", runLs},
	{"stat", runStat},
	{"cat", runCat},
	{"put", runPut},
	{"mkdir", runMkdir},
	{"rmdir", runRmdir},
	{"rm", runRm},
	{"df", runDf},
	{"fsck", runFsck},
	{"export", runExport},
	{"import", runImport},
	{"mount", runMount},
}

func commandNames() string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.name
	}
	return strings.Join(names, ", ")
}

func run(args []string, stdout, stderr io.Writer) error {
	fset := pflag.NewFlagSet("fatdisk", pflag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.SetInterspersed(false)
	imageflag.RegisterPflags(fset)
	logLevel := fset.String("log_level", "", `log level (debug, info, warn, error); defaults to log-level.txt in the config directory, or info`)
	writeMode := fset.String("write_mode", "", `write engine: inplace or legacy; defaults to write-mode.txt in the config directory, or inplace`)
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() < 1 {
		return fmt.Errorf("usage: fatdisk [-i image] <command> [args] (commands: %s)", commandNames())
	}

	e := &env{
		image:  imageflag.Image(),
		stdout: stdout,
		stderr: stderr,
	}
	cfg := config.ImageSpecific(e.image)

	level, err := cfg.LogLevel()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if *logLevel != "" {
		if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
			return fmt.Errorf("--log_level: %w", err)
		}
	}
	e.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	legacy, err := cfg.LegacyWrites()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	switch *writeMode {
	case "":
	case "legacy":
		legacy = true
	case "inplace":
		legacy = false
	default:
		return fmt.Errorf("--write_mode: unknown write mode %q (want legacy or inplace)", *writeMode)
	}
	e.opts = diskfs.Options{
		Logger:       e.log,
		LegacyWrites: legacy,
	}

	name, cmdArgs := fset.Arg(0), fset.Args()[1:]
	for _, c := range commands {
		if c.name == name {
			return c.run(e, cmdArgs)
		}
	}
	return fmt.Errorf("unknown command: %s (use %s)", name, commandNames())
}

// open opens the image for a command.
func (e *env) open(readOnly bool) (*diskfs.FS, error) {
	opts := e.opts
	opts.ReadOnly = readOnly
	fsys, err := diskfs.Open(e.image, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.image, err)
	}
	return fsys, nil
}

// withFS runs fn on the opened image and closes it, reporting the first
// error.
func (e *env) withFS(readOnly bool, fn func(*diskfs.FS) error) error {
	fsys, err := e.open(readOnly)
	if err != nil {
		return err
	}
	if err := fn(fsys); err != nil {
		fsys.Close()
		return err
	}
	return fsys.Close()
}

func flagSet(e *env, name string) *pflag.FlagSet {
	fset := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fset.SetOutput(e.stderr)
	return fset
}

func oneArg(fset *pflag.FlagSet, name, what string) (string, error) {
	if fset.NArg() != 1 {
		return "", fmt.Errorf("%s requires exactly one %s argument", name, what)
	}
	return fset.Arg(0), nil
}
