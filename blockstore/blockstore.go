// Package blockstore provides block-granular access to a fatdisk image.
// The image is opened once and must already have its final size: the
// store never extends it.
package blockstore

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gokrazy/fatdisk/fat"
)

var (
	ErrOutOfRange = errors.New("block index out of range")
	ErrReadOnly   = errors.New("block store is read-only")
	ErrShortBlock = errors.New("short block")
	ErrLocked     = errors.New("image is in use by another process")
)

// Device is the backing storage of a Store, typically an *os.File.
type Device interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}

type Store struct {
	dev      Device
	blocks   int64
	readOnly bool
	unlock   func() error
}

// Open opens the image at path. Read-only stores take a shared lock,
// read-write stores an exclusive one.
func Open(path string, readOnly bool) (*Store, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat image: %w", err)
	}
	size := st.Size()
	if size%fat.BlockSize != 0 || size/fat.BlockSize < fat.MinBlocks {
		f.Close()
		return nil, fmt.Errorf("%s: image size %d is not a multiple of %d bytes of at least %d blocks",
			path, size, fat.BlockSize, fat.MinBlocks)
	}
	unlock, err := lock(f, !readOnly)
	if err != nil {
		f.Close()
		return nil, err
	}
	s := New(f, size/fat.BlockSize, readOnly)
	s.unlock = unlock
	return s, nil
}

// New returns a Store on top of dev, which holds blocks blocks.
func New(dev Device, blocks int64, readOnly bool) *Store {
	return &Store{
		dev:      dev,
		blocks:   blocks,
		readOnly: readOnly,
	}
}

// Blocks returns the number of blocks in the image.
func (s *Store) Blocks() int64 { return s.blocks }

func (s *Store) ReadOnly() bool { return s.readOnly }

func (s *Store) check(idx int64) error {
	if idx < 0 || idx >= s.blocks {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, idx, s.blocks)
	}
	return nil
}

// ReadBlock returns block idx.
func (s *Store) ReadBlock(idx int64) ([]byte, error) {
	if err := s.check(idx); err != nil {
		return nil, err
	}
	b := make([]byte, fat.BlockSize)
	n, err := s.dev.ReadAt(b, idx*fat.BlockSize)
	if n == len(b) {
		return b, nil
	}
	if err == nil || err == io.EOF {
		err = ErrShortBlock
	}
	return nil, fmt.Errorf("reading block %d: %w", idx, err)
}

// WriteBlock overwrites block idx with b, which must be exactly one
// block long.
func (s *Store) WriteBlock(idx int64, b []byte) error {
	if s.readOnly {
		return ErrReadOnly
	}
	if err := s.check(idx); err != nil {
		return err
	}
	if len(b) != fat.BlockSize {
		return fmt.Errorf("writing block %d: %w: got %d bytes", idx, ErrShortBlock, len(b))
	}
	if _, err := s.dev.WriteAt(b, idx*fat.BlockSize); err != nil {
		return fmt.Errorf("writing block %d: %w", idx, err)
	}
	return nil
}

// Sync flushes the image to stable storage if the device supports it.
func (s *Store) Sync() error {
	if syncer, ok := s.dev.(interface{ Sync() error }); ok && !s.readOnly {
		return syncer.Sync()
	}
	return nil
}

func (s *Store) Close() error {
	var unlockErr error
	if s.unlock != nil {
		unlockErr = s.unlock()
	}
	if err := s.dev.Close(); err != nil {
		return err
	}
	return unlockErr
}
