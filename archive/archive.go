// Package archive converts fatdisk images to and from compressed
// archives. An archive is a fixed header followed by the compressed
// image:
//
//	magic   [8]byte  "FATDISK\x00"
//	codec   uint8
//	_       [7]byte
//	blocks  uint64   (little endian)
//	digest  [32]byte BLAKE2b-256 of the uncompressed image
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"

	"github.com/gokrazy/fatdisk/fat"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"golang.org/x/crypto/blake2b"
)

var magic = [8]byte{'F', 'A', 'T', 'D', 'I', 'S', 'K', 0}

var ErrNotArchive = errors.New("not a fatdisk archive")

type Codec uint8

const (
	Zstd Codec = iota + 1
	LZ4
)

func (c Codec) String() string {
	switch c {
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec returns the codec called name.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("unknown codec %q (want zstd or lz4)", name)
	}
}

type Header struct {
	Magic  [8]byte
	Codec  Codec
	_      [7]byte
	Blocks uint64
	Digest [blake2b.Size256]byte
}

// ChecksumError is returned by Import when the extracted image does not
// match the digest recorded at export time.
type ChecksumError struct {
	Got, Want []byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("unexpected checksum: got %x, want %x", e.Got, e.Want)
}

type Options struct {
	// Codec compresses exported images. Defaults to Zstd. Import reads
	// the codec from the header.
	Codec Codec

	// Progress, if non-nil, receives a copy of the uncompressed image as
	// it is processed.
	Progress io.Writer
}

func newHash() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only fails for keys longer than 64 bytes
		panic(err)
	}
	return h
}

type compressor interface {
	io.Writer
	Close() error
}

func (c Codec) writer(w io.Writer) (compressor, error) {
	switch c {
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case LZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported codec %v", c)
	}
}

func (c Codec) reader(r io.Reader) (io.Reader, func(), error) {
	switch c {
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	case LZ4:
		return lz4.NewReader(r), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: unsupported codec %v", ErrNotArchive, c)
	}
}

// Export writes the image of the given number of blocks read from src
// to w as an archive.
func Export(w io.Writer, src io.ReaderAt, blocks int64, opts Options) (*Header, error) {
	if blocks < fat.MinBlocks {
		return nil, fmt.Errorf("image of %d blocks too small, need at least %d", blocks, fat.MinBlocks)
	}
	codec := opts.Codec
	if codec == 0 {
		codec = Zstd
	}
	size := blocks * fat.BlockSize

	h := newHash()
	if _, err := io.Copy(h, io.NewSectionReader(src, 0, size)); err != nil {
		return nil, fmt.Errorf("hashing image: %w", err)
	}
	hdr := &Header{
		Magic:  magic,
		Codec:  codec,
		Blocks: uint64(blocks),
	}
	copy(hdr.Digest[:], h.Sum(nil))
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}

	cw, err := codec.writer(w)
	if err != nil {
		return nil, err
	}
	var body io.Reader = io.NewSectionReader(src, 0, size)
	if opts.Progress != nil {
		body = io.TeeReader(body, opts.Progress)
	}
	if n, err := io.Copy(cw, body); err != nil {
		cw.Close()
		return nil, fmt.Errorf("compressing image: %w", err)
	} else if n != size {
		cw.Close()
		return nil, fmt.Errorf("image truncated: read %d of %d bytes", n, size)
	}
	if err := cw.Close(); err != nil {
		return nil, err
	}
	return hdr, nil
}

// ReadHeader reads and validates the archive header from r.
func ReadHeader(r io.Reader) (*Header, error) {
	var hdr Header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotArchive, err)
	}
	if hdr.Magic != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrNotArchive, hdr.Magic[:])
	}
	if hdr.Blocks < fat.MinBlocks || hdr.Blocks > 1<<31/fat.BlockSize {
		return nil, fmt.Errorf("%w: implausible block count %d", ErrNotArchive, hdr.Blocks)
	}
	return &hdr, nil
}

// Import extracts the archive read from r to w. w has received the
// whole image once Import returns without error; a *ChecksumError means
// w received the image, but it differs from what was exported.
func Import(w io.Writer, r io.Reader, opts Options) (*Header, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	dec, closeDec, err := hdr.Codec.reader(r)
	if err != nil {
		return nil, err
	}
	defer closeDec()

	h := newHash()
	dst := io.MultiWriter(w, h)
	if opts.Progress != nil {
		dst = io.MultiWriter(w, h, opts.Progress)
	}
	size := int64(hdr.Blocks) * fat.BlockSize
	n, err := io.Copy(dst, io.LimitReader(dec, size))
	if err != nil {
		return nil, fmt.Errorf("decompressing image: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("archive truncated: got %d of %d bytes", n, size)
	}
	if got := h.Sum(nil); !bytes.Equal(got, hdr.Digest[:]) {
		return hdr, &ChecksumError{Got: got, Want: hdr.Digest[:]}
	}
	return hdr, nil
}
