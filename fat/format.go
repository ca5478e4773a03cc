package fat

import (
	"fmt"
	"io"
	"os"
)

type paddingWriter struct {
	w     io.Writer
	count int
}

func (pw *paddingWriter) Write(p []byte) (n int, err error) {
	pw.count += int(len(p))
	return pw.w.Write(p)
}

// fillTo writes zeros until offset bytes have been written in total.
func (pw *paddingWriter) fillTo(offset int) error {
	zeros := make([]byte, 64*BlockSize)
	for pw.count < offset {
		chunk := zeros
		if remainder := offset - pw.count; remainder < len(chunk) {
			chunk = chunk[:remainder]
		}
		if _, err := pw.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

// Format writes an empty image of the given number of blocks to w: an
// empty root directory, zeroed directory and data blocks and a FAT in
// which only the reserved entries are in use.
func Format(w io.Writer, blocks int) error {
	if err := checkBlocks(blocks); err != nil {
		return err
	}
	pw := &paddingWriter{w: w}

	if _, err := pw.Write((&RootDir{}).Encode()); err != nil {
		return err
	}
	if err := pw.fillTo(int(TableBlock(int64(blocks))) * BlockSize); err != nil {
		return err
	}
	_, err := pw.Write(NewTable().Encode())
	return err
}

func checkBlocks(blocks int) error {
	if blocks < MinBlocks {
		return fmt.Errorf("image of %d blocks too small, need at least %d", blocks, MinBlocks)
	}
	if blocks > 1<<31/BlockSize {
		return fmt.Errorf("image of %d blocks too large", blocks)
	}
	return nil
}

// FormatFile creates (or overwrites) the image file path.
func FormatFile(path string, blocks int) error {
	if err := checkBlocks(blocks); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if err := Format(f, blocks); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
