package fat

import (
	"bytes"
	"encoding/binary"
)

// blockMagic (“FDB1”) starts the header of data blocks written by this
// package. The rest of the header is the number of used payload bytes.
const blockMagic = uint32('F') | uint32('D')<<8 | uint32('B')<<16 | uint32('1')<<24

// DataBlock is the content of one data block.
type DataBlock struct {
	Data []byte
}

// DecodeDataBlock parses a data block. Blocks without a header were
// written by tools treating the payload as NUL-terminated text; their
// content ends at the first NUL byte.
func DecodeDataBlock(b []byte) DataBlock {
	if len(b) < BlockSize {
		return DataBlock{}
	}
	payload := b[blockHeaderSize:BlockSize]
	if binary.LittleEndian.Uint32(b[0:4]) != blockMagic {
		if i := bytes.IndexByte(payload, 0); i > -1 {
			payload = payload[:i]
		}
		return DataBlock{Data: append([]byte(nil), payload...)}
	}
	used := int(binary.LittleEndian.Uint32(b[4:8]))
	if used > PayloadSize {
		used = PayloadSize
	}
	return DataBlock{Data: append([]byte(nil), payload[:used]...)}
}

// Encode returns the block. Data beyond PayloadSize is dropped.
func (d DataBlock) Encode() []byte {
	b := make([]byte, BlockSize)
	n := copy(b[blockHeaderSize:], d.Data)
	binary.LittleEndian.PutUint32(b[0:4], blockMagic)
	binary.LittleEndian.PutUint32(b[4:8], uint32(n))
	return b
}
