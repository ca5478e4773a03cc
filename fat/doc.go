// Package fat implements the on-disk format of fatdisk images: a root
// directory block, one block per subdirectory, FAT-chained data blocks
// and a single file allocation table block at the end of the image.
//
// All records occupy exactly one 512 byte block, so that a block index
// translates to a byte offset by multiplication. Integers are stored
// little endian and records are packed without alignment.
//
// Filenames are restricted to 8 characters + 3 characters for the
// file extension, and there is exactly one level of directories.
package fat
