//go:build !unix

package blockstore

import "os"

func lock(f *os.File, exclusive bool) (unlock func() error, _ error) {
	return nil, nil
}
