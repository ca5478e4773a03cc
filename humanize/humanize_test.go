package humanize

import "testing"

func TestFormat(t *testing.T) {
	for _, tt := range []struct {
		got, want string
	}{
		{Bytes(0), "0 B"},
		{Bytes(1024), "1024 B"},
		{Bytes(4096), "4 KiB"},
		{Bytes(5 << 20), "5 MiB"},
		{BPS(3 << 20), "3 MiB/s"},
		{BPS(100), "100 B/s"},
		{Blocks(1), "1 block (512 B)"},
		{Blocks(10240), "10240 blocks (5 MiB)"},
	} {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
