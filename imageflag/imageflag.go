// Package imageflag provides the --image flag shared by fatdisk
// commands.
package imageflag

import (
	"os"

	"github.com/gokrazy/fatdisk/config"
	"github.com/spf13/pflag"
)

// Default returns the image used when --image is not given: the
// FATDISK_IMAGE environment variable, the path in the global
// default-image.txt, or .disk in the working directory.
func Default() string {
	if def := os.Getenv("FATDISK_IMAGE"); def != "" {
		return def
	}
	if def, err := config.Global().ReadFile("default-image.txt"); err == nil && def != "" {
		return def
	}
	return ".disk"
}

var image = Default()

func RegisterPflags(fs *pflag.FlagSet) {
	fs.StringVarP(&image,
		"image",
		"i",
		image,
		`path to the disk image`)
}

func SetImage(i string) {
	image = i
}

func Image() string {
	return image
}
