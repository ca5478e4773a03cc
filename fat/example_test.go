package fat_test

import (
	"log"
	"os"

	"github.com/gokrazy/fatdisk/fat"
)

func Example() {
	tmp, err := os.CreateTemp("", "example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.Remove(tmp.Name())

	if err := fat.Format(tmp, fat.DefaultBlocks); err != nil {
		log.Fatal(err)
	}

	if err := tmp.Close(); err != nil {
		log.Fatal(err)
	}

	log.Printf("fatdisk -i %s mount /mnt/loop", tmp.Name())
}
