// Package config reads fatdisk settings, which can be specific to one
// image or apply to all images.
package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

func userConfigDir() string {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("https://golang.org/pkg/os/#UserConfigDir failed: %v", err)
	}
	return userConfigDir
}

// Typically ~/.config/fatdisk on Linux
// Typically ~/Library/Application\ Support/fatdisk on macOS/Darwin
func fatdiskConfigDir() string {
	return filepath.Join(userConfigDir(), "fatdisk")
}

func Fatdisk() string { return fatdiskConfigDir() }

// ImageDir holds the settings of one image.
type ImageDir string

// ReadFile returns the trimmed content of configBaseName, looked up in
// the image directory first and in the global directory second.
func (d ImageDir) ReadFile(configBaseName string) (string, error) {
	b, err := os.ReadFile(filepath.Join(string(d), configBaseName))
	if err != nil {
		// fall back to global path
		b, err = os.ReadFile(filepath.Join(fatdiskConfigDir(), configBaseName))
		if err != nil {
			return "", err
		}
	}
	return strings.TrimSpace(string(b)), nil
}

// ImageSpecific returns the settings directory for the image at
// imagePath, keyed by its base name.
func ImageSpecific(imagePath string) ImageDir {
	return ImageDir(filepath.Join(fatdiskConfigDir(), "images", filepath.Base(imagePath)))
}

// Global returns the directory of settings applying to all images.
func Global() ImageDir { return ImageDir(fatdiskConfigDir()) }

// LogLevel returns the level configured in log-level.txt, e.g. “debug”.
func (d ImageDir) LogLevel() (slog.Level, error) {
	s, err := d.ReadFile("log-level.txt")
	if err != nil {
		return slog.LevelInfo, err
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log-level.txt: %w", err)
	}
	return l, nil
}

// LegacyWrites reports whether write-mode.txt selects the legacy write
// engine (“legacy”) rather than in-place writes (“inplace”).
func (d ImageDir) LegacyWrites() (bool, error) {
	s, err := d.ReadFile("write-mode.txt")
	if err != nil {
		return false, err
	}
	switch s {
	case "legacy":
		return true, nil
	case "inplace":
		return false, nil
	default:
		return false, fmt.Errorf("write-mode.txt: unknown write mode %q (want legacy or inplace)", s)
	}
}
