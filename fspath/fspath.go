// Package fspath splits fatdisk paths of the form /directory/name.ext
// into their components. Parsing is purely syntactic: neither existence
// nor component lengths are checked.
package fspath

import (
	"strings"
	"unicode"
)

// Kind describes which components a path has.
type Kind int

const (
	Root Kind = iota // no directory component
	Dir              // directory only
	Sub              // directory and a name without extension
	File             // directory, name and extension
)

func (k Kind) String() string {
	switch k {
	case Root:
		return "root"
	case Dir:
		return "directory"
	case Sub:
		return "subdirectory"
	case File:
		return "file"
	default:
		return "unknown"
	}
}

type Path struct {
	Dir  string
	Name string
	Ext  string
	Kind Kind
}

// Classify parses path. The directory runs from the leading slash to the
// next slash, the name from there to the first dot and the extension
// from the dot to the end of the path or the first white space. Parsing
// stops at the first empty component, so "//x" is the root.
func Classify(path string) Path {
	var p Path
	rest, ok := strings.CutPrefix(path, "/")
	if !ok {
		return p
	}

	p.Dir, rest = span(rest, func(r rune) bool { return r == '/' })
	if p.Dir == "" {
		return p
	}
	p.Kind = Dir
	rest, ok = strings.CutPrefix(rest, "/")
	if !ok {
		return p
	}

	p.Name, rest = span(rest, func(r rune) bool { return r == '.' })
	if p.Name == "" {
		return p
	}
	p.Kind = Sub
	rest, ok = strings.CutPrefix(rest, ".")
	if !ok {
		return p
	}

	p.Ext, _ = span(rest, unicode.IsSpace)
	if p.Ext != "" {
		p.Kind = File
	}
	return p
}

// span splits s before the first rune for which stop returns true.
func span(s string, stop func(rune) bool) (head, tail string) {
	if i := strings.IndexFunc(s, stop); i > -1 {
		return s[:i], s[i:]
	}
	return s, ""
}

// String renders p back into path form.
func (p Path) String() string {
	switch p.Kind {
	case Root:
		return "/"
	case Dir:
		return "/" + p.Dir
	case Sub:
		return "/" + p.Dir + "/" + p.Name
	default:
		return "/" + p.Dir + "/" + p.Name + "." + p.Ext
	}
}
