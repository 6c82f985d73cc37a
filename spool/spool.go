// Package spool implements the durable on-disk queue buffering records until
// a transmission agent drains them.
//
// Each namespace owns one directory per stream. Writers append framed records
// to uniquely named open segments; sealed segments are immutable and consumed
// in creation order by the agent. Records damaged beyond the torn tail of a
// crashed writer are quarantined rather than replayed.
package spool

import (
	"path/filepath"

	"github.com/anchor/marquise/internal/fsx"
)

const defaultPerms = 0700

// Stream names, each maps to a directory of segments below the namespace root.
const (
	StreamPoints   = "points"
	StreamContents = "contents"
)

// Streams lists every stream a namespace carries.
func Streams() []string {
	return []string{StreamPoints, StreamContents}
}

// Dirs holds the spool directory layout of a single namespace.
type Dirs struct {
	Root       string
	Points     string
	Contents   string
	Quarantine string
}

// NewDirs derives the spool layout for a namespace below the base directory.
// the derivation is deterministic so independent processes converge on the
// same segment directories.
func NewDirs(base, namespace string) Dirs {
	root := filepath.Join(base, namespace)
	return Dirs{
		Root:       root,
		Points:     filepath.Join(root, StreamPoints),
		Contents:   filepath.Join(root, StreamContents),
		Quarantine: filepath.Join(root, "quarantine"),
	}
}

// Dir returns the segment directory of the named stream.
func (t Dirs) Dir(stream string) string {
	return filepath.Join(t.Root, stream)
}

// Ensure creates the directory layout.
func (t Dirs) Ensure() error {
	return fsx.MkDirs(defaultPerms, t.Points, t.Contents, t.Quarantine)
}
