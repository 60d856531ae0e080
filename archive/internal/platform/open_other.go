//go:build !unix

// Package platform holds the OS-specific pieces of archive creation.
package platform

import (
	"errors"
	"io/fs"
	"os"
)

// ErrSymlink is returned when a path that was a regular file is now a symbolic link.
var ErrSymlink = errors.New("unexpected symbolic link")

// OpenNoFollow opens name for reading without following a final symlink.
func OpenNoFollow(name string) (*os.File, error) {
	info, err := os.Lstat(name)
	if err != nil {
		return nil, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return nil, ErrSymlink
	}
	return os.Open(name)
}
