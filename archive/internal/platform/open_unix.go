//go:build unix

// Package platform holds the OS-specific pieces of archive creation.
package platform

import (
	"errors"
	"os"
	"syscall"
)

// ErrSymlink is returned when a path that was a regular file is now a symbolic link.
var ErrSymlink = errors.New("unexpected symbolic link")

// OpenNoFollow opens name for reading without following a final symlink.
func OpenNoFollow(name string) (*os.File, error) {
	f, err := os.OpenFile(name, os.O_RDONLY|syscall.O_NOFOLLOW, 0)
	if err != nil {
		if errors.Is(err, syscall.ELOOP) {
			return nil, ErrSymlink
		}
		return nil, err
	}
	return f, nil
}
