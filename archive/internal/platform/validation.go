package platform

import (
	"fmt"
	"io/fs"
	"os"
)

// CheckUnchanged verifies that the open file f still describes the entry
// recorded in before and that its size, mtime, and permissions did not move
// while it was being archived.
func CheckUnchanged(f *os.File, path string, before fs.FileInfo) error {
	after, err := f.Stat()
	if err != nil {
		return err
	}
	if !os.SameFile(before, after) {
		return fmt.Errorf("file replaced during archive creation: %s", path)
	}
	if after.Size() != before.Size() || !after.ModTime().Equal(before.ModTime()) || after.Mode().Perm() != before.Mode().Perm() {
		return fmt.Errorf("file changed during archive creation: %s", path)
	}
	return nil
}
