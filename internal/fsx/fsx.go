package fsx

import (
	"io/fs"
	"os"

	"github.com/anchor/marquise/internal/errorsx"
)

// MkDirs creates each of the provided directories including parents.
func MkDirs(perm fs.FileMode, paths ...string) (err error) {
	for _, p := range paths {
		if err = os.MkdirAll(p, perm); err != nil {
			return errorsx.Wrapf(err, "unable to create directory: %s", p)
		}
	}

	return nil
}

// ErrIsNotExist returns nil when the error represents a missing file.
func ErrIsNotExist(err error) error {
	if os.IsNotExist(err) {
		return nil
	}

	return err
}
