package spool

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/anchor/marquise/internal/errorsx"
	"github.com/anchor/marquise/internal/fsx"
	"github.com/gofrs/uuid/v5"
	"golang.org/x/sys/unix"
)

const (
	openSuffix   = ".open"
	sealedSuffix = ".spool"
)

// Seal renames an open segment into its sealed form, atomically publishing it
// to the agent. returns the sealed path.
func Seal(path string) (sealed string, err error) {
	sealed = strings.TrimSuffix(path, openSuffix) + sealedSuffix
	if err = os.Rename(path, sealed); err != nil {
		return "", errorsx.Wrapf(err, "unable to seal segment: %s", path)
	}

	return sealed, nil
}

// Sealed lists the sealed segments of a stream directory ordered oldest
// first. segment names are v7 uuids so the lexical order is creation order.
func Sealed(dir string) (paths []string, err error) {
	entries, err := os.ReadDir(dir)
	if fsx.ErrIsNotExist(err) != nil {
		return nil, errorsx.Wrapf(err, "unable to read stream directory: %s", dir)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), sealedSuffix) {
			continue
		}

		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(paths)

	return paths, nil
}

// Orphans lists open segments whose writer no longer holds the segment lock
// and whose last modification is older than the grace period. these belong
// to crashed writers and may be sealed by the agent.
func Orphans(dir string, grace time.Duration) (paths []string, err error) {
	entries, err := os.ReadDir(dir)
	if fsx.ErrIsNotExist(err) != nil {
		return nil, errorsx.Wrapf(err, "unable to read stream directory: %s", dir)
	}

	horizon := time.Now().Add(-grace)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), openSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(horizon) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if held(path) {
			continue
		}

		paths = append(paths, path)
	}

	sort.Strings(paths)

	return paths, nil
}

// held reports whether a live writer still holds the segment lock.
func held(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	if err = unix.Flock(int(f.Fd()), unix.LOCK_SH|unix.LOCK_NB); err != nil {
		return true
	}

	errorsx.Log(errorsx.Wrap(unix.Flock(int(f.Fd()), unix.LOCK_UN), "unable to release probe lock"))

	return false
}

// Quarantine moves a segment into the quarantine directory, prefixing it with
// a unique id since the same segment name can be quarantined repeatedly.
func Quarantine(quarantine string, path string) (dst string, err error) {
	if err = fsx.MkDirs(defaultPerms, quarantine); err != nil {
		return "", err
	}

	uid := errorsx.Must(uuid.NewV7())
	dst = filepath.Join(quarantine, uid.String()+"-"+filepath.Base(path))

	if err = os.Rename(path, dst); err != nil {
		return "", errorsx.Wrapf(err, "unable to quarantine segment: %s", path)
	}

	return dst, nil
}
