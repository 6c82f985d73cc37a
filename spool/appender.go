package spool

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/anchor/marquise/internal/errorsx"
	"github.com/anchor/marquise/internal/fsx"
	"github.com/anchor/marquise/internal/langx"
	"github.com/gofrs/uuid/v5"
	"golang.org/x/sys/unix"
)

// DefaultSegmentBytes is the rotation threshold for open segments.
const DefaultSegmentBytes = 16 << 20

type AppenderOption func(*Appender)

// AppenderOptionSegmentBytes overrides the rotation threshold.
func AppenderOptionSegmentBytes(n int64) AppenderOption {
	return func(a *Appender) {
		a.maximum = n
	}
}

// NewAppender creates an appender writing framed records into uniquely named
// segments below dir. the backing segment is created on first append.
func NewAppender(dir string, options ...AppenderOption) *Appender {
	a := langx.Clone(Appender{
		m:       &sync.Mutex{},
		dir:     dir,
		maximum: DefaultSegmentBytes,
	}, options...)

	return &a
}

// Appender writes framed records into an exclusively owned open segment,
// sealing and rotating it once it exceeds the size threshold. safe for
// concurrent use by a single process; cross process safety comes from the
// unique segment names.
type Appender struct {
	m       *sync.Mutex
	dir     string
	maximum int64
	buf     []byte
	current *os.File
	size    int64
}

// Append frames the payload and writes it to the open segment, creating one
// as needed. the frame lands entirely or, on a short write, the segment is
// restored to the previous record boundary.
func (t *Appender) Append(payload []byte) (err error) {
	if int64(len(payload)) > MaxRecordBytes {
		return ErrRecordTooLarge
	}

	t.m.Lock()
	defer t.m.Unlock()

	if t.current == nil {
		if err = t.open(); err != nil {
			return err
		}
	}

	t.buf = AppendFrame(t.buf[:0], payload)

	n, err := t.current.Write(t.buf)
	if err != nil {
		if n > 0 {
			// a partial frame at the tail would mask every record appended
			// after it, restore the previous boundary.
			errorsx.Log(errorsx.Wrap(t.current.Truncate(t.size), "unable to restore segment boundary"))
		}

		return errorsx.Wrapf(err, "unable to append record: %s", t.current.Name())
	}

	t.size += int64(n)

	if t.size >= t.maximum {
		return t.seal()
	}

	return nil
}

// Sync flushes the open segment to stable storage.
func (t *Appender) Sync() error {
	t.m.Lock()
	defer t.m.Unlock()

	if t.current == nil {
		return nil
	}

	return errorsx.Wrap(t.current.Sync(), "unable to sync segment")
}

// Close seals the open segment making it available for transmission.
// idempotent.
func (t *Appender) Close() error {
	t.m.Lock()
	defer t.m.Unlock()

	if t.current == nil {
		return nil
	}

	return t.seal()
}

func (t *Appender) open() (err error) {
	if err = fsx.MkDirs(defaultPerms, t.dir); err != nil {
		return err
	}

	// v7 uuids sort by creation time, segment names therefore preserve the
	// order segments were begun.
	uid := errorsx.Must(uuid.NewV7())
	path := filepath.Join(t.dir, uid.String()+openSuffix)

	if t.current, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600); err != nil {
		return errorsx.Wrapf(err, "unable to create segment: %s", path)
	}

	// the exclusive lock marks the writing process as alive, recovery seals
	// unlocked segments left behind by crashed writers.
	if err = unix.Flock(int(t.current.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		errorsx.Log(errorsx.Wrap(t.current.Close(), "unable to close segment"))
		t.current = nil
		return errorsx.Wrapf(err, "unable to lock segment: %s", path)
	}

	t.size = 0

	return nil
}

func (t *Appender) seal() (err error) {
	defer func() {
		t.current = nil
		t.size = 0
	}()

	err = errorsx.Compact(
		errorsx.Wrap(t.current.Sync(), "unable to sync segment"),
		errorsx.Wrap(t.current.Close(), "unable to close segment"),
	)
	if err != nil {
		return err
	}

	if t.size == 0 {
		// nothing was appended, no reason to hand an empty segment to the agent.
		return errorsx.Wrap(os.Remove(t.current.Name()), "unable to remove empty segment")
	}

	_, err = Seal(t.current.Name())
	return err
}
