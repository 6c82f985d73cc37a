// Package marquise is a client binding for recording timestamped datapoints
// and source metadata destined for a remote time series store.
//
// Writes land in a durable on-disk spool and return as soon as the local
// append completes, a separate transmission agent (see the agent package and
// cmd/marquised) drains the spool over the network. producer latency is
// therefore decoupled from network availability.
package marquise

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/anchor/marquise/internal/errorsx"
	"github.com/anchor/marquise/internal/langx"
	"github.com/anchor/marquise/spool"
)

var namespacePattern = regexp.MustCompile(`^[a-z0-9]+$`)

// ValidateNamespace rejects namespaces outside [a-z0-9]+.
func ValidateNamespace(namespace string) error {
	if !namespacePattern.MatchString(namespace) {
		return errorsx.Wrapf(ErrInvalidNamespace, "namespace %q", namespace)
	}

	return nil
}

type Option func(*Context)

// OptionSpoolDirectory overrides the base spool directory.
func OptionSpoolDirectory(dir string) Option {
	return func(c *Context) {
		c.base = dir
	}
}

// OptionSegmentBytes overrides the segment rotation threshold.
func OptionSegmentBytes(n int64) Option {
	return func(c *Context) {
		c.segment = n
	}
}

// Open establishes a context for the namespace, deriving its spool layout
// and preparing the points and contents streams for appends. the namespace
// is validated before any filesystem access.
func Open(namespace string, options ...Option) (_ *Context, err error) {
	if err = ValidateNamespace(namespace); err != nil {
		return nil, err
	}

	ctx := langx.Clone(Context{
		m:         &sync.RWMutex{},
		namespace: namespace,
		base:      DefaultSpoolDirectory(),
		segment:   DefaultSegmentBytes(spool.DefaultSegmentBytes),
	}, options...)

	ctx.dirs = spool.NewDirs(ctx.base, namespace)
	if err = ctx.dirs.Ensure(); err != nil {
		return nil, errorsx.Wrapf(err, "unable to prepare spool for namespace %q", namespace)
	}

	ctx.points = spool.NewAppender(ctx.dirs.Points, spool.AppenderOptionSegmentBytes(ctx.segment))
	ctx.contents = spool.NewAppender(ctx.dirs.Contents, spool.AppenderOptionSegmentBytes(ctx.segment))

	return &ctx, nil
}

// Context is a handle bound to a namespace, owning the appenders of its two
// spool streams. safe for concurrent use. must be closed explicitly, Close
// flushes and seals everything previously enqueued.
type Context struct {
	m         *sync.RWMutex
	namespace string
	base      string
	segment   int64
	dirs      spool.Dirs
	points    *spool.Appender
	contents  *spool.Appender
	closed    bool
}

func (t *Context) Namespace() string {
	return t.namespace
}

// Dirs exposes the derived spool layout of the namespace.
func (t *Context) Dirs() spool.Dirs {
	return t.dirs
}

func (t *Context) String() string {
	return fmt.Sprintf("marquise handle spooling to %s and %s", t.dirs.Points, t.dirs.Contents)
}

// SendSimple enqueues a simple datapoint. a zero ts substitutes the current
// wall clock time. returns once the record is appended to the points spool,
// no network traffic occurs.
func (t *Context) SendSimple(address uint64, ts time.Time, value uint64) error {
	return t.append(t.points, EncodeSimple(nil, SimplePoint{
		Address:   address,
		Timestamp: timestamp(ts),
		Value:     value,
	}))
}

// SendExtended enqueues an extended datapoint, the value is recorded with an
// explicit length and may contain arbitrary bytes. a zero ts substitutes the
// current wall clock time.
func (t *Context) SendExtended(address uint64, ts time.Time, value []byte) error {
	return t.append(t.points, EncodeExtended(nil, ExtendedPoint{
		Address:   address,
		Timestamp: timestamp(ts),
		Value:     value,
	}))
}

// UpdateSource enqueues a replacement of the source metadata for an address.
// fields must be non empty and every key present, validation failures surface
// before anything is serialized so no partial record can land.
func (t *Context) UpdateSource(address uint64, fields map[string]string) error {
	if len(fields) == 0 {
		return errorsx.Wrap(ErrInvalidSource, "no fields supplied")
	}

	for k := range fields {
		if k == "" {
			return errorsx.Wrap(ErrInvalidSource, "empty field key")
		}
	}

	return t.append(t.contents, EncodeSource(nil, SourceRecord{
		Address: address,
		Fields:  fields,
	}))
}

// Sync forces both streams to stable storage.
func (t *Context) Sync() error {
	t.m.RLock()
	defer t.m.RUnlock()

	if t.closed {
		return ErrClosed
	}

	return errorsx.Compact(t.points.Sync(), t.contents.Sync())
}

// Close flushes buffered appends, seals the open segments for transmission
// and releases held resources. idempotent, later calls are no-ops. the
// handle is inert afterwards, writes fail with ErrClosed.
func (t *Context) Close() error {
	t.m.Lock()
	defer t.m.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	return errorsx.Compact(t.points.Close(), t.contents.Close())
}

func (t *Context) append(dst *spool.Appender, payload []byte) error {
	t.m.RLock()
	defer t.m.RUnlock()

	if t.closed {
		return ErrClosed
	}

	return dst.Append(payload)
}

func timestamp(ts time.Time) uint64 {
	if ts.IsZero() {
		ts = time.Now()
	}

	return uint64(ts.UnixNano())
}
