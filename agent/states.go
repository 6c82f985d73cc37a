package agent

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"time"

	"github.com/anchor/marquise/internal/debugx"
	"github.com/anchor/marquise/internal/errorsx"
	"github.com/anchor/marquise/internal/httpx"
	"github.com/anchor/marquise/spool"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
)

type state interface {
	Update(context.Context) state
}

func terminate(cause error) state {
	return stateterminated{
		cause: cause,
	}
}

type stateterminated struct {
	cause error
}

func (t stateterminated) Update(ctx context.Context) state {
	log.Println(errorsx.Wrap(t.cause, "terminating agent due to error"))
	return nil
}

func failure(cause error, n state) state {
	return statefailure{
		cause: cause,
		next:  n,
	}
}

type statefailure struct {
	cause error
	next  state
}

func (t statefailure) Update(ctx context.Context) state {
	log.Println(t.cause)
	return t.next
}

func newdelay(d time.Duration, next state) state {
	return statedelay{
		d:    d,
		next: next,
	}
}

type statedelay struct {
	d    time.Duration
	next state
}

func (t statedelay) Update(ctx context.Context) state {
	select {
	case <-ctx.Done():
		return terminate(ctx.Err())
	case <-time.After(t.d):
		return t.next
	}
}

type staterecover struct {
	*Agent
}

func (t staterecover) Update(ctx context.Context) state {
	if err := recoverOrphans(t.Agent); err != nil {
		return failure(errorsx.Wrap(err, "recovery failed"), idle(t.Agent))
	}

	return idle(t.Agent)
}

// recoverOrphans seals open segments abandoned by crashed writers so their
// records become transmittable.
func recoverOrphans(a *Agent) (err error) {
	for _, stream := range spool.Streams() {
		orphaned, err := spool.Orphans(a.dirs.Dir(stream), a.grace)
		if err != nil {
			return err
		}

		for _, path := range orphaned {
			if _, err = spool.Seal(path); err != nil {
				return err
			}

			log.Println("sealed orphaned segment", path)
		}
	}

	return nil
}

func idle(a *Agent) state {
	return stateidle{Agent: a}
}

type stateidle struct {
	*Agent
	attempt int
}

func (t stateidle) Update(ctx context.Context) state {
	// check for transmittable work, rotating the stream scanned first so a
	// continuously busy stream cannot starve the other.
	streams := spool.Streams()
	for i := range streams {
		stream := streams[(t.scan+i)%len(streams)]

		sealed, err := spool.Sealed(t.dirs.Dir(stream))
		if err != nil {
			return failure(err, newdelay(t.strategy.Backoff(t.attempt), stateidle{Agent: t.Agent, attempt: t.attempt + 1}))
		}

		if len(sealed) > 0 {
			t.scan = (t.scan + i + 1) % len(streams)
			return newdrain(t.Agent, stream, sealed[0])
		}
	}

	// nothing sealed, sweep for segments abandoned since recovery.
	if err := recoverOrphans(t.Agent); err != nil {
		log.Println(errorsx.Wrap(err, "orphan sweep failed"))
	}

	// otherwise wait for writer activity.
	return t.await(ctx)
}

func (t stateidle) await(ctx context.Context) state {
	pending, err := fsnotify.NewWatcher()
	if err != nil {
		return failure(errorsx.Wrap(err, "unable to watch spool"), newdelay(t.strategy.Backoff(t.attempt), stateidle{Agent: t.Agent, attempt: t.attempt + 1}))
	}
	defer func() { errorsx.Log(errorsx.Wrap(pending.Close(), "unable to close spool watch")) }()

	for _, stream := range spool.Streams() {
		if err = pending.Add(t.dirs.Dir(stream)); err != nil {
			return failure(errorsx.Wrap(err, "unable to watch spool"), newdelay(t.strategy.Backoff(t.attempt), stateidle{Agent: t.Agent, attempt: t.attempt + 1}))
		}
	}

	select {
	case <-ctx.Done():
		return terminate(ctx.Err())
	case ev := <-pending.Events:
		debugx.Println("spool activity", ev.String())
		return stateidle{Agent: t.Agent}
	case <-time.After(t.strategy.Backoff(t.attempt)):
		return stateidle{Agent: t.Agent, attempt: t.attempt + 1}
	}
}

func newdrain(a *Agent, stream, path string) state {
	src, err := os.Open(path)
	if err != nil {
		return failure(errorsx.Wrapf(err, "unable to open segment: %s", path), idle(a))
	}

	log.Println("draining segment initiated", path)

	return &statedrain{
		Agent:  a,
		stream: stream,
		path:   path,
		src:    src,
		cursor: spool.NewCursor(src),
	}
}

type statedrain struct {
	*Agent
	stream string
	path   string
	src    *os.File
	cursor *spool.Cursor
	done   error
}

func (t *statedrain) Update(ctx context.Context) state {
	var (
		body    []byte
		records int
	)

	for records < t.batchRecords && int64(len(body)) < t.batchBytes {
		payload, err := t.cursor.Next()
		if err != nil {
			t.done = err
			break
		}

		body = spool.AppendFrame(body, payload)
		records++
	}

	if records > 0 {
		return transmit(t, body, records)
	}

	return t.finalize()
}

// finalize disposes of the segment once every readable record was
// acknowledged. consumed segments are removed, damaged ones quarantined.
func (t *statedrain) finalize() state {
	errorsx.Log(errorsx.Wrap(t.src.Close(), "unable to close segment"))

	switch {
	case errors.Is(t.done, io.EOF):
	case errors.Is(t.done, spool.ErrTornRecord):
		// expected after a writer crash, every complete record before the
		// tear was transmitted.
		log.Println("skipped torn record at end of segment", t.path)
	case errors.Is(t.done, spool.ErrCorruptRecord):
		return t.quarantine(t.done)
	default:
		return failure(errorsx.Wrapf(t.done, "unable to drain segment: %s", t.path), idle(t.Agent))
	}

	if err := os.Remove(t.path); err != nil {
		return failure(errorsx.Wrapf(err, "unable to remove consumed segment: %s", t.path), idle(t.Agent))
	}

	log.Println("draining segment completed", t.path)

	return idle(t.Agent)
}

// quarantine moves the remainder of the segment out of the drain path so a
// single damaged or rejected segment never stalls the queue.
func (t *statedrain) quarantine(cause error) state {
	errorsx.Log(errorsx.Wrap(t.src.Close(), "unable to close segment"))

	dst, err := spool.Quarantine(t.dirs.Quarantine, t.path)
	if err != nil {
		return failure(err, idle(t.Agent))
	}

	log.Println(errorsx.Wrapf(cause, "segment quarantined to %s", dst))

	return idle(t.Agent)
}

func transmit(d *statedrain, body []byte, records int) state {
	return statetransmit{
		d:       d,
		body:    body,
		records: records,
	}
}

type statetransmit struct {
	d       *statedrain
	body    []byte
	records int
	attempt int
}

func (t statetransmit) Update(ctx context.Context) state {
	var herr *httpx.Error

	err := t.d.ingest.Transmit(ctx, t.d.namespace, t.d.stream, t.body, t.records)

	switch {
	case err == nil:
		debugx.Printf("transmitted %d records (%s) from %s\n", t.records, humanize.IBytes(uint64(len(t.body))), t.d.path)
		return t.d
	case errors.As(err, &herr) && herr.Code < 500:
		// the remote rejected the batch, retrying cannot succeed.
		return t.d.quarantine(errorsx.Wrapf(err, "batch rejected by remote"))
	default:
		// transient, retransmit the same batch. duplicate delivery is
		// acceptable, loss is not.
		return failure(
			errorsx.Wrapf(err, "transmission failed, attempt %d", t.attempt),
			newdelay(t.d.strategy.Backoff(t.attempt), statetransmit{d: t.d, body: t.body, records: t.records, attempt: t.attempt + 1}),
		)
	}
}
