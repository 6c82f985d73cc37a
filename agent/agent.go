// Package agent implements the transmission side of the spool: a long
// running drain that batches sealed segments and ships them to the remote
// store, removing segments once the remote acknowledges them.
package agent

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/anchor/marquise"
	"github.com/anchor/marquise/backoff"
	"github.com/anchor/marquise/internal/envx"
	"github.com/anchor/marquise/internal/errorsx"
	"github.com/anchor/marquise/internal/langx"
	"github.com/anchor/marquise/spool"
	"golang.org/x/sys/unix"
)

const lockname = "agent.lock"

// ErrAlreadyRunning another agent instance is draining this namespace.
const ErrAlreadyRunning = errorsx.String("agent: namespace is already being drained")

type Option func(*Agent)

// OptionSpoolDirectory overrides the base spool directory.
func OptionSpoolDirectory(dir string) Option {
	return func(a *Agent) {
		a.base = dir
	}
}

// OptionHost overrides the remote store endpoint.
func OptionHost(host string) Option {
	return func(a *Agent) {
		a.host = host
	}
}

// OptionClient overrides the http client used for transmissions.
func OptionClient(c *http.Client) Option {
	return func(a *Agent) {
		a.client = c
	}
}

// OptionStrategy overrides the retry/scan backoff strategy.
func OptionStrategy(s backoff.Strategy) Option {
	return func(a *Agent) {
		a.strategy = s
	}
}

// OptionBatch overrides the batching thresholds.
func OptionBatch(records int, bytes int64) Option {
	return func(a *Agent) {
		a.batchRecords = records
		a.batchBytes = bytes
	}
}

// OptionOrphanGrace overrides how long an unlocked open segment must sit
// untouched before recovery seals it.
func OptionOrphanGrace(d time.Duration) Option {
	return func(a *Agent) {
		a.grace = d
	}
}

// New creates an agent for the namespace. tunables default from the
// environment, see the marquise package env constants.
func New(namespace string, options ...Option) *Agent {
	a := langx.Clone(Agent{
		namespace: namespace,
		base:      marquise.DefaultSpoolDirectory(),
		host:      marquise.EnvIngestHostDefault(),
		client:    http.DefaultClient,
		strategy: backoff.New(
			backoff.Exponential(envx.Duration(200*time.Millisecond, marquise.EnvAgentBackoffScale)),
			backoff.Maximum(envx.Duration(time.Minute, marquise.EnvAgentBackoffMaximum)),
			backoff.Jitter(envx.Float64(0.02, marquise.EnvAgentBackoffJitter)),
		),
		batchRecords: envx.Int(1024, marquise.EnvAgentBatchRecords),
		batchBytes:   envx.Int64(1<<20, marquise.EnvAgentBatchBytes),
		grace:        envx.Duration(time.Minute, marquise.EnvAgentOrphanGrace),
	}, options...)

	// a zero batch can never make progress.
	a.batchRecords = max(1, a.batchRecords)
	a.batchBytes = max(1, a.batchBytes)

	return &a
}

// Agent drains the spool of a single namespace. exactly one instance may run
// per namespace, enforced with an advisory lock.
type Agent struct {
	namespace    string
	base         string
	host         string
	client       *http.Client
	strategy     backoff.Strategy
	batchRecords int
	batchBytes   int64
	grace        time.Duration
	dirs         spool.Dirs
	ingest       *IngestClient
	scan         int // stream scanned first on the next idle pass
}

// Run drains the namespace until the context is cancelled. writers are never
// blocked, the agent only consumes sealed segments.
func (t *Agent) Run(ctx context.Context) (err error) {
	if err = marquise.ValidateNamespace(t.namespace); err != nil {
		return err
	}

	t.dirs = spool.NewDirs(t.base, t.namespace)
	if err = t.dirs.Ensure(); err != nil {
		return err
	}

	lock, err := t.acquire()
	if err != nil {
		return err
	}
	defer lock.Close()

	t.ingest = NewIngestClient(t.client, t.host)

	var s state = staterecover{Agent: t}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			s = s.Update(ctx)
		}

		if s == nil {
			return nil
		}
	}
}

func (t *Agent) acquire() (lock *os.File, err error) {
	path := filepath.Join(t.dirs.Root, lockname)

	if lock, err = os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600); err != nil {
		return nil, errorsx.Wrapf(err, "unable to open agent lock: %s", path)
	}

	if err = unix.Flock(int(lock.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		errorsx.Log(errorsx.Wrap(lock.Close(), "unable to close agent lock"))
		return nil, errorsx.Wrapf(ErrAlreadyRunning, "namespace %q", t.namespace)
	}

	return lock, nil
}
