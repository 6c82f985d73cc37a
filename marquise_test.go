package marquise_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anchor/marquise"
	"github.com/anchor/marquise/internal/testx"
	"github.com/anchor/marquise/spool"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	testx.Logging()
	os.Exit(m.Run())
}

// readRecords drains every sealed segment of a stream directory in order.
func readRecords(t *testing.T, dir string) (payloads [][]byte) {
	t.Helper()

	sealed, err := spool.Sealed(dir)
	require.NoError(t, err)

	for _, path := range sealed {
		src, err := os.Open(path)
		require.NoError(t, err)
		defer src.Close()

		cursor := spool.NewCursor(src)
		for {
			payload, err := cursor.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)

			payloads = append(payloads, payload)
		}
	}

	return payloads
}

func TestOpen(t *testing.T) {
	t.Run("valid namespaces derive distinct stream paths", func(t *testing.T) {
		for _, namespace := range []string{"foo", "abc123", "0", "a"} {
			ctx, err := marquise.Open(namespace, marquise.OptionSpoolDirectory(t.TempDir()))
			require.NoError(t, err)
			require.NotEqual(t, ctx.Dirs().Points, ctx.Dirs().Contents)
			require.Contains(t, ctx.Dirs().Points, namespace)
			require.Contains(t, ctx.Dirs().Contents, namespace)
			require.NoError(t, ctx.Close())
		}
	})

	t.Run("invalid namespaces are rejected before touching the filesystem", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "spool")

		for _, namespace := range []string{"", "Foo", "foo-bar", "foo/bar", "foo.bar", "über", "foo bar"} {
			_, err := marquise.Open(namespace, marquise.OptionSpoolDirectory(base))
			require.ErrorIs(t, err, marquise.ErrInvalidNamespace, "namespace %q", namespace)
		}

		_, err := os.Stat(base)
		require.True(t, os.IsNotExist(err))
	})

	t.Run("independent opens converge on the same layout", func(t *testing.T) {
		base := t.TempDir()

		c1, err := marquise.Open("shared", marquise.OptionSpoolDirectory(base))
		require.NoError(t, err)
		defer c1.Close()

		c2, err := marquise.Open("shared", marquise.OptionSpoolDirectory(base))
		require.NoError(t, err)
		defer c2.Close()

		require.Equal(t, c1.Dirs(), c2.Dirs())
	})
}

func TestHashIdentifier(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		require.Equal(t, marquise.HashIdentifier([]byte("foo")), marquise.HashIdentifier([]byte("foo")))
	})

	t.Run("distinct identifiers diverge", func(t *testing.T) {
		require.NotEqual(t, marquise.HashIdentifier([]byte("foo")), marquise.HashIdentifier([]byte("bar")))
	})

	t.Run("hashes the whole input, embedded nulls included", func(t *testing.T) {
		require.NotEqual(t, marquise.HashIdentifier([]byte("foo")), marquise.HashIdentifier([]byte("foo\x00bar")))
	})

	t.Run("empty identifier is valid", func(t *testing.T) {
		require.Equal(t, marquise.HashIdentifier(nil), marquise.HashIdentifier([]byte{}))
	})
}

func TestSendSimple(t *testing.T) {
	t.Run("round trips through the points spool", func(t *testing.T) {
		ctx, err := marquise.Open("metrics", marquise.OptionSpoolDirectory(t.TempDir()))
		require.NoError(t, err)

		ts := time.Unix(0, 1234567890)
		require.NoError(t, ctx.SendSimple(42, ts, 7))
		require.NoError(t, ctx.Close())

		payloads := readRecords(t, ctx.Dirs().Points)
		require.Len(t, payloads, 1)

		p, err := marquise.DecodeSimple(payloads[0])
		require.NoError(t, err)
		require.Equal(t, marquise.SimplePoint{Address: 42, Timestamp: 1234567890, Value: 7}, p)
	})

	t.Run("zero timestamp substitutes wall clock time", func(t *testing.T) {
		ctx, err := marquise.Open("metrics", marquise.OptionSpoolDirectory(t.TempDir()))
		require.NoError(t, err)

		before := uint64(time.Now().UnixNano())
		require.NoError(t, ctx.SendSimple(1, time.Time{}, 2))
		after := uint64(time.Now().UnixNano())
		require.NoError(t, ctx.Close())

		payloads := readRecords(t, ctx.Dirs().Points)
		require.Len(t, payloads, 1)

		p, err := marquise.DecodeSimple(payloads[0])
		require.NoError(t, err)
		require.GreaterOrEqual(t, p.Timestamp, before)
		require.LessOrEqual(t, p.Timestamp, after)
	})
}

func TestSendExtended(t *testing.T) {
	t.Run("arbitrary bytes round trip exactly", func(t *testing.T) {
		ctx, err := marquise.Open("metrics", marquise.OptionSpoolDirectory(t.TempDir()))
		require.NoError(t, err)

		value := []byte("caf\xc3\xa9\x00\xffpayload")
		require.NoError(t, ctx.SendExtended(13, time.Unix(0, 99), value))
		require.NoError(t, ctx.Close())

		payloads := readRecords(t, ctx.Dirs().Points)
		require.Len(t, payloads, 1)

		p, err := marquise.DecodeExtended(payloads[0])
		require.NoError(t, err)
		require.Equal(t, uint64(13), p.Address)
		require.Equal(t, uint64(99), p.Timestamp)
		require.Equal(t, value, p.Value)
	})

	t.Run("empty value is valid", func(t *testing.T) {
		ctx, err := marquise.Open("metrics", marquise.OptionSpoolDirectory(t.TempDir()))
		require.NoError(t, err)

		require.NoError(t, ctx.SendExtended(13, time.Unix(0, 99), nil))
		require.NoError(t, ctx.Close())

		payloads := readRecords(t, ctx.Dirs().Points)
		require.Len(t, payloads, 1)

		p, err := marquise.DecodeExtended(payloads[0])
		require.NoError(t, err)
		require.Empty(t, p.Value)
	})
}

func TestUpdateSource(t *testing.T) {
	t.Run("round trips through the contents spool", func(t *testing.T) {
		ctx, err := marquise.Open("metrics", marquise.OptionSpoolDirectory(t.TempDir()))
		require.NoError(t, err)

		fields := map[string]string{"hostname": "web01", "unit": "bytes", "empty": ""}
		require.NoError(t, ctx.UpdateSource(42, fields))
		require.NoError(t, ctx.Close())

		payloads := readRecords(t, ctx.Dirs().Contents)
		require.Len(t, payloads, 1)

		r, err := marquise.DecodeSource(payloads[0])
		require.NoError(t, err)
		require.Equal(t, uint64(42), r.Address)
		require.Equal(t, fields, r.Fields)
	})

	t.Run("validation failures leave no trace in the spool", func(t *testing.T) {
		ctx, err := marquise.Open("metrics", marquise.OptionSpoolDirectory(t.TempDir()))
		require.NoError(t, err)

		require.ErrorIs(t, ctx.UpdateSource(1, nil), marquise.ErrInvalidSource)
		require.ErrorIs(t, ctx.UpdateSource(1, map[string]string{}), marquise.ErrInvalidSource)
		require.ErrorIs(t, ctx.UpdateSource(1, map[string]string{"": "v"}), marquise.ErrInvalidSource)

		require.NoError(t, ctx.Close())

		entries, err := os.ReadDir(ctx.Dirs().Contents)
		require.NoError(t, err)
		require.Empty(t, entries)
	})
}

func TestClose(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		ctx, err := marquise.Open("metrics", marquise.OptionSpoolDirectory(t.TempDir()))
		require.NoError(t, err)

		require.NoError(t, ctx.SendSimple(1, time.Unix(0, 1), 1))
		require.NoError(t, ctx.Close())
		require.NoError(t, ctx.Close())
	})

	t.Run("writes after close fail explicitly", func(t *testing.T) {
		ctx, err := marquise.Open("metrics", marquise.OptionSpoolDirectory(t.TempDir()))
		require.NoError(t, err)
		require.NoError(t, ctx.Close())

		require.ErrorIs(t, ctx.SendSimple(1, time.Unix(0, 1), 1), marquise.ErrClosed)
		require.ErrorIs(t, ctx.SendExtended(1, time.Unix(0, 1), []byte("v")), marquise.ErrClosed)
		require.ErrorIs(t, ctx.UpdateSource(1, map[string]string{"k": "v"}), marquise.ErrClosed)
		require.ErrorIs(t, ctx.Sync(), marquise.ErrClosed)
	})

	t.Run("close seals buffered appends for transmission", func(t *testing.T) {
		ctx, err := marquise.Open("metrics", marquise.OptionSpoolDirectory(t.TempDir()))
		require.NoError(t, err)

		require.NoError(t, ctx.SendSimple(1, time.Unix(0, 1), 1))
		require.NoError(t, ctx.Close())

		sealed, err := spool.Sealed(ctx.Dirs().Points)
		require.NoError(t, err)
		require.Len(t, sealed, 1)
	})
}

func TestConcurrentHandles(t *testing.T) {
	t.Run("handles targeting one namespace never corrupt each other", func(t *testing.T) {
		base := t.TempDir()

		c1, err := marquise.Open("shared", marquise.OptionSpoolDirectory(base))
		require.NoError(t, err)

		c2, err := marquise.Open("shared", marquise.OptionSpoolDirectory(base))
		require.NoError(t, err)

		for i := uint64(0); i < 100; i++ {
			require.NoError(t, c1.SendSimple(i, time.Unix(0, 1), i))
			require.NoError(t, c2.SendSimple(i, time.Unix(0, 1), i))
		}

		require.NoError(t, c1.Close())
		require.NoError(t, c2.Close())

		payloads := readRecords(t, c1.Dirs().Points)
		require.Len(t, payloads, 200)

		for _, payload := range payloads {
			_, err := marquise.DecodeSimple(payload)
			require.NoError(t, err)
		}
	})
}
