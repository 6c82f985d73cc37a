package langx_test

import (
	"testing"

	"github.com/anchor/marquise/internal/langx"
	"github.com/stretchr/testify/require"
)

type settings struct {
	dir     string
	maximum int64
}

type option func(*settings)

func TestClone(t *testing.T) {
	t.Run("applies named option types to a copy", func(t *testing.T) {
		base := settings{dir: "spool", maximum: 16}
		options := []option{
			func(s *settings) { s.maximum = 32 },
			func(s *settings) { s.dir = "quarantine" },
		}

		cloned := langx.Clone(base, options...)

		require.Equal(t, settings{dir: "quarantine", maximum: 32}, cloned)
		require.Equal(t, settings{dir: "spool", maximum: 16}, base)
	})

	t.Run("no options yields an identical copy", func(t *testing.T) {
		base := settings{dir: "spool", maximum: 16}
		require.Equal(t, base, langx.Clone(base, []option(nil)...))
	})
}
