package marquise_test

import (
	"testing"

	"github.com/anchor/marquise"
	"github.com/stretchr/testify/require"
)

func TestDecodeRejectsMalformedPayloads(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		_, err := marquise.DecodeSimple(nil)
		require.ErrorIs(t, err, marquise.ErrMalformedRecord)

		extended := marquise.EncodeExtended(nil, marquise.ExtendedPoint{Address: 1, Value: []byte("x")})
		_, err = marquise.DecodeSimple(extended)
		require.ErrorIs(t, err, marquise.ErrMalformedRecord)
	})

	t.Run("extended", func(t *testing.T) {
		_, err := marquise.DecodeExtended(nil)
		require.ErrorIs(t, err, marquise.ErrMalformedRecord)

		// declared length longer than the payload.
		truncated := marquise.EncodeExtended(nil, marquise.ExtendedPoint{Address: 1, Value: []byte("abcdef")})
		_, err = marquise.DecodeExtended(truncated[:len(truncated)-2])
		require.ErrorIs(t, err, marquise.ErrMalformedRecord)
	})

	t.Run("source", func(t *testing.T) {
		_, err := marquise.DecodeSource(nil)
		require.ErrorIs(t, err, marquise.ErrMalformedRecord)

		encoded := marquise.EncodeSource(nil, marquise.SourceRecord{Address: 1, Fields: map[string]string{"k": "value"}})

		_, err = marquise.DecodeSource(encoded[:len(encoded)-3])
		require.ErrorIs(t, err, marquise.ErrMalformedRecord)

		_, err = marquise.DecodeSource(append(encoded, 0x00))
		require.ErrorIs(t, err, marquise.ErrMalformedRecord)
	})
}
