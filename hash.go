package marquise

import (
	"github.com/anchor/marquise/internal/errorsx"
	"github.com/minio/highwayhash"
)

// the key is fixed and all zero, independent clients must derive identical
// addresses for the same identifier without coordination.
var hashkey [32]byte

// HashIdentifier derives the 64-bit address of an identifier. deterministic
// across processes and runs, and pseudorandom over the entire input,
// embedded nulls included. the empty identifier is valid.
func HashIdentifier(identifier []byte) uint64 {
	h := errorsx.Must(highwayhash.New64(hashkey[:]))

	// hash.Hash writers never fail.
	_, _ = h.Write(identifier)

	return h.Sum64()
}
