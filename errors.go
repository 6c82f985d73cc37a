package marquise

import "github.com/anchor/marquise/internal/errorsx"

const (
	// ErrInvalidNamespace namespace must match [a-z0-9]+. recoverable, the
	// caller provided a bad namespace.
	ErrInvalidNamespace = errorsx.String("marquise: invalid namespace, must match [a-z0-9]+")
	// ErrInvalidSource source metadata failed validation before serialization.
	ErrInvalidSource = errorsx.String("marquise: invalid source metadata")
	// ErrClosed the handle was used after Close.
	ErrClosed = errorsx.String("marquise: closed handle")
	// ErrMalformedRecord a wire payload could not be decoded.
	ErrMalformedRecord = errorsx.String("marquise: malformed record")
)
