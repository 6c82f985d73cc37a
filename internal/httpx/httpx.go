// Package httpx helpers for working with http requests and responses.
package httpx

import (
	"net/http"

	"github.com/anchor/marquise/internal/errorsx"
)

// AsError converts failed responses into an Error exposing the status code.
func AsError(r *http.Response, err error) (*http.Response, error) {
	if err != nil {
		return r, err
	}

	if r.StatusCode >= 400 {
		return r, &Error{Code: r.StatusCode, cause: errorsx.New(r.Status)}
	}

	return r, nil
}

// AutoClose nil safe close of the response body.
func AutoClose(r *http.Response) error {
	if r == nil {
		return nil
	}

	return r.Body.Close()
}

// Error holds the status code of a failed request.
type Error struct {
	Code  int
	cause error
}

func (t Error) Error() string {
	return t.cause.Error()
}

func (t Error) Is(target error) bool {
	_, ok := target.(*Error)
	return ok
}

func (t Error) As(target any) bool {
	if x, ok := target.(*Error); ok {
		*x = t
		return ok
	}

	return false
}
