package resolver

import (
	"context"
	"errors"
	"io"

	"resty.dev/v3"
)

// ErrNoStream is returned by Acquire when none of the requested streams exist.
var ErrNoStream = errors.New("no playable stream")

// Resolver maps a target URL to a retrievable media stream.
type Resolver interface {
	// Name is the module name, used for flag namespacing and config file suffixes.
	Name() string
	// Match reports whether the resolver owns url.
	Match(url string) bool
	// Arguments returns the options the resolver understands, in declaration order.
	Arguments() *Arguments
	// Acquire resolves req.URL into a stream using only the options carried by req.
	Acquire(ctx context.Context, req *Request) (Stream, error)
}

// Request carries everything a resolver may read while acquiring a stream.
// Options and Globals are snapshots owned by the request.
type Request struct {
	URL     string
	Streams []string      // requested stream names, lower-case, in preference order
	Options *Options      // resolver options after all config layers
	Globals *Options      // session option store snapshot
	HTTP    *resty.Client // session HTTP client for the current transport profile
}

// Stream is a resolved media stream.
type Stream interface {
	// URL returns the direct URL of the stream, or "" if it cannot be redirected to.
	URL() string
	// Open starts reading the stream. Cancelling ctx aborts the transfer.
	Open(ctx context.Context) (io.ReadCloser, error)
}
