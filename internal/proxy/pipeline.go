package proxy

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lwmacct/251124-liveproxy/internal/args"
	"github.com/lwmacct/251124-liveproxy/internal/resolver"
)

var (
	// ErrNoResolver is returned when no resolver owns the target URL.
	ErrNoResolver = errors.New("no resolver for URL")
	// ErrMissingArguments is returned in strict requirements mode when a
	// required resolver argument is unset.
	ErrMissingArguments = errors.New("missing required arguments")
)

// acquire merges the per-request argument list for targetURL and obtains
// a stream. The base arguments from the server config come first, so the
// request URL and stream list override them. Client values are bound to
// their flag in a single token so they are never read as @file directives.
func (s *Server) acquire(ctx context.Context, targetURL, streams string) (resolver.Stream, error) {
	arglist := slices.Clone(s.config.Args)
	arglist = append(arglist, "--url="+targetURL)
	if streams != "" {
		arglist = append(arglist, "--stream="+streams)
	}

	a, err := s.merger.Merge(arglist, true)
	if err != nil {
		return nil, fmt.Errorf("merge arguments: %w", err)
	}
	return s.acquireArgs(ctx, a)
}

// acquireArgs applies a to a request-owned copy of the resolver options,
// checks requirements and calls the resolver.
func (s *Server) acquireArgs(ctx context.Context, a *args.Args) (resolver.Stream, error) {
	r, ok := s.session.ResolveURL(a.URL)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoResolver, a.URL)
	}
	name := r.Name()

	opts := s.session.PluginOptions(name)
	reqs := resolver.Apply(r.Arguments(), a.PluginValues(name), opts)
	if reqs.Cycle {
		s.logger.Error("resolver has a configuration error and the arguments cannot be parsed", "resolver", name)
	}
	for _, arg := range reqs.Missing {
		s.logger.Error("missing required argument", "resolver", name, "argument", arg.Name)
	}
	if len(reqs.Missing) > 0 && s.config.StrictRequirements {
		missing := make([]string, len(reqs.Missing))
		for i, arg := range reqs.Missing {
			missing[i] = arg.FlagName(name)
		}
		return nil, fmt.Errorf("%w: %s", ErrMissingArguments, strings.Join(missing, ", "))
	}

	globals := s.session.Options()
	client, err := s.session.HTTPClient(globals)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	stream, err := r.Acquire(ctx, &resolver.Request{
		URL:     a.URL,
		Streams: a.Streams,
		Options: opts,
		Globals: globals,
		HTTP:    client,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stream, nil
}
