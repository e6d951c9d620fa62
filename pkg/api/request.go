package api

import (
	"context"
	"net/url"

	"github.com/rs/zerolog/log"
)

// Request is an in-flight call that can be abandoned. It starts as soon as it is created.
type Request[T any] struct {
	method string
	path   string
	cancel context.CancelFunc
	done   chan struct{}
	result T
	err    error
}

func start[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) *Request[T] {
	ctx, cancel := context.WithCancel(ctx)

	r := &Request[T]{
		method: method,
		path:   path,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(r.done)
		defer cancel()

		r.err = c.do(ctx, method, path, query, body, &r.result)
	}()

	return r
}

// Done is closed once the request has finished or been cancelled.
func (r *Request[T]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the response arrives or ctx ends. If ctx ends first the
// request is cancelled and ErrCanceled returned.
func (r *Request[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		r.Cancel()

		var zero T

		return zero, ErrCanceled
	}
}

// Cancel abandons the request. Its outcome is dropped without notifying anyone.
func (r *Request[T]) Cancel() {
	select {
	case <-r.done:
		return
	default:
	}

	log.Debug().Str("method", r.method).Str("path", r.path).Msg("request cancelled by caller")
	r.cancel()
}
