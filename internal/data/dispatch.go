package data

import (
	"context"
	"errors"
	"time"

	"github.com/taskhub/taskhub-cli/internal/observability"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// DispatchOption configures one dispatch.
type DispatchOption func(*dispatchConfig)

type dispatchConfig struct {
	success string
	hooks   observability.Hooks
	op      observability.OperationInfo
}

// WithSuccess sets the success message recorded when the call succeeds.
func WithSuccess(msg string) DispatchOption {
	return func(c *dispatchConfig) { c.success = msg }
}

// WithOperation reports the dispatch to hooks as op.
func WithOperation(h observability.Hooks, op observability.OperationInfo) DispatchOption {
	return func(c *dispatchConfig) {
		c.hooks = h
		c.op = op
	}
}

// Dispatch runs one gateway call against pool p:
//
//   - before the call, p enters loading, clearing any previous error or
//     success message
//   - on success, apply folds the response into the cached data (nil
//     leaves the data unchanged), p returns to idle and the optional
//     success message is recorded
//   - on failure, p records the error while keeping cached data, and the
//     returned error carries the gateway's message and reason
//
// A response that lands after p was cleared is dropped and ErrDiscarded
// is returned in place of the result.
func Dispatch[T, R any](ctx context.Context, p *Pool[T], call func(context.Context) (R, error), apply func(cur T, has bool, resp R) T, opts ...DispatchOption) (R, error) {
	cfg := dispatchConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.hooks != nil {
		ctx = cfg.hooks.OnOperationStart(ctx, cfg.op)
	}
	start := time.Now()

	gen := p.SetLoading()
	resp, err := call(ctx)
	p.record(start, err)

	if err != nil {
		err = dispatchError(err)
		p.Fail(gen, err)
		if cfg.hooks != nil {
			cfg.hooks.OnOperationEnd(ctx, cfg.op, err, time.Since(start))
		}
		var zero R
		return zero, err
	}

	var ok bool
	if apply != nil {
		ok = p.Commit(gen, func(cur T, has bool) T { return apply(cur, has, resp) })
	} else {
		ok = p.Settle(gen)
	}
	if cfg.hooks != nil {
		cfg.hooks.OnOperationEnd(ctx, cfg.op, nil, time.Since(start))
	}
	if !ok {
		var zero R
		return zero, ErrDiscarded
	}
	if cfg.success != "" {
		p.SetSuccess(cfg.success)
	}
	return resp, nil
}

// dispatchError normalizes a failed call so callers can always read a
// user-facing message and a reason code.
func dispatchError(err error) error {
	var e *output.Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &output.Error{Code: output.CodeAPI, Message: output.GenericMessage, Cause: err}
}

// Replace is an apply function that stores the response as-is.
func Replace[T any](_ T, _ bool, resp T) T { return resp }
