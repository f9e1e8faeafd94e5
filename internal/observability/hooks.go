package observability

import (
	"context"
	"sync"
	"time"
)

// OperationInfo describes one dispatched action, e.g. Tasks.Move.
type OperationInfo struct {
	Resource   string // e.g. "Tasks", "Workspaces"
	Action     string // e.g. "Move", "List"
	IsMutation bool
	Scope      string // realm the action writes into
}

// RequestInfo describes one HTTP attempt against the gateway.
type RequestInfo struct {
	Method  string
	URL     string
	Attempt int
}

// RequestResult is the outcome of one HTTP attempt.
type RequestResult struct {
	StatusCode int
	Duration   time.Duration
	Retryable  bool
	Error      error
}

// Hooks receives lifecycle callbacks from the gateway client and the
// dispatcher. Implementations must be safe for concurrent use.
type Hooks interface {
	OnOperationStart(ctx context.Context, op OperationInfo) context.Context
	OnOperationEnd(ctx context.Context, op OperationInfo, err error, duration time.Duration)
	OnRequestStart(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd(ctx context.Context, info RequestInfo, result RequestResult)
	OnRetry(ctx context.Context, info RequestInfo, attempt int, err error)
}

// NopHooks ignores every callback.
type NopHooks struct{}

func (NopHooks) OnOperationStart(ctx context.Context, _ OperationInfo) context.Context { return ctx }
func (NopHooks) OnOperationEnd(context.Context, OperationInfo, error, time.Duration)   {}
func (NopHooks) OnRequestStart(ctx context.Context, _ RequestInfo) context.Context     { return ctx }
func (NopHooks) OnRequestEnd(context.Context, RequestInfo, RequestResult)              {}
func (NopHooks) OnRetry(context.Context, RequestInfo, int, error)                      {}

var _ Hooks = (*CLIHooks)(nil)

// CLIHooks implements Hooks for CLI observability.
// It supports configurable verbosity levels:
//   - 0: Silent (collect stats only, no output)
//   - 1: Operations only
//   - 2: Operations + HTTP requests
type CLIHooks struct {
	mu        sync.Mutex
	level     int
	collector *SessionCollector
	writer    *TraceWriter
}

// NewCLIHooks creates a new CLIHooks with the given verbosity level.
// If collector is nil, metrics are not collected.
// If writer is nil, no trace output is produced.
func NewCLIHooks(level int, collector *SessionCollector, writer *TraceWriter) *CLIHooks {
	return &CLIHooks{
		level:     level,
		collector: collector,
		writer:    writer,
	}
}

// SetLevel changes the verbosity level at runtime.
func (h *CLIHooks) SetLevel(level int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = level
}

// Level returns the current verbosity level.
func (h *CLIHooks) Level() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level
}

func (h *CLIHooks) snapshot() (int, *SessionCollector, *TraceWriter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level, h.collector, h.writer
}

// OnOperationStart is called when a dispatched action begins.
func (h *CLIHooks) OnOperationStart(ctx context.Context, op OperationInfo) context.Context {
	level, _, writer := h.snapshot()
	if level >= 1 && writer != nil {
		writer.WriteOperationStart(op)
	}
	return ctx
}

// OnOperationEnd is called when a dispatched action completes.
func (h *CLIHooks) OnOperationEnd(_ context.Context, op OperationInfo, err error, duration time.Duration) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordOperation(OperationMetrics{
			Resource:   op.Resource,
			Action:     op.Action,
			IsMutation: op.IsMutation,
			Duration:   duration,
			Error:      err,
		})
	}
	if level >= 1 && writer != nil {
		writer.WriteOperationEnd(op, err, duration)
	}
}

// OnRequestStart is called before an HTTP request is sent.
func (h *CLIHooks) OnRequestStart(ctx context.Context, info RequestInfo) context.Context {
	level, _, writer := h.snapshot()
	if level >= 2 && writer != nil {
		writer.WriteRequestStart(info)
	}
	return ctx
}

// OnRequestEnd is called after an HTTP request completes.
func (h *CLIHooks) OnRequestEnd(_ context.Context, info RequestInfo, result RequestResult) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordRequest(RequestMetrics{
			Method:     info.Method,
			URL:        info.URL,
			Attempt:    info.Attempt,
			StatusCode: result.StatusCode,
			Duration:   result.Duration,
			Retryable:  result.Retryable,
			Error:      result.Error,
		})
	}
	if level >= 2 && writer != nil {
		writer.WriteRequestEnd(info, result)
	}
}

// OnRetry is called before a retry attempt.
func (h *CLIHooks) OnRetry(_ context.Context, info RequestInfo, attempt int, err error) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordRetry(RetryMetrics{
			Method:  info.Method,
			URL:     info.URL,
			Attempt: attempt,
			Error:   err,
		})
	}
	if level >= 2 && writer != nil {
		writer.WriteRetry(info, attempt, err)
	}
}
