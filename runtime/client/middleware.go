package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/satishbabariya/sqlwrap/telemetry"
)

// QueryEvent represents a query execution event
type QueryEvent struct {
	Query    string
	Args     []interface{}
	Depth    int
	Duration time.Duration
	Error    error
	Start    time.Time
	End      time.Time
}

// Middleware is a function that intercepts queries. It must call next once.
type Middleware func(ctx context.Context, event *QueryEvent, next func() error) error

// Use adds middlewares to the end of the chain.
func (c *Client) Use(middlewares ...Middleware) {
	c.middlewares = append(c.middlewares, middlewares...)
}

// executeWithMiddleware runs exec through the middleware chain.
func (c *Client) executeWithMiddleware(ctx context.Context, query string, args []interface{}, exec func() error) error {
	if len(c.middlewares) == 0 {
		return exec()
	}

	event := &QueryEvent{
		Query: query,
		Args:  args,
		Depth: c.tx.depth,
		Start: time.Now(),
	}

	var next func() error
	index := 0

	next = func() error {
		if index >= len(c.middlewares) {
			err := exec()
			event.End = time.Now()
			event.Duration = event.End.Sub(event.Start)
			event.Error = err
			return err
		}

		middleware := c.middlewares[index]
		index++
		return middleware(ctx, event, next)
	}

	return next()
}

// LoggingMiddleware logs every statement at debug level and failures at
// error level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		attrs := []any{
			"sql", event.Query,
			"args", event.Args,
			"depth", event.Depth,
			"duration", event.Duration,
		}
		if err != nil {
			logger.ErrorContext(ctx, "statement failed", append(attrs, "err", err)...)
		} else {
			logger.DebugContext(ctx, "statement", attrs...)
		}
		return err
	}
}

// TimingMiddleware creates a middleware that measures query execution time
func TimingMiddleware(onTiming func(query string, duration time.Duration)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if onTiming != nil {
			onTiming(event.Query, event.Duration)
		}
		return err
	}
}

// ErrorMiddleware creates a middleware that handles errors
func ErrorMiddleware(onError func(query string, err error)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if err != nil && onError != nil {
			onError(event.Query, err)
		}
		return err
	}
}

// StatsMiddleware records every statement in collector.
func StatsMiddleware(collector *telemetry.Collector) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		collector.Record(event.Query, event.Duration, err)
		return err
	}
}
