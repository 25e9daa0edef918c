// Package parallel runs independent release work concurrently.
package parallel

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/lngkit/sparkrelease/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// SafeGroup wraps errgroup.Group and turns a panicking task into an error
// so one bad transform cannot take the whole release down silently.
type SafeGroup struct {
	group  *errgroup.Group
	logger logger.Logger
}

// NewSafeGroup creates a SafeGroup whose context is canceled on the first error.
func NewSafeGroup(ctx context.Context, log logger.Logger) (*SafeGroup, context.Context) {
	if log == nil {
		log = logger.Discard()
	}
	g, ctx := errgroup.WithContext(ctx)
	return &SafeGroup{group: g, logger: log}, ctx
}

// PanicError is returned in place of a task that panicked.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panic: %v", e.Value)
}

// Go runs fn in a new goroutine, recovering any panic as a *PanicError.
func (sg *SafeGroup) Go(fn func() error) {
	sg.group.Go(func() error {
		return Safely(sg.logger, fn)
	})
}

// Safely calls fn and turns a panic into a *PanicError.
func Safely(log logger.Logger, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			if log != nil {
				log.Error("Task panic recovered",
					logger.WithField("panic", r),
					logger.WithField("stack_trace", string(stack)))
			}
			err = &PanicError{Value: r, Stack: stack}
		}
	}()
	return fn()
}

// SetLimit bounds the number of tasks running at once.
func (sg *SafeGroup) SetLimit(n int) {
	sg.group.SetLimit(n)
}

// Wait blocks until every task has returned and reports the first error.
func (sg *SafeGroup) Wait() error {
	return sg.group.Wait()
}
