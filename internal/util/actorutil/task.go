package actorutil

import (
	"errors"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

var errNilResult = errors.New("result is nil")

// BackgroundTask evaluates fn, bounded by an optional timeout, and pipes the
// value to an actor. Failures (errors, panics, timeouts) are piped through
// the Recover function; without one they are dropped.
type BackgroundTask[T any] struct {
	ctx     actor.Context
	fn      func() (*T, error)
	timeout time.Duration
	recover func(error) T
}

func NewBackgroundTask[T any](ctx actor.Context, fn func() (*T, error)) *BackgroundTask[T] {
	return &BackgroundTask[T]{
		ctx: ctx,
		fn:  fn,
	}
}

// MapBackgroundTask transforms the value of t once it succeeds.
func MapBackgroundTask[T, T2 any](t *BackgroundTask[T], mapFn func(*T) *T2) *BackgroundTask[T2] {
	return &BackgroundTask[T2]{
		ctx: t.ctx,
		fn: func() (*T2, error) {
			v, err := t.fn()
			if err != nil {
				return nil, err
			}
			return mapFn(v), nil
		},
		timeout: t.timeout,
	}
}

func (t *BackgroundTask[T]) WithTimeout(timeout time.Duration) *BackgroundTask[T] {
	t.timeout = timeout
	return t
}

func (t *BackgroundTask[T]) Recover(fn func(error) T) *BackgroundTask[T] {
	t.recover = fn
	return t
}

func (t *BackgroundTask[T]) PipeTo(pid *actor.PID) {
	value, err := t.run()
	if err != nil {
		if t.recover == nil {
			return
		}
		value = t.recover(err)
	}
	t.ctx.Send(pid, value)
}

func (t *BackgroundTask[T]) run() (T, error) {
	task := io.Map(io.Eval(t.fn), func(v *T) T {
		if v == nil {
			panic(errNilResult)
		}
		return *v
	})
	if t.timeout > 0 {
		task = io.WithTimeout[T](t.timeout)(task)
	}
	result := io.RunSync(task)
	return result.Value, result.Error
}
