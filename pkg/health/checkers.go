package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck checks p with its Ping method.
func PingCheck(p Pinger) CheckFunc {
	return p.Ping
}

// GoroutineCheck fails when more than limit goroutines are running, which
// usually means request handlers are piling up behind a stuck dependency.
func GoroutineCheck(limit int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("%d goroutines running, limit is %d", n, limit)
		}
		return nil
	}
}
