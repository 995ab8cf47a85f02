package content

import (
	"context"
	"sync"
	"sync/atomic"
)

// Callback is invoked exactly once when a read-into operation completes, with
// the total bytes forwarded and the error, if any. It may run inline on the
// thread which resolved the outcome, possibly holding channel state, so it
// must not call back into the Channel.
type Callback func(n int64, err error)

// Completion is a single-assignment result cell for one read-into operation.
// Several paths race to resolve it (terminal chunk acked, stream error,
// forced close); the first wins and the rest are no-ops.
type Completion struct {
	cb    Callback
	bytes atomic.Int64
	once  sync.Once
	done  chan struct{}

	// written by the winning resolver, before done is closed.
	n   int64
	err error
}

func newCompletion(cb Callback) *Completion {
	return &Completion{
		cb:   cb,
		done: make(chan struct{}),
	}
}

// addBytes records delta more bytes forwarded to the destination.
func (c *Completion) addBytes(delta int64) {
	c.bytes.Add(delta)
}

// resolve assigns the outcome. Only the first caller has any effect.
func (c *Completion) resolve(err error) {
	c.once.Do(func() {
		c.n = c.bytes.Load()
		c.err = err
		close(c.done)
		if c.cb != nil {
			c.cb(c.n, c.err)
		}
	})
}

// Done returns a channel which is closed once the outcome is resolved.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Result returns the outcome. Only valid after Done is closed.
func (c *Completion) Result() (int64, error) {
	return c.n, c.err
}

// Wait blocks until the outcome is resolved or ctx is cancelled.
func (c *Completion) Wait(ctx context.Context) (int64, error) {
	select {
	case <-c.done:
		return c.n, c.err
	case <-ctx.Done():
		return c.bytes.Load(), ctx.Err()
	}
}
