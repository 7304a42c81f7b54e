package http

import (
	"context"
	"sync"
)

// writerTask is one background body-write in flight. It is cancellable
// and exposes a done channel plus a one-shot completion observer.
type writerTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startWriterTask(run func(ctx context.Context)) *writerTask {
	ctx, cancel := context.WithCancel(context.Background())
	t := &writerTask{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		run(ctx)
	}()
	return t
}

func (t *writerTask) Cancel() { t.cancel() }

func (t *writerTask) Completed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *writerTask) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// onDone registers fn to run once the task completes. If the task is
// already done, fn runs synchronously before onDone returns.
func (t *writerTask) onDone(fn func()) {
	select {
	case <-t.done:
		fn()
	default:
		go func() {
			<-t.done
			fn()
		}()
	}
}

// taskOwner holds the writer handle for a request/response pair. The
// handle self-clears the instant the task completes, so liveness
// checks never observe a finished writer as "in flight". take()
// detaches the handle without waiting; the completion observer's
// identity guard makes the detach implicit.
type taskOwner struct {
	mu   sync.Mutex
	task *writerTask
}

func (o *taskOwner) set(t *writerTask) {
	o.mu.Lock()
	o.task = t
	o.mu.Unlock()
	if t == nil {
		return
	}
	t.onDone(func() {
		o.mu.Lock()
		if o.task == t {
			o.task = nil
		}
		o.mu.Unlock()
	})
}

func (o *taskOwner) get() *writerTask {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.task
}

func (o *taskOwner) take() *writerTask {
	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.task
	o.task = nil
	return t
}
