package playback

import (
	"context"
	"sync"
	"time"

	"github.com/vesper-player/vesper/log"
)

const (
	workerQueue   = 64
	workerTimeout = 15 * time.Second
)

// worker runs collaborator calls one at a time in submission order, off the
// control loop.
type worker struct {
	mu     sync.Mutex
	tasks  chan func(ctx context.Context)
	closed bool
	done   chan struct{}
}

func newWorker() *worker {
	w := &worker{
		tasks: make(chan func(ctx context.Context), workerQueue),
		done:  make(chan struct{}),
	}

	go w.run()
	return w
}

func (w *worker) run() {
	defer close(w.done)

	for task := range w.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), workerTimeout)
		task(ctx)
		cancel()
	}
}

// submit never blocks: a full queue drops the task.
func (w *worker) submit(name string, task func(ctx context.Context) error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	wrapped := func(ctx context.Context) {
		if err := task(ctx); err != nil {
			log.Warnf("%s: %s", name, err)
		}
	}

	select {
	case w.tasks <- wrapped:
	default:
		log.Warnf("%s: worker queue full, dropping", name)
	}
}

// flush waits until every task submitted so far has run.
func (w *worker) flush() {
	barrier := make(chan struct{})

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.tasks <- func(context.Context) { close(barrier) }
	w.mu.Unlock()

	<-barrier
}

// close drains the queue and returns a channel closed once it is empty.
func (w *worker) close() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.closed {
		w.closed = true
		close(w.tasks)
	}

	return w.done
}
