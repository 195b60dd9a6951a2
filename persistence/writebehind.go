package persistence

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// WriteBehindOptions configures a WriteBehind.
type WriteBehindOptions struct {
	// Rate limits background writes per second. Zero means unlimited.
	Rate rate.Limit
	// Burst is the limiter burst size. Defaults to 1.
	Burst int
	// OnError is called for failed background writes.
	OnError func(key string, err error)
}

// WriteBehind defers writes to a background goroutine.
//
// Pending writes are coalesced per key: only the latest payload of a key is
// written. Writes of the same key reach the inner persistence in order.
// Load flushes pending writes first.
type WriteBehind struct {
	inner   Persistence
	limiter *rate.Limiter
	onError func(string, error)

	mu      sync.Mutex
	pending map[string][]byte
	order   []string
	closed  bool

	// writeMu serializes pop+write so that a flush cannot overtake a write
	// in flight.
	writeMu sync.Mutex

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWriteBehind starts a write-behind wrapper around inner.
func NewWriteBehind(inner Persistence, opts WriteBehindOptions) *WriteBehind {
	limit := opts.Rate
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	onError := opts.OnError
	if onError == nil {
		onError = func(string, error) {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &WriteBehind{
		inner:   inner,
		limiter: rate.NewLimiter(limit, burst),
		onError: onError,
		pending: make(map[string][]byte),
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}

	w.wg.Add(1)
	go w.run()
	return w
}

// Load flushes pending writes and loads from the inner persistence.
func (w *WriteBehind) Load(ctx context.Context) (map[string][]byte, error) {
	if err := w.Flush(ctx); err != nil {
		return nil, err
	}
	return w.inner.Load(ctx)
}

// Write queues the payload of key.
func (w *WriteBehind) Write(_ context.Context, key string, data []byte) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if _, ok := w.pending[key]; !ok {
		w.order = append(w.order, key)
	}
	w.pending[key] = clone(data)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued keys.
func (w *WriteBehind) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.order)
}

// Flush writes all pending payloads synchronously, bypassing the rate
// limit. It returns the first write error.
func (w *WriteBehind) Flush(ctx context.Context) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	var firstErr error
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		key, data, ok := w.pop()
		if !ok {
			return firstErr
		}
		if err := w.inner.Write(ctx, key, data); err != nil {
			w.onError(key, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
}

// Close stops the background writer and flushes what is left.
func (w *WriteBehind) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	w.wg.Wait()
	return w.Flush(context.Background())
}

func (w *WriteBehind) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.wake:
		}
		for {
			if err := w.limiter.Wait(w.ctx); err != nil {
				return
			}
			if !w.writeNext() {
				break
			}
		}
	}
}

func (w *WriteBehind) writeNext() bool {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	key, data, ok := w.pop()
	if !ok {
		return false
	}
	if err := w.inner.Write(context.Background(), key, data); err != nil {
		w.onError(key, err)
	}
	return true
}

func (w *WriteBehind) pop() (string, []byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.order) == 0 {
		return "", nil, false
	}
	key := w.order[0]
	w.order = w.order[1:]
	data := w.pending[key]
	delete(w.pending, key)
	return key, data, true
}
