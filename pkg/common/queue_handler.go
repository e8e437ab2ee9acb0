package common

import (
	"iter"
	"slices"
	"sync"
	"time"
)

// QueueProcessor is a function that processes a batch of items from the queue.
type QueueProcessor[V any] func(items []V)

// QueueHandler collects items and hands them to the processor in chunks
// from a background goroutine.
type QueueHandler[V any] struct {
	mu        sync.Mutex
	process   sync.Mutex
	queue     []V
	processor QueueProcessor[V]
	chunkSize int
	interval  time.Duration
	done      chan struct{}
	stopOnce  sync.Once
}

func NewQueueHandler[V any](processor QueueProcessor[V], chunkSize int) *QueueHandler[V] {
	return NewQueueHandlerWithInterval(processor, chunkSize, time.Second)
}

func NewQueueHandlerWithInterval[V any](processor QueueProcessor[V], chunkSize int, interval time.Duration) *QueueHandler[V] {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	q := &QueueHandler[V]{
		queue:     make([]V, 0),
		processor: processor,
		chunkSize: chunkSize,
		interval:  interval,
		done:      make(chan struct{}),
	}
	go q.processQueue()
	return q
}

func (h *QueueHandler[V]) Add(item ...V) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = append(h.queue, item...)
}

func (h *QueueHandler[V]) AddIter(item iter.Seq[V]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = append(h.queue, slices.Collect(item)...)
}

func (h *QueueHandler[V]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

func (h *QueueHandler[V]) next() []V {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.queue) == 0 {
		return nil
	}
	items := h.queue[:min(h.chunkSize, len(h.queue))]
	h.queue = h.queue[len(items):]
	return items
}

// Flush processes everything queued so far on the calling goroutine.
func (h *QueueHandler[V]) Flush() {
	h.process.Lock()
	defer h.process.Unlock()
	for items := h.next(); items != nil; items = h.next() {
		h.processor(items)
	}
}

// Stop ends the background goroutine after flushing what is queued.
func (h *QueueHandler[V]) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
	h.Flush()
}

func (h *QueueHandler[V]) processQueue() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.Flush()
		}
	}
}
