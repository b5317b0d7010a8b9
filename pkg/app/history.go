package app

import (
	"sync"

	"canscope/pkg/can"
)

// History keeps the most recent messages in a ring buffer and counts all of them.
type History struct {
	mu    sync.RWMutex
	buf   []can.Message
	next  int
	full  bool
	stats can.Stats
}

// NewHistory returns a history of size messages.
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{buf: make([]can.Message, size)}
}

// Add stores m, overwriting the oldest message.
func (h *History) Add(m can.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.Add(m)
	h.buf[h.next] = m
	h.next++
	if h.next == len(h.buf) {
		h.next = 0
		h.full = true
	}
}

// Last returns up to n messages, oldest first. n <= 0 returns all stored messages.
func (h *History) Last(n int) []can.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := h.next
	if h.full {
		count = len(h.buf)
	}
	if n <= 0 || n > count {
		n = count
	}

	out := make([]can.Message, 0, n)
	for i := count - n; i < count; i++ {
		out = append(out, h.buf[(h.next-count+i+len(h.buf))%len(h.buf)])
	}
	return out
}

// Stats returns a copy of the statistics.
func (h *History) Stats() can.Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := h.stats
	s.Errors = make(map[string]uint64, len(h.stats.Errors))
	for k, v := range h.stats.Errors {
		s.Errors[k] = v
	}
	return s
}
