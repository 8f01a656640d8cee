package audio

import "sync"

// WaveformBuffer is a bounded FIFO history of amplitude samples. It is
// written by the capture scheduler and read-snapshotted by renderers;
// a snapshot is never torn by a concurrent push.
type WaveformBuffer struct {
	mu   sync.Mutex
	buf  []float64
	head int
	len  int
}

// NewWaveformBuffer returns an empty buffer holding at most capacity samples.
func NewWaveformBuffer(capacity int) *WaveformBuffer {
	return &WaveformBuffer{buf: make([]float64, capacity)}
}

// Push appends a sample, evicting the oldest when full.
func (b *WaveformBuffer) Push(v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tail := (b.head + b.len) % len(b.buf)
	b.buf[tail] = v
	if b.len < len(b.buf) {
		b.len++
		return
	}
	b.head = (b.head + 1) % len(b.buf)
}

// Snapshot returns the samples oldest-first as a fresh slice.
func (b *WaveformBuffer) Snapshot() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]float64, b.len)
	for i := range b.len {
		out[i] = b.buf[(b.head+i)%len(b.buf)]
	}
	return out
}

// Clear empties the buffer. Used when the capture source changes.
func (b *WaveformBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.len = 0
}

// Len returns the number of stored samples.
func (b *WaveformBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.len
}
