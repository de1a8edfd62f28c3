package capture

import "sync"

// Buffer is a bounded sample buffer that overwrites the oldest samples when
// its capacity is exceeded, keeping a sliding window of the most recent
// audio instead of growing without bound.
//
// The buffer uses head and tail counters over a fixed backing array. The
// capture callback is the only writer; Take transfers ownership of the
// accumulated samples to the caller and resets the buffer.
type Buffer struct {
	mu         sync.Mutex
	buf        []float32
	head, tail int64
}

// NewBuffer creates a Buffer that retains at most size samples.
func NewBuffer(size int) *Buffer {
	if size < 1 {
		size = 1
	}
	return &Buffer{buf: make([]float32, size)}
}

// Append adds samples, trimming the oldest data once capacity is exceeded.
func (b *Buffer) Append(samples []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := int64(len(b.buf))
	for _, s := range samples {
		b.buf[b.tail%n] = s
		b.tail++
	}
	if b.tail-b.head > n {
		b.head = b.tail - n
	}
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.tail - b.head)
}

// Take drains the buffer, returning samples oldest first. The buffer is
// empty afterwards; ownership of the returned slice moves to the caller.
func (b *Buffer) Take() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := int64(len(b.buf))
	count := b.tail - b.head
	out := make([]float32, count)
	for i := int64(0); i < count; i++ {
		out[i] = b.buf[(b.head+i)%n]
	}
	b.head = b.tail
	return out
}
