package history

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidCapacity is returned by New for a capacity below one.
var ErrInvalidCapacity = errors.New("history capacity must be at least 1")

// Buffer keeps the most recent entries in insertion order. When full, adding
// an entry evicts exactly the oldest one. It is safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	// head is the index of the oldest entry.
	head int
	size int
}

func New(maxSize int) (*Buffer, error) {
	if maxSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, maxSize)
	}
	return &Buffer{entries: make([]Entry, maxSize)}, nil
}

// Add appends e, evicting the oldest entry first if the buffer is full.
func (b *Buffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == len(b.entries) {
		b.entries[b.head] = Entry{}
		b.head = (b.head + 1) % len(b.entries)
		b.size--
	}
	b.entries[(b.head+b.size)%len(b.entries)] = e
	b.size++
}

// All returns a copy of the entries, oldest first.
func (b *Buffer) All() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Entry, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.entries[(b.head+i)%len(b.entries)]
	}
	return out
}

// Latest returns the newest entry.
func (b *Buffer) Latest() (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 {
		return Entry{}, false
	}
	return b.entries[(b.head+b.size-1)%len(b.entries)], true
}

func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (b *Buffer) Capacity() int {
	return len(b.entries)
}
