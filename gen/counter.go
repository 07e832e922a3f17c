package gen

import "sync"

// Counter is a set of named sequences. Each key is guarded by its own lock,
// so concurrent test workers advancing different keys never contend.
type Counter struct {
	mu   sync.Mutex
	keys map[string]*sequence
}

type sequence struct {
	mu sync.Mutex
	n  int64
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{keys: make(map[string]*sequence)}
}

func (c *Counter) sequence(key string) *sequence {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.keys[key]
	if !ok {
		s = &sequence{}
		c.keys[key] = s
	}
	return s
}

// Next advances the sequence of key and returns its new value. Sequences
// start at 1.
func (c *Counter) Next(key string) int64 {
	s := c.sequence(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

// Current returns the current value of key without advancing it.
// A sequence that was never advanced is moved to 1.
func (c *Counter) Current(key string) int64 {
	s := c.sequence(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n == 0 {
		s.n = 1
	}
	return s.n
}

// Reset drops all sequences.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = make(map[string]*sequence)
}
