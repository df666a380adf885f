package nodetracer

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
)

// idPool pre-generates random hex identifiers in the background to
// amortize crypto/rand overhead on the span-open hot path.
type idPool struct {
	ids      chan string
	stopCh   chan struct{}
	byteLen  int
	fallback func() string
	mu       sync.Mutex
	closed   bool
}

// newIDPool creates a pool of byteLen-byte hex ids with the given
// buffered capacity. fallback is used only if crypto/rand fails.
func newIDPool(capacity, byteLen int, fallback func() string) *idPool {
	p := &idPool{
		ids:      make(chan string, capacity),
		stopCh:   make(chan struct{}),
		byteLen:  byteLen,
		fallback: fallback,
	}
	go p.refill()
	return p
}

// Get returns a pooled id, generating one directly under burst load.
func (p *idPool) Get() string {
	select {
	case id := <-p.ids:
		return id
	default:
		return p.generate()
	}
}

func (p *idPool) generate() string {
	b := make([]byte, p.byteLen)
	if _, err := rand.Read(b); err != nil {
		return p.fallback()
	}
	return hex.EncodeToString(b)
}

func (p *idPool) refill() {
	for {
		select {
		case <-p.stopCh:
			return
		case p.ids <- p.generate():
		}
	}
}

// Close stops the background refill goroutine. Idempotent.
func (p *idPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		close(p.stopCh)
		p.closed = true
	}
}
