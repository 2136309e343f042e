package cache

import (
	"context"
	"errors"
	"sync"

	"voxelgate.ai/internal/protocol"
)

var ErrChunkFailed = errors.New("chunk encoding failed")

type promiseState uint8

const (
	pending promiseState = iota
	resolved
	rejected
)

// CachedChunkPromise is resolved or rejected exactly once. Callbacks run on
// the goroutine that settles the promise, or immediately on the registering
// goroutine if it is already settled.
type CachedChunkPromise struct {
	mu        sync.Mutex
	state     promiseState
	result    *CachedChunk
	done      chan struct{}
	onResolve []func(*CachedChunk)
	onReject  []func()
}

func NewCachedChunkPromise() *CachedChunkPromise {
	return &CachedChunkPromise{done: make(chan struct{})}
}

func (p *CachedChunkPromise) Resolve(c *CachedChunk) {
	p.mu.Lock()
	if p.state != pending {
		p.mu.Unlock()
		protocol.AssumptionFailed("chunk promise settled twice")
	}
	p.state = resolved
	p.result = c
	hooks := p.onResolve
	p.onResolve, p.onReject = nil, nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range hooks {
		fn(c)
	}
}

func (p *CachedChunkPromise) Reject() {
	p.mu.Lock()
	if p.state != pending {
		p.mu.Unlock()
		protocol.AssumptionFailed("chunk promise settled twice")
	}
	p.state = rejected
	hooks := p.onReject
	p.onResolve, p.onReject = nil, nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

func (p *CachedChunkPromise) OnResolve(fn func(*CachedChunk)) {
	p.mu.Lock()
	switch p.state {
	case pending:
		p.onResolve = append(p.onResolve, fn)
		p.mu.Unlock()
	case resolved:
		c := p.result
		p.mu.Unlock()
		fn(c)
	default:
		p.mu.Unlock()
	}
}

func (p *CachedChunkPromise) OnReject(fn func()) {
	p.mu.Lock()
	switch p.state {
	case pending:
		p.onReject = append(p.onReject, fn)
		p.mu.Unlock()
	case rejected:
		p.mu.Unlock()
		fn()
	default:
		p.mu.Unlock()
	}
}

// Done is closed once the promise is settled.
func (p *CachedChunkPromise) Done() <-chan struct{} { return p.done }

// Result returns the artifact if the promise resolved.
func (p *CachedChunkPromise) Result() (*CachedChunk, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result, p.state == resolved
}

func (p *CachedChunkPromise) Rejected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == rejected
}

// Wait blocks until the promise settles or ctx ends.
func (p *CachedChunkPromise) Wait(ctx context.Context) (*CachedChunk, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if c, ok := p.Result(); ok {
		return c, nil
	}
	return nil, ErrChunkFailed
}
