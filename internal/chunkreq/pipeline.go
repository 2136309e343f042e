// Package chunkreq encodes chunk columns into cached network artifacts on a
// bounded pool of background workers.
package chunkreq

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"voxelgate.ai/internal/cache"
	"voxelgate.ai/internal/compression"
	"voxelgate.ai/internal/packet"
	"voxelgate.ai/internal/protocol"
	"voxelgate.ai/internal/protocol/dictionary"
	"voxelgate.ai/internal/timings"
	"voxelgate.ai/internal/world/chunk"
)

var ErrClosed = errors.New("chunkreq: pipeline closed")

// Request is everything a worker needs to encode one chunk. Terrain and
// Tiles are owned by the request; the worker never sees the live chunk.
type Request struct {
	X, Z       int32
	Terrain    []byte
	Tiles      []byte
	Protocol   protocol.ID
	Dictionary protocol.DictionaryID
	Compressor compression.Compressor
}

// NewRequest snapshots c on the calling goroutine.
func NewRequest(c *chunk.Chunk, p protocol.ID, r *protocol.Registry, compressor compression.Compressor) (Request, error) {
	d, err := r.DictionaryProtocol(p)
	if err != nil {
		return Request{}, err
	}
	terrain, err := chunk.SerializeTerrain(c)
	if err != nil {
		return Request{}, fmt.Errorf("snapshot chunk %d,%d: %w", c.CX, c.CZ, err)
	}
	tiles, err := chunk.SerializeTiles(c)
	if err != nil {
		return Request{}, err
	}
	return Request{
		X:          c.CX,
		Z:          c.CZ,
		Terrain:    terrain,
		Tiles:      tiles,
		Protocol:   p,
		Dictionary: d,
		Compressor: compressor,
	}, nil
}

type Config struct {
	Workers   int
	QueueSize int
}

type job struct {
	req     Request
	promise *cache.CachedChunkPromise
}

type completion struct {
	promise *cache.CachedChunkPromise
	result  *cache.CachedChunk
}

// Pipeline runs encodes on Workers goroutines. Results are queued and only
// delivered (promise settled, hooks run) by the goroutine calling Collect,
// CollectPending or Run.
type Pipeline struct {
	dicts  *dictionary.Set
	logger *log.Logger
	timer  *timings.Timer

	jobs chan job
	wg   sync.WaitGroup

	closeMu sync.RWMutex
	closed  bool

	mu     sync.Mutex
	done   []completion
	notify chan struct{}

	inFlight atomic.Int64
}

func NewPipeline(cfg Config, dicts *dictionary.Set, logger *log.Logger, ts *timings.Timings) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	p := &Pipeline{
		dicts:  dicts,
		logger: logger,
		timer:  ts.Timer(timings.ChunkEncode),
		jobs:   make(chan job, cfg.QueueSize),
		notify: make(chan struct{}, 1),
	}
	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.worker()
		}()
	}
	return p
}

// Submit queues req, blocking while the queue is full. onSuccess and
// onFailure may be nil; they run on the collecting goroutine.
func (p *Pipeline) Submit(ctx context.Context, req Request, onSuccess func(*cache.CachedChunk), onFailure func()) (*cache.CachedChunkPromise, error) {
	if req.Compressor == nil {
		return nil, fmt.Errorf("chunk %d,%d: no compressor", req.X, req.Z)
	}
	req.Terrain = bytes.Clone(req.Terrain)
	req.Tiles = bytes.Clone(req.Tiles)

	promise := cache.NewCachedChunkPromise()
	if onSuccess != nil {
		promise.OnResolve(onSuccess)
	}
	if onFailure != nil {
		promise.OnReject(onFailure)
	}

	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}
	p.inFlight.Add(1)
	select {
	case p.jobs <- job{req: req, promise: promise}:
		return promise, nil
	case <-ctx.Done():
		p.inFlight.Add(-1)
		return nil, ctx.Err()
	}
}

// InFlight counts submitted requests whose completion has not been
// delivered yet.
func (p *Pipeline) InFlight() int { return int(p.inFlight.Load()) }

func (p *Pipeline) worker() {
	for j := range p.jobs {
		result, err := p.encode(j.req)
		if err != nil {
			p.logger.Printf("chunk %d,%d protocol %d: %v", j.req.X, j.req.Z, j.req.Protocol, err)
		}
		p.mu.Lock()
		p.done = append(p.done, completion{promise: j.promise, result: result})
		p.mu.Unlock()
		select {
		case p.notify <- struct{}{}:
		default:
		}
	}
}

func (p *Pipeline) encode(req Request) (art *cache.CachedChunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Printf("PANIC encoding chunk %d,%d: %v\n%s", req.X, req.Z, r, debug.Stack())
			art, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	defer p.timer.Start()()

	c, err := chunk.DeserializeTerrain(req.Terrain)
	if err != nil {
		return nil, err
	}
	blocks, ok := p.dicts.Blocks(req.Dictionary)
	if !ok {
		return nil, protocol.Errorf(protocol.ErrUnknownProtocol, "no block states for dictionary protocol %d", req.Dictionary)
	}
	items, _ := p.dicts.Items(req.Dictionary)
	ctx := packet.Context{Protocol: req.Protocol, Dictionary: req.Dictionary, Items: items}

	art = cache.NewCachedChunk()
	subChunks, err := chunk.SerializeSubChunks(c, blocks, req.Protocol)
	if err != nil {
		return nil, err
	}
	for _, b := range subChunks {
		art.AddSubChunk(xxhash.Sum64(b), b)
	}

	bw := packet.NewWriter(ctx)
	chunk.SerializeBiomes(c, bw)
	biomes := bw.Bytes()
	art.SetBiomes(xxhash.Sum64(biomes), biomes)

	dw := packet.NewWriter(ctx)
	chunk.SerializeChunkData(dw, req.Tiles)
	if err := art.CompressPackets(req.X, req.Z, dw.Bytes(), req.Compressor, ctx, req.Protocol); err != nil {
		return nil, err
	}
	art.Seal()
	return art, nil
}

func (p *Pipeline) takeDone() []completion {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.done
	p.done = nil
	return out
}

func (p *Pipeline) deliver(batch []completion) int {
	for _, c := range batch {
		p.inFlight.Add(-1)
		if c.result != nil {
			c.promise.Resolve(c.result)
		} else {
			c.promise.Reject()
		}
	}
	return len(batch)
}

// CollectPending delivers every queued completion without blocking.
func (p *Pipeline) CollectPending() int {
	return p.deliver(p.takeDone())
}

// Collect waits until at least one completion is queued (or ctx ends) and
// delivers everything queued.
func (p *Pipeline) Collect(ctx context.Context) (int, error) {
	for {
		if n := p.CollectPending(); n > 0 {
			return n, nil
		}
		select {
		case <-p.notify:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Run delivers completions until ctx ends.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		if _, err := p.Collect(ctx); err != nil {
			return err
		}
	}
}

// Close stops accepting requests and waits for queued and running encodes to
// finish. Their completions stay queued for CollectPending.
func (p *Pipeline) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.closeMu.Unlock()
	p.wg.Wait()
}
