package shell

import "errors"

// ErrPoolClosed is returned by Borrow after Close.
var ErrPoolClosed = errors.New("shell: buffer pool closed")

// Buffer is a pooled, fixed-size byte slice. The receiver slices it into a
// read-only view for the logic stage, which must call Release exactly once
// (directly or via a release action) when done with it.
type Buffer struct {
	data []byte
	pool *Pool
}

// Bytes returns the full backing slice, capacity `size`.
func (b *Buffer) Bytes() []byte { return b.data }

// Pool is a pre-allocated queue of fixed-size buffers. Borrow blocks on an
// empty pool until a buffer is returned or the pool is closed; Close makes
// every blocked and future Borrow fail with ErrPoolClosed.
type Pool struct {
	free   chan *Buffer
	size   int
	closed chan struct{}
}

// NewPool pre-allocates count buffers of size bytes each.
func NewPool(count, size int) *Pool {
	if count <= 0 {
		count = 1
	}
	if size <= 0 {
		size = 2048
	}
	p := &Pool{free: make(chan *Buffer, count), size: size, closed: make(chan struct{})}
	for i := 0; i < count; i++ {
		p.free <- &Buffer{data: make([]byte, size), pool: p}
	}
	return p
}

// Borrow blocks until a buffer is available or the pool is closed; after
// Close it always fails with ErrPoolClosed.
func (p *Pool) Borrow() (*Buffer, error) {
	select {
	case <-p.closed:
		return nil, ErrPoolClosed
	default:
	}
	select {
	case b := <-p.free:
		return b, nil
	case <-p.closed:
		return nil, ErrPoolClosed
	}
}

// Release returns a buffer to the pool. A nil or foreign buffer is a no-op;
// releasing after Close silently drops the buffer. Release does not track
// whether a buffer is already back in the pool, so a repeated release is
// dropped only while the pool is full.
func (p *Pool) Release(b *Buffer) {
	if b == nil || b.pool != p {
		return
	}
	select {
	case <-p.closed:
		return
	default:
	}
	select {
	case p.free <- b:
	default:
		// Pool over-full (double release): drop silently rather than block
		// or panic — a double release is a caller bug, not a resource leak.
	}
}

// Close unblocks every pending and future Borrow with ErrPoolClosed.
// Idempotent.
func (p *Pool) Close() {
	select {
	case <-p.closed:
		return
	default:
		close(p.closed)
	}
}

// Size returns the fixed length of every buffer this pool hands out.
func (p *Pool) Size() int { return p.size }
