// Package buffer provides a bounded-capacity byte buffer with big-endian
// append and cursor-based read operations.
//
// Appends never grow the buffer past its capacity and reads never run past
// the written length; both fail explicitly instead.
package buffer

import (
	"encoding/binary"

	pool "github.com/libp2p/go-buffer-pool"
)

// Buffer is a bounded append buffer and a read view over the appended bytes.
//
// A Buffer is not safe for concurrent use.
type Buffer struct {
	b      []byte
	limit  int
	pooled bool
}

// New returns an empty buffer that can hold up to capacity bytes. The backing
// memory comes from the shared byte pool; call Release when done.
func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{b: pool.Get(capacity)[:0], limit: capacity, pooled: true}
}

// Wrap returns a buffer whose contents are data. The buffer is full: appends
// fail and reads cover all of data. data is not copied.
func Wrap(data []byte) *Buffer {
	return &Buffer{b: data, limit: len(data)}
}

// Release returns pooled memory. The buffer must not be used afterwards.
func (b *Buffer) Release() {
	if b == nil || !b.pooled {
		return
	}
	pool.Put(b.b)
	b.b = nil
	b.limit = 0
	b.pooled = false
}

// Bytes returns the written bytes. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.b }

// Len returns the number of bytes written.
func (b *Buffer) Len() int { return len(b.b) }

// Cap returns the capacity limit.
func (b *Buffer) Cap() int { return b.limit }

// Reset discards the contents but keeps the capacity.
func (b *Buffer) Reset() { b.b = b.b[:0] }

func (b *Buffer) grow(n int) ([]byte, error) {
	l := len(b.b)
	if n < 0 || l+n > b.limit {
		return nil, ErrOverflow
	}
	b.b = b.b[:l+n]
	return b.b[l:], nil
}

func (b *Buffer) AppendU8(v uint8) error {
	p, err := b.grow(1)
	if err != nil {
		return err
	}
	p[0] = v
	return nil
}

func (b *Buffer) AppendU16(v uint16) error {
	p, err := b.grow(2)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(p, v)
	return nil
}

func (b *Buffer) AppendU64(v uint64) error {
	p, err := b.grow(8)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint64(p, v)
	return nil
}

func (b *Buffer) AppendBytes(v []byte) error {
	p, err := b.grow(len(v))
	if err != nil {
		return err
	}
	copy(p, v)
	return nil
}

// peek returns the n bytes at *cursor and advances the cursor. On failure the
// cursor is left unchanged.
func (b *Buffer) peek(n int, cursor *int) ([]byte, error) {
	c := *cursor
	if n < 0 || c < 0 || c > len(b.b) || len(b.b)-c < n {
		return nil, ErrUnderflow
	}
	*cursor = c + n
	return b.b[c : c+n], nil
}

func (b *Buffer) ReadU8(cursor *int) (uint8, error) {
	p, err := b.peek(1, cursor)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (b *Buffer) ReadU16(cursor *int) (uint16, error) {
	p, err := b.peek(2, cursor)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p), nil
}

func (b *Buffer) ReadU64(cursor *int) (uint64, error) {
	p, err := b.peek(8, cursor)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(p), nil
}

// ReadBytes returns the next n bytes. The slice aliases the buffer; copy it
// if it must outlive the buffer.
func (b *Buffer) ReadBytes(n int, cursor *int) ([]byte, error) {
	return b.peek(n, cursor)
}

// Skip advances the cursor by n bytes.
func (b *Buffer) Skip(n int, cursor *int) error {
	_, err := b.peek(n, cursor)
	return err
}
