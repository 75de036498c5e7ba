// Buffer pools for the per-sample encoding paths
//
// CSV rows, serial setpoint lines and stream messages are encoded once per
// control tick. Encoders borrow a ByteBuffer, append into it and return it.
//
// Usage:
//
//	b := pool.GetByteBuffer()
//	defer pool.PutByteBuffer(b)
//	b.AppendUint(ms)
//	b.WriteByte(',')
//	b.AppendFloat(pos)
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package pool

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// maxPooledCap is the largest buffer returned to the pool.
const maxPooledCap = 4096

// ByteBuffer is an append-only byte buffer
type ByteBuffer struct {
	buf []byte
}

var (
	byteBufferPool = sync.Pool{
		New: func() any {
			misses.Add(1)
			return &ByteBuffer{
				buf: make([]byte, 0, 64), // one sample line
			}
		},
	}

	gets   atomic.Uint64
	misses atomic.Uint64
)

// GetByteBuffer gets an empty byte buffer from the pool
func GetByteBuffer() *ByteBuffer {
	gets.Add(1)
	b := byteBufferPool.Get().(*ByteBuffer)
	b.buf = b.buf[:0] // Reset length but keep capacity
	return b
}

// PutByteBuffer returns a byte buffer to the pool
func PutByteBuffer(b *ByteBuffer) {
	if b == nil {
		return
	}
	// Don't pool oversized buffers
	if cap(b.buf) > maxPooledCap {
		return
	}
	byteBufferPool.Put(b)
}

// Bytes returns the buffer's byte slice. It is only valid until the
// buffer is returned to the pool.
func (b *ByteBuffer) Bytes() []byte {
	return b.buf
}

// String returns a copy of the contents
func (b *ByteBuffer) String() string {
	return string(b.buf)
}

// Write appends bytes to the buffer
func (b *ByteBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteByte appends a single byte
func (b *ByteBuffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// WriteString appends a string
func (b *ByteBuffer) WriteString(s string) (int, error) {
	b.buf = append(b.buf, s...)
	return len(s), nil
}

// AppendFloat appends v in the shortest form that round-trips
func (b *ByteBuffer) AppendFloat(v float64) {
	b.buf = strconv.AppendFloat(b.buf, v, 'g', -1, 64)
}

// AppendUint appends v in decimal
func (b *ByteBuffer) AppendUint(v uint64) {
	b.buf = strconv.AppendUint(b.buf, v, 10)
}

// Len returns the buffer length
func (b *ByteBuffer) Len() int {
	return len(b.buf)
}

// Reset clears the buffer
func (b *ByteBuffer) Reset() {
	b.buf = b.buf[:0]
}

// Stats holds pool usage counters
type Stats struct {
	Gets   uint64
	Misses uint64 // Gets that had to allocate
}

// GetStats returns the byte buffer pool counters
func GetStats() Stats {
	return Stats{Gets: gets.Load(), Misses: misses.Load()}
}
