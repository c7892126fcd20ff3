// Copyright 2017-25 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package core holds small building blocks shared by the decoder and encoder.
package core

import (
	"bytes"
	"sync"
)

// DefaultBufferSize is the initial capacity of pooled buffers.
const DefaultBufferSize = 1024 * 1024

// Pool is a typed wrapper around sync.Pool.
type Pool[T any] struct {
	pool sync.Pool
}

// NewPool creates a Pool that uses newFn to allocate values.
func NewPool[T any](newFn func() T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{New: func() any { return newFn() }},
	}
}

func (p *Pool[T]) Get() T {
	return p.pool.Get().(T) //nolint:forcetypeassert
}

func (p *Pool[T]) Put(v T) {
	p.pool.Put(v)
}

var buffers = NewPool(func() *bytes.Buffer {
	return bytes.NewBuffer(make([]byte, 0, DefaultBufferSize))
})

// PooledBuffer is a bytes.Buffer borrowed from a process wide pool.  Close
// returns it; the buffer must not be used afterwards.
type PooledBuffer struct {
	*bytes.Buffer
}

// NewPooledBuffer borrows an empty buffer from the pool.
func NewPooledBuffer() *PooledBuffer {
	b := buffers.Get()
	b.Reset()

	return &PooledBuffer{Buffer: b}
}

// Close returns the buffer to the pool.
func (b *PooledBuffer) Close() {
	if b.Buffer == nil {
		return
	}

	buffers.Put(b.Buffer)
	b.Buffer = nil
}
