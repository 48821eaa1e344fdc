//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

// Package memorypool supplies the allocator a receive stream's heaps
// draw payload buffers from, per spec §5 and §6: a handle whose one
// operation returns an owned, uninitialized byte buffer, safe to call
// from any strand.
package memorypool

import "sync"

// Pool is the contract a receive stream consumes. Allocate must be
// safe for concurrent use from any strand.
type Pool interface {
	Allocate(size int) []byte
}

// SyncPool is a sync.Pool-backed Pool for buffers at or below
// chunkSize; larger requests bypass the pool and allocate directly.
type SyncPool struct {
	pool      sync.Pool
	chunkSize int
}

// NewSyncPool builds a SyncPool whose warm buffers are chunkSize
// bytes. Grounded on the teacher's SyncBufferPool.
func NewSyncPool(chunkSize int) *SyncPool {
	p := &SyncPool{chunkSize: chunkSize}
	p.pool.New = func() interface{} {
		return make([]byte, p.chunkSize)
	}
	return p
}

func (p *SyncPool) Allocate(size int) []byte {
	if size > p.chunkSize {
		return make([]byte, size)
	}
	buf := p.pool.Get().([]byte)
	return buf[:size]
}

// ChanPool is a bounded-channel-backed Pool: a warm set of chunkSize
// buffers is pre-seeded at construction and drawn down as Allocate is
// called; once drained, further requests allocate directly. Grounded
// on the teacher's ChanBufferPool.
type ChanPool struct {
	ch        chan []byte
	chunkSize int
}

// NewChanPool builds a ChanPool with warmCount buffers of chunkSize
// bytes pre-seeded into the channel.
func NewChanPool(warmCount, chunkSize int) *ChanPool {
	p := &ChanPool{ch: make(chan []byte, warmCount), chunkSize: chunkSize}
	for i := 0; i < warmCount; i++ {
		p.ch <- make([]byte, chunkSize)
	}
	return p
}

func (p *ChanPool) Allocate(size int) []byte {
	if size <= p.chunkSize {
		select {
		case buf := <-p.ch:
			return buf[:size]
		default:
		}
	}
	return make([]byte, size)
}
