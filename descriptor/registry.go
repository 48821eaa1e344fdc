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

package descriptor

import (
	"encoding/binary"
	"sync"

	"github.com/golang/glog"
	"github.com/spaolacci/murmur3"

	"spead/wire"
)

const defaultShardCount = 16

// shard is one lock-protected bucket of a Registry.
type shard struct {
	sync.RWMutex
	descriptors map[wire.ItemID]Descriptor
}

// Registry caches descriptors seen on a stream, keyed by item id, so a
// receive heap only needs to carry DESCRIPTOR_ID pointers for items it
// has already been told about. It is sharded by the item id's murmur3
// hash, so a high-fanout stream with many distinct items doesn't serialize all
// descriptor lookups behind one mutex.
type Registry struct {
	shards     []*shard
	shardCount uint32
}

// NewRegistry builds a Registry with the given shard count. A count of
// 0 falls back to a sensible default.
func NewRegistry(shardCount uint32) *Registry {
	if shardCount == 0 {
		shardCount = defaultShardCount
	}
	r := &Registry{shardCount: shardCount, shards: make([]*shard, shardCount)}
	for i := range r.shards {
		r.shards[i] = &shard{descriptors: make(map[wire.ItemID]Descriptor)}
	}
	return r
}

func (r *Registry) shardFor(id wire.ItemID) *shard {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(id))
	return r.shards[murmur3.Sum32(key[:])%r.shardCount]
}

// Put records d under its own ID, overwriting any descriptor
// previously registered for that item.
func (r *Registry) Put(d Descriptor) {
	s := r.shardFor(d.ID)
	s.Lock()
	s.descriptors[d.ID] = d
	s.Unlock()
	if glog.V(2) {
		glog.Infof("descriptor registry: put id=%d name=%q", d.ID, d.Name)
	}
}

// Get returns the descriptor registered for id, if any.
func (r *Registry) Get(id wire.ItemID) (Descriptor, bool) {
	s := r.shardFor(id)
	s.RLock()
	d, ok := s.descriptors[id]
	s.RUnlock()
	return d, ok
}

// Delete removes any descriptor registered for id.
func (r *Registry) Delete(id wire.ItemID) {
	s := r.shardFor(id)
	s.Lock()
	delete(s.descriptors, id)
	s.Unlock()
}

// Len returns the total number of descriptors currently registered.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.RLock()
		n += len(s.descriptors)
		s.RUnlock()
	}
	return n
}
