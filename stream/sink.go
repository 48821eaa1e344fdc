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

package stream

import "spead/heap"

// Sink receives heaps a Stream emits, on the stream's strand. Design
// note §9 replaces the source's virtual-method inheritance with this
// one-method capability interface — no subclassing required.
type Sink interface {
	HeapReady(h *heap.FrozenHeap)
}

// SinkFunc adapts a plain function to a Sink.
type SinkFunc func(h *heap.FrozenHeap)

func (f SinkFunc) HeapReady(h *heap.FrozenHeap) { f(h) }

// discardSink is the base "does nothing" implementation a Stream uses
// when no sink has been installed.
type discardSink struct{}

func (discardSink) HeapReady(*heap.FrozenHeap) {}
