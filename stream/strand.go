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

// Package stream implements the receive stream: the bounded live-heap
// collection, its dispatch algorithm, lifecycle, and the strand
// concurrency primitive every mutation is serialized through, per
// spec §4.5, §4.7, §5.
package stream

import "sync"

// Executor is a fixed-size pool of worker goroutines shared by every
// strand built from it — the "shared task executor configurable with
// a user-chosen number of worker threads" in spec §5. Grounded on the
// teacher's single-consumer-loop pattern in pkg/io/outboundprocessor.go,
// generalized to N consumer goroutines draining one task queue.
type Executor struct {
	tasks chan func()
	wg    sync.WaitGroup
}

// NewExecutor starts workers goroutines, each pulling tasks off a
// shared queue until Close is called.
func NewExecutor(workers int) *Executor {
	if workers < 1 {
		workers = 1
	}
	e := &Executor{tasks: make(chan func(), 256)}
	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.worker()
	}
	return e
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for task := range e.tasks {
		task()
	}
}

func (e *Executor) submit(task func()) {
	e.tasks <- task
}

// Close stops accepting new work at once, lets every already-queued
// task run, and waits for all worker goroutines to exit. Strands
// built on this executor must not be posted to again afterward.
func (e *Executor) Close() {
	close(e.tasks)
	e.wg.Wait()
}

// Strand is a first-in-first-out serialization queue: posted tasks
// for one Strand never run concurrently with each other, though tasks
// belonging to different Strands on the same Executor may. This is
// the same shape as boost::asio::strand, named directly in spec §5
// and the glossary.
type Strand struct {
	executor *Executor
	mu       sync.Mutex
	queue    []func()
	running  bool
}

// NewStrand builds a Strand that dispatches its drained tasks onto
// executor's worker pool.
func NewStrand(executor *Executor) *Strand {
	return &Strand{executor: executor}
}

// Post enqueues fn to run on the strand and returns immediately. Safe
// to call from any goroutine, including from within a task currently
// running on this same strand.
func (s *Strand) Post(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	needDispatch := !s.running
	if needDispatch {
		s.running = true
	}
	s.mu.Unlock()

	if needDispatch {
		s.executor.submit(s.drain)
	}
}

// PostSync enqueues fn and blocks the calling goroutine until fn has
// run. Callers must never invoke PostSync from within a task already
// running on this strand — the drain loop that would execute fn is
// the same loop the caller would be blocking, which deadlocks.
func (s *Strand) PostSync(fn func()) {
	done := make(chan struct{})
	s.Post(func() {
		fn()
		close(done)
	})
	<-done
}

// drain runs on one of the executor's worker goroutines. It executes
// every task queued so far, then marks the strand idle — unless more
// tasks were queued while draining, in which case it keeps going, so
// a single drain invocation never yields the strand to another
// Executor task mid-queue.
func (s *Strand) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		fn()
	}
}
