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

// Reader is any object attached to a Stream that produces packets,
// per spec §4.7. Start is invoked once, on the stream's strand. Stop
// must be prompt and idempotent, and is also invoked on the strand.
// A Reader that reads from a blocking source (a socket, a file) is
// expected to run its own goroutine and post each decoded packet back
// onto the stream's strand via Stream.Post — see reader/udpreader for
// a concrete example.
type Reader interface {
	Start() error
	Stop()
}
