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

import (
	uuid "github.com/satori/go.uuid"
)

// sessionID is a per-Stream identifier for log and metric correlation
// across a process with more than one active stream, grounded on the
// teacher's request-id generation in pkg/proto/requestid.go.
type sessionID [16]byte

func newSessionID() sessionID {
	return sessionID(uuid.NewV1())
}

func (id sessionID) String() string {
	return uuid.UUID(id).String()
}
