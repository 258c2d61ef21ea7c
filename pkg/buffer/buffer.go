/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package buffer

import (
	"sync"
	"time"
)

// Buffer accumulates rows and their timestamps between two drains.
// One writer appends, any goroutine drains. No I/O happens under the lock.
type Buffer struct {
	mu         sync.Mutex
	rows       [][]float64
	timestamps []time.Time
}

func New() *Buffer {
	return &Buffer{}
}

// Append adds one decoded frame. rows and timestamps must have the same length.
func (b *Buffer) Append(rows [][]float64, timestamps []time.Time) {
	if len(rows) == 0 {
		return
	}
	b.mu.Lock()
	b.rows = append(b.rows, rows...)
	b.timestamps = append(b.timestamps, timestamps...)
	b.mu.Unlock()
}

// Drain takes everything accumulated so far and leaves the buffer empty.
// ok is false when there was nothing to take.
func (b *Buffer) Drain() (rows [][]float64, timestamps []time.Time, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.rows) == 0 {
		return nil, nil, false
	}
	rows, timestamps = b.rows, b.timestamps
	b.rows, b.timestamps = nil, nil
	return rows, timestamps, true
}

// Len returns the number of pending rows
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}
