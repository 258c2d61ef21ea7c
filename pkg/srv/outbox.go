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

package srv

import (
	"sync"
	"time"

	"jinr.ru/greenlab/go-octaeeg/pkg/driver"
	"jinr.ru/greenlab/go-octaeeg/pkg/log"
)

// Outbox keeps pumped batches until an API client takes them. When it is
// full the oldest batch is dropped.
type Outbox struct {
	mu      sync.Mutex
	size    int
	batches []*driver.Batch
	dropped uint64
}

var _ Sink = &Outbox{}

func NewOutbox(size int) *Outbox {
	if size < 1 {
		size = 1
	}
	return &Outbox{size: size}
}

func (o *Outbox) Consume(batch *driver.Batch) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.batches) == o.size {
		log.Warning("Outbox is full, dropping the oldest batch of %d samples", len(o.batches[0].Rows))
		o.batches[0] = nil
		o.batches = o.batches[1:]
		o.dropped++
	}
	o.batches = append(o.batches, batch)
	return nil
}

// Take merges all queued batches into one
func (o *Outbox) Take() (*driver.Batch, bool) {
	o.mu.Lock()
	batches := o.batches
	o.batches = nil
	o.mu.Unlock()

	if len(batches) == 0 {
		return nil, false
	}
	if len(batches) == 1 {
		return batches[0], true
	}
	total := 0
	for _, b := range batches {
		total += len(b.Rows)
	}
	merged := &driver.Batch{
		Names:      batches[0].Names,
		Meta:       batches[0].Meta,
		Rows:       make([][]float64, 0, total),
		Timestamps: make([]time.Time, 0, total),
	}
	for _, b := range batches {
		merged.Rows = append(merged.Rows, b.Rows...)
		merged.Timestamps = append(merged.Timestamps, b.Timestamps...)
	}
	return merged, true
}

type OutboxStatus struct {
	Pending int    `json:"pending"`
	Dropped uint64 `json:"dropped"`
}

func (o *Outbox) Status() OutboxStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return OutboxStatus{Pending: len(o.batches), Dropped: o.dropped}
}
