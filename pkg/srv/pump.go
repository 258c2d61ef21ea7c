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
	"context"
	"sync/atomic"
	"time"

	"jinr.ru/greenlab/go-octaeeg/pkg/driver"
	"jinr.ru/greenlab/go-octaeeg/pkg/log"
)

type Drainer interface {
	Drain() (*driver.Batch, bool)
}

// Sink receives every drained batch
type Sink interface {
	Consume(batch *driver.Batch) error
}

// Pump drains the driver on a fixed interval and fans the batches out
type Pump struct {
	source   Drainer
	interval time.Duration
	sinks    []Sink

	batches atomic.Uint64
	samples atomic.Uint64
}

func NewPump(source Drainer, interval time.Duration, sinks ...Sink) *Pump {
	return &Pump{
		source:   source,
		interval: interval,
		sinks:    sinks,
	}
}

// Run pumps until the context is done. Samples acquired after the last
// tick are pumped before it returns.
func (p *Pump) Run(ctx context.Context) error {
	log.Debug("Starting pump: interval: %s sinks: %d", p.interval, len(p.sinks))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.Pump()
			return ctx.Err()
		case <-ticker.C:
			p.Pump()
		}
	}
}

// Pump drains once. It returns false when there was nothing to drain.
func (p *Pump) Pump() bool {
	batch, ok := p.source.Drain()
	if !ok {
		return false
	}
	p.batches.Add(1)
	p.samples.Add(uint64(len(batch.Rows)))
	for _, sink := range p.sinks {
		if err := sink.Consume(batch); err != nil {
			log.Error("Error while consuming batch: %s", err)
		}
	}
	return true
}

func (p *Pump) Samples() uint64 {
	return p.samples.Load()
}

func (p *Pump) Batches() uint64 {
	return p.batches.Load()
}
