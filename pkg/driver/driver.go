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

package driver

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"jinr.ru/greenlab/go-octaeeg/pkg/buffer"
	"jinr.ru/greenlab/go-octaeeg/pkg/config"
	"jinr.ru/greenlab/go-octaeeg/pkg/device"
	"jinr.ru/greenlab/go-octaeeg/pkg/layers"
	"jinr.ru/greenlab/go-octaeeg/pkg/log"
	"jinr.ru/greenlab/go-octaeeg/pkg/timestamp"
)

// Connection is the transport to the board. Receive blocks until a frame
// arrives and returns an error once the connection is closed. Close must
// unblock a pending Receive.
type Connection interface {
	Receive() ([]byte, error)
	Close() error
}

type State int32

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// Meta is the static metadata attached to every batch
type Meta struct {
	Rate int `json:"rate"`
}

// Batch is everything acquired between two drains
type Batch struct {
	Names      []string    `json:"names"`
	Rows       [][]float64 `json:"rows"`
	Timestamps []time.Time `json:"timestamps"`
	Meta       Meta        `json:"meta"`
}

// Stats are the counters of the acquisition loop
type Stats struct {
	Frames         uint64 `json:"frames"`
	Blocks         uint64 `json:"blocks"`
	DroppedBytes   uint64 `json:"droppedBytes"`
	Recalibrations uint64 `json:"recalibrations"`
	Drains         uint64 `json:"drains"`
	Pending        int    `json:"pending"`
}

type Option func(*Driver)

// WithClock replaces the host clock
func WithClock(clock timestamp.Clock) Option {
	return func(d *Driver) {
		d.clock = clock
	}
}

// Driver runs the acquisition loop: receive, decode, convert, timestamp,
// accumulate. It owns the connection and the reconciler, the buffer is
// shared with Drain callers.
type Driver struct {
	acq        *config.Acquisition
	conn       Connection
	clock      timestamp.Clock
	reconciler timestamp.Reconciler
	converter  *device.Converter
	buf        *buffer.Buffer

	state    atomic.Int32
	started  atomic.Bool
	stopping atomic.Bool
	stopOnce sync.Once

	frames         atomic.Uint64
	blocks         atomic.Uint64
	droppedBytes   atomic.Uint64
	recalibrations atomic.Uint64
	drains         atomic.Uint64
}

// New validates the acquisition config before anything touches the connection
func New(cfg *config.AcquisitionConfig, conn Connection, opts ...Option) (*Driver, error) {
	acq, err := cfg.Parse()
	if err != nil {
		return nil, err
	}
	d := &Driver{
		acq:       acq,
		conn:      conn,
		clock:     timestamp.SystemClock{},
		converter: device.NewConverter(acq.Gain, acq.Debug),
		buf:       buffer.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.reconciler = timestamp.New(acq.Strategy, int(acq.Rate), d.clock)
	return d, nil
}

// Acquisition returns the validated settings
func (d *Driver) Acquisition() *config.Acquisition {
	return d.acq
}

func (d *Driver) State() State {
	return State(d.state.Load())
}

// Run blocks until the context is done, Stop is called or the connection
// fails. A closed connection which was not requested by Stop is reported as
// ErrConnectionClosed. The connection is closed when Run returns, so a Driver
// runs only once; later calls return ErrAlreadyRunning.
func (d *Driver) Run(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning{}
	}
	d.state.Store(int32(StateRunning))
	defer d.state.Store(int32(StateStopped))

	log.Info("Starting acquisition: rate: %d Hz gain: %d layout: %s strategy: %s",
		d.acq.Rate, d.acq.Gain, d.acq.Layout, d.acq.Strategy)

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.loop()
	}()

	select {
	case <-ctx.Done():
		d.Stop()
		<-errChan
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// Stop requests the loop to finish and closes the connection, which is the
// only way to unblock a pending receive
func (d *Driver) Stop() {
	d.stopOnce.Do(func() {
		log.Info("Stopping acquisition")
		d.stopping.Store(true)
		if err := d.conn.Close(); err != nil {
			log.Debug("Error while closing connection: %s", err)
		}
	})
}

func (d *Driver) loop() error {
	for !d.stopping.Load() {
		data, err := d.conn.Receive()
		if err != nil {
			if d.stopping.Load() {
				return nil
			}
			log.Error("Connection closed while acquiring: %s", err)
			return ErrConnectionClosed{Err: err}
		}
		if len(data) == 0 {
			continue
		}
		d.process(data, d.clock.Now())
	}
	return nil
}

func (d *Driver) process(data []byte, received time.Time) {
	d.frames.Add(1)
	frame, err := layers.DecodeFrame(data, d.acq.Layout)
	if err != nil {
		log.Error("Drop frame. Error while decoding: %s", err)
		d.droppedBytes.Add(uint64(len(data)))
		return
	}
	if frame.Dropped > 0 {
		log.Debug("Frame of %d bytes has %d trailing bytes, dropped", len(data), frame.Dropped)
		d.droppedBytes.Add(uint64(frame.Dropped))
	}
	if len(frame.Blocks) == 0 {
		return
	}

	timestamps := d.reconciler.Reconcile(&timestamp.Frame{Blocks: frame.Blocks, Received: received})
	if dc, ok := d.reconciler.(*timestamp.DeviceClock); ok {
		recal := uint64(dc.Recalibrations())
		if prev := d.recalibrations.Swap(recal); prev != recal {
			log.Info("Device clock recalibrated: offset: %s total: %d", dc.Offset(), recal)
		}
	}

	rows := make([][]float64, len(frame.Blocks))
	for i, block := range frame.Blocks {
		rows[i] = d.converter.Row(block)
	}
	d.blocks.Add(uint64(len(rows)))
	d.buf.Append(rows, timestamps)
	log.Debug("Frame processed: blocks: %d", len(rows))
}

// Drain takes all accumulated samples. ok is false when nothing was
// acquired since the previous drain. It is safe to call from any goroutine.
func (d *Driver) Drain() (*Batch, bool) {
	rows, timestamps, ok := d.buf.Drain()
	if !ok {
		return nil, false
	}
	d.drains.Add(1)
	return &Batch{
		Names:      d.acq.Names,
		Rows:       rows,
		Timestamps: timestamps,
		Meta:       Meta{Rate: int(d.acq.Rate)},
	}, true
}

func (d *Driver) Stats() Stats {
	return Stats{
		Frames:         d.frames.Load(),
		Blocks:         d.blocks.Load(),
		DroppedBytes:   d.droppedBytes.Load(),
		Recalibrations: d.recalibrations.Load(),
		Drains:         d.drains.Load(),
		Pending:        d.buf.Len(),
	}
}
