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

package timestamp

import (
	"time"

	"jinr.ru/greenlab/go-octaeeg/pkg/log"
)

// DeviceClock trusts the per block device timestamp and keeps
// offset = host - device. The offset is recomputed on the first block and
// whenever the device timestamp does not advance (wraparound after 2^32 us
// or a reset of the board). The offset always follows the host clock, but a
// calibrated time earlier than the previous one is held at the previous one.
type DeviceClock struct {
	clock          Clock
	anchored       bool
	last           uint32
	offset         time.Duration
	lastCalibrated time.Time
	recalibrations int
}

var _ Reconciler = &DeviceClock{}

func NewDeviceClock(clock Clock) *DeviceClock {
	return &DeviceClock{clock: clock}
}

func (c *DeviceClock) Strategy() Strategy {
	return StrategyDevice
}

func (c *DeviceClock) Reconcile(frame *Frame) []time.Time {
	out := make([]time.Time, 0, len(frame.Blocks))
	for _, block := range frame.Blocks {
		out = append(out, c.Calibrate(block.Timestamp))
	}
	return out
}

// Calibrate converts a single device timestamp
func (c *DeviceClock) Calibrate(ts uint32) time.Time {
	if !c.anchored || ts <= c.last {
		c.anchor(ts)
	}
	c.last = ts
	calibrated := deviceTime(ts).Add(c.offset)
	if calibrated.Before(c.lastCalibrated) {
		calibrated = c.lastCalibrated
	}
	c.lastCalibrated = calibrated
	return calibrated
}

func (c *DeviceClock) anchor(ts uint32) {
	if c.anchored {
		c.recalibrations++
		log.Debug("Device clock discontinuity: last: %d current: %d", c.last, ts)
	}
	c.offset = micro(c.clock.Now()).Sub(deviceTime(ts))
	c.anchored = true
}

// Offset returns the current host - device offset
func (c *DeviceClock) Offset() time.Duration {
	return c.offset
}

// Recalibrations returns the number of discontinuities seen. The first
// anchoring is not counted.
func (c *DeviceClock) Recalibrations() int {
	return c.recalibrations
}

// OneShotClock computes the offset once from the last block of the first
// non-empty frame. It neither follows drift of the device clock nor handles
// the wraparound: after 2^32 us calibrated time jumps back by ~71.6 minutes.
type OneShotClock struct {
	clock    Clock
	anchored bool
	offset   time.Duration
}

var _ Reconciler = &OneShotClock{}

func NewOneShotClock(clock Clock) *OneShotClock {
	return &OneShotClock{clock: clock}
}

func (c *OneShotClock) Strategy() Strategy {
	return StrategyOneShot
}

func (c *OneShotClock) Reconcile(frame *Frame) []time.Time {
	if len(frame.Blocks) == 0 {
		return nil
	}
	if !c.anchored {
		last := frame.Blocks[len(frame.Blocks)-1].Timestamp
		c.offset = micro(c.clock.Now()).Sub(deviceTime(last))
		c.anchored = true
	}
	out := make([]time.Time, len(frame.Blocks))
	for i, block := range frame.Blocks {
		out[i] = deviceTime(block.Timestamp).Add(c.offset)
	}
	return out
}

func (c *OneShotClock) Offset() time.Duration {
	return c.offset
}

// HostClock is for boards without a device clock. The receive time of the
// frame is taken as the time of its last block, earlier blocks are placed
// 1/rate apart before it. Jitter of the receive time moves the whole frame.
type HostClock struct {
	step time.Duration
}

var _ Reconciler = &HostClock{}

func NewHostClock(rate int) *HostClock {
	if rate <= 0 {
		rate = 1
	}
	return &HostClock{step: time.Second / time.Duration(rate)}
}

func (c *HostClock) Strategy() Strategy {
	return StrategyHost
}

func (c *HostClock) Reconcile(frame *Frame) []time.Time {
	n := len(frame.Blocks)
	if n == 0 {
		return nil
	}
	anchor := micro(frame.Received)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = anchor.Add(-time.Duration(n-1-i) * c.step)
	}
	return out
}

// Step returns the interval between two samples
func (c *HostClock) Step() time.Duration {
	return c.step
}
