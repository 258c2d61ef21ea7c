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

// Package timestamp turns device time into host wall clock time.
//
// Three strategies exist because firmware revisions differ in what they
// report. DeviceClock is the reference one. OneShotClock and HostClock are
// kept for boards which need them.
package timestamp

import (
	"fmt"
	"time"

	"jinr.ru/greenlab/go-octaeeg/pkg/layers"
)

// Clock is the host clock
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Frame is the set of blocks decoded from one received frame
type Frame struct {
	Blocks []layers.SampleBlock
	// Received is the host time when the frame was received
	Received time.Time
}

// Reconciler assigns one calibrated timestamp to each block of a frame.
// Timestamps returned for one frame are non-decreasing.
type Reconciler interface {
	Reconcile(frame *Frame) []time.Time
	Strategy() Strategy
}

type Strategy uint8

const (
	// StrategyDevice uses the device clock of every block and
	// re-anchors it to the host clock on every discontinuity
	StrategyDevice Strategy = iota
	// StrategyOneShot anchors the device clock once
	StrategyOneShot
	// StrategyHost interpolates back from the host receive time at
	// the configured rate
	StrategyHost
)

var strategyNames = map[Strategy]string{
	StrategyDevice:  "device",
	StrategyOneShot: "oneshot",
	StrategyHost:    "host",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// ParseStrategy converts a strategy name to Strategy
func ParseStrategy(name string) (Strategy, bool) {
	for s, n := range strategyNames {
		if n == name {
			return s, true
		}
	}
	return StrategyDevice, false
}

// New creates a reconciler. rate is only used by StrategyHost.
func New(strategy Strategy, rate int, clock Clock) Reconciler {
	if clock == nil {
		clock = SystemClock{}
	}
	switch strategy {
	case StrategyOneShot:
		return NewOneShotClock(clock)
	case StrategyHost:
		return NewHostClock(rate)
	default:
		return NewDeviceClock(clock)
	}
}

// micro drops the monotonic reading and everything below a microsecond
func micro(t time.Time) time.Time {
	return time.UnixMicro(t.UnixMicro())
}

func deviceTime(ts uint32) time.Time {
	return time.UnixMicro(int64(ts))
}
