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
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-octaeeg/pkg/config"
	"jinr.ru/greenlab/go-octaeeg/pkg/device"
	"jinr.ru/greenlab/go-octaeeg/pkg/layers"
)

type fakeConn struct {
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Receive() ([]byte, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	case <-c.closed:
		return nil, net.ErrClosed
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

var hostNow = time.Date(2024, 7, 14, 12, 15, 27, 0, time.UTC)

func frame(t *testing.T, layout layers.Layout, firstTs uint32, n int) []byte {
	blocks := make([]layers.SampleBlock, n)
	for i := range blocks {
		blocks[i].HasTimestamp = layout == layers.LayoutHeader
		if blocks[i].HasTimestamp {
			blocks[i].Timestamp = firstTs + uint32(i)*4000
		}
		blocks[i].Counter = uint32(i)
		blocks[i].Codes[0] = layers.MaxCode
		blocks[i].Codes[7] = -1000
	}
	data, err := layers.EncodeFrame(blocks, layout)
	require.NoError(t, err)
	return data
}

func startDriver(t *testing.T, d *Driver) (context.CancelFunc, chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()
	require.Eventually(t, func() bool { return d.State() == StateRunning }, time.Second, time.Millisecond)
	t.Cleanup(cancel)
	return cancel, done
}

func waitErr(t *testing.T, done chan error) error {
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("acquisition loop did not finish")
		return nil
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.NewDefaultConfig().Acquisition
	cfg.Rate = 300
	conn := newFakeConn()
	_, err := New(cfg, conn)
	var rateErr device.ErrInvalidRate
	require.ErrorAs(t, err, &rateErr)
	assert.False(t, conn.isClosed())

	cfg = config.NewDefaultConfig().Acquisition
	cfg.Gain = 5
	_, err = New(cfg, conn)
	var gainErr device.ErrInvalidGain
	require.ErrorAs(t, err, &gainErr)
}

func TestAcquireAndDrain(t *testing.T) {
	cfg := config.NewDefaultConfig().Acquisition
	cfg.Gain = 1
	conn := newFakeConn()
	d, err := New(cfg, conn, WithClock(&fakeClock{now: hostNow}))
	require.NoError(t, err)

	_, ok := d.Drain()
	assert.False(t, ok)

	cancel, done := startDriver(t, d)

	conn.frames <- frame(t, layers.LayoutHeader, 1000, 4)
	conn.frames <- []byte{}
	conn.frames <- frame(t, layers.LayoutHeader, 17000, 2)
	require.Eventually(t, func() bool { return d.Stats().Blocks == 6 }, time.Second, time.Millisecond)

	batch, ok := d.Drain()
	require.True(t, ok)
	assert.Equal(t, Meta{Rate: 250}, batch.Meta)
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8"}, batch.Names)
	require.Len(t, batch.Rows, 6)
	require.Len(t, batch.Timestamps, 6)
	for i, row := range batch.Rows {
		require.Len(t, row, layers.Channels)
		assert.InDelta(t, 4500000.0, row[0], 1e-6)
		assert.InDelta(t, -1000*4.5e6/8388607, row[7], 1e-6)
		if i > 0 {
			assert.False(t, batch.Timestamps[i].Before(batch.Timestamps[i-1]))
		}
	}
	assert.Equal(t, hostNow, batch.Timestamps[0].UTC())
	assert.Equal(t, hostNow.Add(20*time.Millisecond), batch.Timestamps[5].UTC())

	_, ok = d.Drain()
	assert.False(t, ok, "back to back drains must return nothing the second time")

	stats := d.Stats()
	assert.Equal(t, uint64(2), stats.Frames)
	assert.Equal(t, uint64(1), stats.Drains)
	assert.Equal(t, 0, stats.Pending)

	cancel()
	assert.ErrorIs(t, waitErr(t, done), context.Canceled)
	assert.True(t, conn.isClosed())
	assert.Equal(t, StateStopped, d.State())
}

func TestDebugColumns(t *testing.T) {
	cfg := config.NewDefaultConfig().Acquisition
	cfg.Debug = true
	conn := newFakeConn()
	d, err := New(cfg, conn, WithClock(&fakeClock{now: hostNow}))
	require.NoError(t, err)
	startDriver(t, d)

	conn.frames <- frame(t, layers.LayoutHeader, 5000, 2)
	require.Eventually(t, func() bool { return d.Stats().Blocks == 2 }, time.Second, time.Millisecond)

	batch, ok := d.Drain()
	require.True(t, ok)
	assert.Equal(t, "TIMESTAMP", batch.Names[0])
	assert.Equal(t, "COUNTER", batch.Names[1])
	for _, row := range batch.Rows {
		assert.Len(t, row, len(batch.Names))
	}
	assert.Equal(t, 5000.0, batch.Rows[0][0])
	assert.Equal(t, 9000.0, batch.Rows[1][0])
	assert.Equal(t, 1.0, batch.Rows[1][1])
}

func TestTruncatedFrameIsNotFatal(t *testing.T) {
	conn := newFakeConn()
	d, err := New(config.NewDefaultConfig().Acquisition, conn)
	require.NoError(t, err)
	startDriver(t, d)

	data := frame(t, layers.LayoutHeader, 1000, 3)
	conn.frames <- append(data, 0xde, 0xad, 0xbe)
	conn.frames <- data[:10]
	conn.frames <- frame(t, layers.LayoutHeader, 100000, 1)

	require.Eventually(t, func() bool { return d.Stats().Frames == 3 }, time.Second, time.Millisecond)
	stats := d.Stats()
	assert.Equal(t, uint64(4), stats.Blocks)
	assert.Equal(t, uint64(13), stats.DroppedBytes)
	assert.Equal(t, StateRunning, d.State())
}

func TestRecalibrationIsCounted(t *testing.T) {
	conn := newFakeConn()
	d, err := New(config.NewDefaultConfig().Acquisition, conn, WithClock(&fakeClock{now: hostNow}))
	require.NoError(t, err)
	startDriver(t, d)

	conn.frames <- frame(t, layers.LayoutHeader, 100000, 2)
	conn.frames <- frame(t, layers.LayoutHeader, 50, 2)
	require.Eventually(t, func() bool { return d.Stats().Blocks == 4 }, time.Second, time.Millisecond)
	assert.Equal(t, uint64(1), d.Stats().Recalibrations)

	batch, ok := d.Drain()
	require.True(t, ok)
	for i := 1; i < len(batch.Timestamps); i++ {
		assert.False(t, batch.Timestamps[i].Before(batch.Timestamps[i-1]))
	}
}

func TestHostStrategyWithCompactLayout(t *testing.T) {
	cfg := config.NewDefaultConfig().Acquisition
	cfg.Rate = 1000
	cfg.Layout = "compact"
	cfg.Strategy = "host"
	conn := newFakeConn()
	d, err := New(cfg, conn, WithClock(&fakeClock{now: hostNow}))
	require.NoError(t, err)
	startDriver(t, d)

	conn.frames <- frame(t, layers.LayoutCompact, 0, 4)
	require.Eventually(t, func() bool { return d.Stats().Blocks == 4 }, time.Second, time.Millisecond)

	batch, ok := d.Drain()
	require.True(t, ok)
	require.Len(t, batch.Timestamps, 4)
	for i, ts := range batch.Timestamps {
		assert.Equal(t, hostNow.Add(-time.Duration(3-i)*time.Millisecond), ts.UTC())
	}
	assert.Equal(t, Meta{Rate: 1000}, batch.Meta)
}

func TestClosedConnectionTerminates(t *testing.T) {
	conn := newFakeConn()
	d, err := New(config.NewDefaultConfig().Acquisition, conn)
	require.NoError(t, err)
	_, done := startDriver(t, d)

	conn.frames <- frame(t, layers.LayoutHeader, 1000, 1)
	close(conn.frames)

	err = waitErr(t, done)
	var closedErr ErrConnectionClosed
	require.ErrorAs(t, err, &closedErr)
	assert.True(t, errors.Is(err, io.EOF))
	assert.Equal(t, StateStopped, d.State())

	// samples received before the connection died are still drainable
	batch, ok := d.Drain()
	require.True(t, ok)
	assert.Len(t, batch.Rows, 1)
}

func TestStop(t *testing.T) {
	conn := newFakeConn()
	d, err := New(config.NewDefaultConfig().Acquisition, conn)
	require.NoError(t, err)
	_, done := startDriver(t, d)

	d.Stop()
	d.Stop()
	assert.NoError(t, waitErr(t, done))
	assert.True(t, conn.isClosed())
}

func TestRunTwice(t *testing.T) {
	conn := newFakeConn()
	d, err := New(config.NewDefaultConfig().Acquisition, conn)
	require.NoError(t, err)
	startDriver(t, d)

	err = d.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning{})
}

func TestRunAfterStop(t *testing.T) {
	conn := newFakeConn()
	d, err := New(config.NewDefaultConfig().Acquisition, conn)
	require.NoError(t, err)
	_, done := startDriver(t, d)

	d.Stop()
	require.NoError(t, waitErr(t, done))

	err = d.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning{})
	assert.Equal(t, StateStopped, d.State())
}

func TestDrainWhileAcquiring(t *testing.T) {
	const frames = 200
	conn := newFakeConn()
	d, err := New(config.NewDefaultConfig().Acquisition, conn)
	require.NoError(t, err)
	startDriver(t, d)

	go func() {
		for i := 0; i < frames; i++ {
			conn.frames <- frame(t, layers.LayoutHeader, uint32(1000+i*8000), 2)
		}
	}()

	total := 0
	require.Eventually(t, func() bool {
		if batch, ok := d.Drain(); ok {
			assert.Equal(t, 0, len(batch.Rows)%2)
			assert.Equal(t, len(batch.Rows), len(batch.Timestamps))
			total += len(batch.Rows)
		}
		return total == frames*2
	}, 5*time.Second, time.Millisecond)
}
