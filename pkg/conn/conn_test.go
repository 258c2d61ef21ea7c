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

package conn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-octaeeg/pkg/device"
)

// board is a fake device: it records commands and writes whatever is put
// into frames, text messages are prefixed with "text:"
type board struct {
	server   *httptest.Server
	commands chan device.Command
	frames   chan string
	hangup   chan struct{}
}

func newBoard(t *testing.T) *board {
	b := &board{
		commands: make(chan device.Command, 32),
		frames:   make(chan string, 32),
		hangup:   make(chan struct{}),
	}
	upgrader := websocket.Upgrader{}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		go func() {
			for {
				var cmd device.Command
				if err := ws.ReadJSON(&cmd); err != nil {
					return
				}
				b.commands <- cmd
			}
		}()
		for {
			select {
			case f := <-b.frames:
				if strings.HasPrefix(f, "text:") {
					err = ws.WriteMessage(websocket.TextMessage, []byte(strings.TrimPrefix(f, "text:")))
				} else {
					err = ws.WriteMessage(websocket.BinaryMessage, []byte(f))
				}
				if err != nil {
					return
				}
			case <-b.hangup:
				return
			}
		}
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *board) url() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http") + "/"
}

func TestSendCommands(t *testing.T) {
	b := newBoard(t)
	c, err := Dial(context.Background(), b.url(), time.Second)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, b.url(), c.URL())

	require.NoError(t, device.Configure(c, device.Rate500, device.Gain8))
	expected := device.SetupCommands(device.Rate500, device.Gain8)
	for _, want := range expected {
		select {
		case got := <-b.commands:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("command %s not received", want)
		}
	}
}

func TestReceiveSkipsTextMessages(t *testing.T) {
	b := newBoard(t)
	c, err := Dial(context.Background(), b.url(), time.Second)
	require.NoError(t, err)
	defer c.Close()

	b.frames <- "text:{\"status\":\"ok\"}"
	b.frames <- "\x01\x02\x03"
	b.frames <- "\x04"

	data, err := c.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
	data, err = c.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, data)
}

func TestRemoteHangup(t *testing.T) {
	b := newBoard(t)
	c, err := Dial(context.Background(), b.url(), time.Second)
	require.NoError(t, err)
	defer c.Close()

	close(b.hangup)
	_, err = c.Receive()
	var closedErr ErrClosed
	require.ErrorAs(t, err, &closedErr)
	assert.Error(t, closedErr.Err)
}

func TestCloseUnblocksReceive(t *testing.T) {
	b := newBoard(t)
	c, err := Dial(context.Background(), b.url(), time.Second)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.Receive()
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	select {
	case err := <-done:
		var closedErr ErrClosed
		require.ErrorAs(t, err, &closedErr)
		assert.NoError(t, closedErr.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("receive still blocked after close")
	}

	err = c.Send(device.Command{Command: device.CmdStatus})
	assert.ErrorAs(t, err, &ErrClosed{})
}

func TestDialFailure(t *testing.T) {
	b := newBoard(t)
	url := b.url()
	b.server.Close()
	_, err := Dial(context.Background(), url, 200*time.Millisecond)
	assert.Error(t, err)
}
