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
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"jinr.ru/greenlab/go-octaeeg/pkg/device"
	"jinr.ru/greenlab/go-octaeeg/pkg/log"
)

// Conn is the websocket link to the board. Binary messages are sample
// frames, text messages are command replies and only logged.
type Conn struct {
	url string
	ws  *websocket.Conn

	// gorilla allows one concurrent writer
	writeMu sync.Mutex

	mu     sync.RWMutex
	closed bool
}

// Dial connects to the board. timeout bounds the handshake, zero means
// only ctx bounds it.
func Dial(ctx context.Context, url string, timeout time.Duration) (*Conn, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	log.Info("Connecting to %s", url)
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	log.Info("Connected to %s", url)
	return &Conn{url: url, ws: ws}, nil
}

func (c *Conn) URL() string {
	return c.url
}

func (c *Conn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Receive blocks until the next binary frame
func (c *Conn) Receive() ([]byte, error) {
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return nil, ErrClosed{URL: c.url}
			}
			return nil, ErrClosed{URL: c.url, Err: err}
		}
		switch messageType {
		case websocket.BinaryMessage:
			return data, nil
		case websocket.TextMessage:
			log.Debug("Message from device: %s", data)
		}
	}
}

// Send writes a command as JSON
func (c *Conn) Send(cmd device.Command) error {
	if c.isClosed() {
		return ErrClosed{URL: c.url}
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	log.Debug("Sending command: %s", cmd)
	if err := c.ws.WriteJSON(cmd); err != nil {
		return ErrClosed{URL: c.url, Err: err}
	}
	return nil
}

// Close sends a close message and closes the socket, which unblocks a
// pending Receive. Calling it again is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.writeMu.Unlock()
	if err != nil {
		log.Debug("Error while sending close message: %s", err)
	}
	log.Info("Connection to %s closed", c.url)
	return c.ws.Close()
}
