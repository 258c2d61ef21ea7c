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

package discover

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answering(entries ...*mdns.ServiceEntry) QueryFunc {
	return func(ctx context.Context, params *mdns.QueryParam) error {
		for _, e := range entries {
			params.Entries <- e
		}
		return nil
	}
}

func noLookup(t *testing.T) LookupFunc {
	return func(ctx context.Context, host string) ([]string, error) {
		t.Fatalf("unexpected system lookup of %s", host)
		return nil, nil
	}
}

var oric = &mdns.ServiceEntry{
	Name:       "oric._http._tcp.local.",
	Host:       "oric.local.",
	AddrV4:     net.IPv4(192, 168, 4, 1),
	Port:       81,
	InfoFields: []string{"board=octaeeg"},
}

func TestBrowse(t *testing.T) {
	var params *mdns.QueryParam
	query := func(ctx context.Context, p *mdns.QueryParam) error {
		params = p
		return answering(oric, oric)(ctx, p)
	}
	r := NewResolver("_http._tcp", time.Second, WithQuery(query))
	devices, err := r.Browse(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, &Device{
		Name:    "oric._http._tcp.local.",
		Host:    "oric.local",
		Address: "192.168.4.1",
		Port:    81,
		Info:    []string{"board=octaeeg"},
	}, devices[0])
	assert.Contains(t, devices[0].String(), "Address: 192.168.4.1")

	assert.Equal(t, "_http._tcp", params.Service)
	assert.Equal(t, Domain, params.Domain)
	assert.Equal(t, time.Second, params.Timeout)
}

func TestBrowseError(t *testing.T) {
	query := func(ctx context.Context, p *mdns.QueryParam) error {
		return errors.New("no multicast")
	}
	r := NewResolver("_http._tcp", 0, WithQuery(query))
	assert.Equal(t, DefaultTimeout, r.Timeout)
	_, err := r.Browse(context.Background())
	assert.Error(t, err)
}

func TestBrowseCancelledWhileAnswering(t *testing.T) {
	browsed := make(chan struct{})
	sent := make(chan struct{})
	query := func(ctx context.Context, p *mdns.QueryParam) error {
		go func() {
			defer close(sent)
			<-browsed
			// mdns.Query keeps answering until its own timeout
			for i := 0; i < 64; i++ {
				select {
				case p.Entries <- oric:
				default:
				}
			}
		}()
		<-ctx.Done()
		return ctx.Err()
	}
	r := NewResolver("_http._tcp", time.Second, WithQuery(query))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	devices, err := r.Browse(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, devices)

	close(browsed)
	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("late answers were not sent")
	}
}

func TestResolvePassThrough(t *testing.T) {
	query := func(ctx context.Context, p *mdns.QueryParam) error {
		t.Fatal("unexpected mDNS query")
		return nil
	}
	r := NewResolver("_http._tcp", time.Second, WithQuery(query), WithLookup(noLookup(t)))
	for _, host := range []string{"10.0.0.7", "eeg.example.org", "localhost"} {
		addr, err := r.Resolve(context.Background(), host)
		require.NoError(t, err)
		assert.Equal(t, host, addr)
	}
}

func TestResolveOverMDNS(t *testing.T) {
	other := &mdns.ServiceEntry{Name: "printer._http._tcp.local.", Host: "printer.local.", AddrV4: net.IPv4(192, 168, 4, 9)}
	r := NewResolver("_http._tcp", time.Second, WithQuery(answering(other, oric)), WithLookup(noLookup(t)))
	addr, err := r.Resolve(context.Background(), "oric.local")
	require.NoError(t, err)
	assert.Equal(t, "192.168.4.1", addr)
}

func TestResolveFallsBackToSystemResolver(t *testing.T) {
	lookup := func(ctx context.Context, host string) ([]string, error) {
		assert.Equal(t, "oric.local", host)
		return []string{"192.168.4.2"}, nil
	}
	r := NewResolver("_http._tcp", time.Second, WithQuery(answering()), WithLookup(lookup))
	addr, err := r.Resolve(context.Background(), "oric.local")
	require.NoError(t, err)
	assert.Equal(t, "192.168.4.2", addr)
}

func TestResolveNotFound(t *testing.T) {
	lookup := func(ctx context.Context, host string) ([]string, error) {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	r := NewResolver("_http._tcp", time.Second, WithQuery(answering()), WithLookup(lookup))
	_, err := r.Resolve(context.Background(), "oric.local")
	var notFound ErrHostNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "oric.local", notFound.Host)
}
