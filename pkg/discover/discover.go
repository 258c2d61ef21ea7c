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
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-octaeeg/pkg/log"
)

const (
	Domain         = "local"
	DefaultTimeout = 2 * time.Second
)

// Device is a board announced over mDNS
type Device struct {
	Name    string   `json:"Name,omitempty"`
	Host    string   `json:"Host,omitempty"`
	Address string   `json:"Address,omitempty"`
	Port    int      `json:"Port,omitempty"`
	Info    []string `json:"Info,omitempty"`
}

func (d *Device) String() string {
	result, err := yaml.Marshal(d)
	if err != nil {
		log.Info("Error occured while marshaling device description, %s", err)
		return ""
	}
	return fmt.Sprintf("---\n%s", string(result))
}

func newDevice(entry *mdns.ServiceEntry) *Device {
	d := &Device{
		Name: entry.Name,
		Host: strings.TrimSuffix(entry.Host, "."),
		Port: entry.Port,
		Info: entry.InfoFields,
	}
	switch {
	case entry.AddrV4 != nil:
		d.Address = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		d.Address = entry.AddrV6.String()
	}
	return d
}

// QueryFunc sends an mDNS query and puts the answers into params.Entries
type QueryFunc func(ctx context.Context, params *mdns.QueryParam) error

// LookupFunc resolves a host name with the system resolver
type LookupFunc func(ctx context.Context, host string) ([]string, error)

func mdnsQuery(ctx context.Context, params *mdns.QueryParam) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- mdns.Query(params)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

type Resolver struct {
	Service string
	Timeout time.Duration
	query   QueryFunc
	lookup  LookupFunc
}

type Option func(*Resolver)

func WithQuery(query QueryFunc) Option {
	return func(r *Resolver) {
		r.query = query
	}
}

func WithLookup(lookup LookupFunc) Option {
	return func(r *Resolver) {
		r.lookup = lookup
	}
}

func NewResolver(service string, timeout time.Duration, opts ...Option) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &Resolver{
		Service: service,
		Timeout: timeout,
		query:   mdnsQuery,
		lookup:  net.DefaultResolver.LookupHost,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Browse lists the devices which answered during the timeout
func (r *Resolver) Browse(ctx context.Context) ([]*Device, error) {
	log.Debug("Browsing mDNS service: %s timeout: %s", r.Service, r.Timeout)
	// entries is never closed: a cancelled query returns before mdns.Query
	// stops sending to it
	entries := make(chan *mdns.ServiceEntry, 32)
	done := make(chan struct{})
	devices := []*Device{}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		seen := map[string]bool{}
		add := func(entry *mdns.ServiceEntry) {
			if seen[entry.Name] {
				return
			}
			seen[entry.Name] = true
			d := newDevice(entry)
			log.Debug("Discovered device: %s at %s:%d", d.Name, d.Address, d.Port)
			devices = append(devices, d)
		}
		for {
			select {
			case entry := <-entries:
				add(entry)
			case <-done:
				for {
					select {
					case entry := <-entries:
						add(entry)
					default:
						return
					}
				}
			}
		}
	}()

	params := mdns.DefaultParams(r.Service)
	params.Domain = Domain
	params.Timeout = r.Timeout
	params.Entries = entries
	params.DisableIPv6 = true
	err := r.query(ctx, params)
	close(done)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// Resolve returns the address to dial for host. IP addresses and names
// outside the .local domain are returned as is, .local names are looked
// up over mDNS first and then with the system resolver.
func (r *Resolver) Resolve(ctx context.Context, host string) (string, error) {
	if net.ParseIP(host) != nil || !strings.HasSuffix(strings.TrimSuffix(host, "."), "."+Domain) {
		return host, nil
	}
	name := strings.TrimSuffix(host, ".")

	devices, err := r.Browse(ctx)
	if err != nil {
		log.Warning("mDNS query failed: %s", err)
	}
	for _, d := range devices {
		if strings.EqualFold(d.Host, name) && d.Address != "" {
			log.Info("Resolved %s to %s over mDNS", host, d.Address)
			return d.Address, nil
		}
	}

	addrs, err := r.lookup(ctx, host)
	if err != nil || len(addrs) == 0 {
		log.Debug("System resolver failed for %s: %v", host, err)
		return "", ErrHostNotFound{Host: host}
	}
	log.Info("Resolved %s to %s", host, addrs[0])
	return addrs[0], nil
}
