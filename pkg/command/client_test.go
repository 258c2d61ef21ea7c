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

package command

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-octaeeg/pkg/config"
	"jinr.ru/greenlab/go-octaeeg/pkg/driver"
	"jinr.ru/greenlab/go-octaeeg/pkg/srv"
	"jinr.ru/greenlab/go-octaeeg/pkg/state"
)

type idleSource struct {
	acq *config.Acquisition
}

func (s *idleSource) State() driver.State              { return driver.StateStopped }
func (s *idleSource) Stats() driver.Stats              { return driver.Stats{} }
func (s *idleSource) Acquisition() *config.Acquisition { return s.acq }

func TestApiClient(t *testing.T) {
	cfg := config.NewDefaultConfig()
	acq, err := cfg.Acquisition.Parse()
	require.NoError(t, err)
	st, err := state.Open(filepath.Join(t.TempDir(), config.DBFile))
	require.NoError(t, err)
	defer st.Close()
	session, err := st.Begin("oric.local", acq)
	require.NoError(t, err)

	outbox := srv.NewOutbox(4)
	recorder := srv.NewRecorder()
	api, err := srv.NewApiServer(context.Background(), cfg, &idleSource{acq: acq}, outbox, recorder, st, session)
	require.NoError(t, err)
	server := httptest.NewServer(api.Handler())
	defer server.Close()

	cfg.Api.Address = strings.TrimPrefix(server.URL, "http://")
	client := NewApiClient(cfg)
	assert.Equal(t, server.URL+"/api", client.ApiPrefix)

	_, ok, err := client.Drain()
	require.NoError(t, err)
	assert.False(t, ok)

	now := time.Now()
	require.NoError(t, outbox.Consume(&driver.Batch{
		Names:      acq.Names,
		Rows:       [][]float64{{1, 2, 3, 4, 5, 6, 7, 8}},
		Timestamps: []time.Time{now},
		Meta:       driver.Meta{Rate: 250},
	}))
	batch, ok, err := client.Drain()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, [][]float64{{1, 2, 3, 4, 5, 6, 7, 8}}, batch.Rows)
	assert.True(t, batch.Timestamps[0].Equal(now))

	status, err := client.Status()
	require.NoError(t, err)
	assert.Equal(t, "stopped", status.State)
	assert.Equal(t, session.ID, status.Session)

	_, err = client.Flush()
	var unexpected ErrUnexpectedStatus
	require.ErrorAs(t, err, &unexpected)
	assert.Contains(t, unexpected.Status, "409")
	assert.Equal(t, "Not recording", unexpected.Message)

	dir := t.TempDir()
	started, err := client.RecordStart(dir, "sub01")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(started.File))
	flushed, err := client.Flush()
	require.NoError(t, err)
	assert.Equal(t, started.File, flushed.File)
	assert.Equal(t, uint64(0), flushed.Rows)

	sessions, err := client.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, session.ID, sessions[0].ID)
}
