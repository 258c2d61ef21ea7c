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
	"errors"

	"golang.org/x/sync/errgroup"

	"jinr.ru/greenlab/go-octaeeg/pkg/config"
	"jinr.ru/greenlab/go-octaeeg/pkg/conn"
	"jinr.ru/greenlab/go-octaeeg/pkg/device"
	"jinr.ru/greenlab/go-octaeeg/pkg/discover"
	"jinr.ru/greenlab/go-octaeeg/pkg/driver"
	"jinr.ru/greenlab/go-octaeeg/pkg/log"
	"jinr.ru/greenlab/go-octaeeg/pkg/srv"
	"jinr.ru/greenlab/go-octaeeg/pkg/state"
)

// RecordOptions start recording together with the acquisition when Enabled
type RecordOptions struct {
	Enabled bool
	Dir     string
	Prefix  string
}

// Acquire connects to the device, configures it and acquires until ctx is
// done or the connection fails. Drained samples are served by the API
// server and optionally recorded. The session is stored in the database.
func Acquire(ctx context.Context, cfg *config.Config, rec RecordOptions) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	resolver := discover.NewResolver(cfg.Device.Service, cfg.Device.DialTimeout.Duration)
	addr, err := resolver.Resolve(ctx, cfg.Device.Host)
	if err != nil {
		return err
	}
	c, err := conn.Dial(ctx, cfg.Device.URL(addr), cfg.Device.DialTimeout.Duration)
	if err != nil {
		return err
	}
	defer c.Close()

	d, err := driver.New(cfg.Acquisition, c)
	if err != nil {
		return err
	}
	acq := d.Acquisition()

	st, err := state.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	tracker := &state.RegTracker{Sender: c, State: st, Device: cfg.Device.Host}
	if err := device.Configure(tracker, acq.Rate, acq.Gain); err != nil {
		return err
	}

	outbox := srv.NewOutbox(cfg.Api.OutboxSize)
	recorder := srv.NewRecorder()
	if rec.Enabled {
		dir := rec.Dir
		if dir == "" {
			dir = cfg.RecordDir
		}
		if _, err := recorder.Start(dir, rec.Prefix, acq.Names, int(acq.Rate)); err != nil {
			return err
		}
	}

	session, err := st.Begin(cfg.Device.Host, acq)
	if err != nil {
		recorder.Flush()
		return err
	}
	log.Info("Session started: %s", session.ID)

	pump := srv.NewPump(d, cfg.Api.DrainInterval.Duration, recorder, outbox)

	runErr := run(ctx, cfg, d, pump, outbox, recorder, st, session)

	if _, err := recorder.Flush(); err != nil && !errors.Is(err, srv.ErrNotRecording{}) {
		log.Error("Error while flushing recording: %s", err)
	}
	stats := d.Stats()
	session.Frames = stats.Frames
	session.Samples = pump.Samples()
	session.DroppedBytes = stats.DroppedBytes
	session.Recalibrations = stats.Recalibrations
	session.Files = recorder.Files()
	if runErr != nil {
		session.Error = runErr.Error()
	}
	if err := st.Finish(session); err != nil {
		log.Error("Error while storing session: %s", err)
	}
	log.Info("Session finished: %s samples: %d dropped bytes: %d", session.ID, session.Samples, session.DroppedBytes)
	return runErr
}

func run(ctx context.Context, cfg *config.Config, d *driver.Driver, pump *srv.Pump, outbox *srv.Outbox,
	recorder *srv.Recorder, st *state.State, session *state.Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	api, err := srv.NewApiServer(gctx, cfg, d, outbox, recorder, st, session)
	if err != nil {
		return err
	}

	// the pump stops after the driver so the last samples are pumped too
	pumpCtx, stopPump := context.WithCancel(context.Background())
	g.Go(func() error {
		defer cancel()
		defer stopPump()
		err := d.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		pump.Run(pumpCtx)
		return nil
	})
	g.Go(func() error {
		err := api.Run()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}
