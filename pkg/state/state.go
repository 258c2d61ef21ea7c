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

package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"jinr.ru/greenlab/go-octaeeg/pkg/config"
	"jinr.ru/greenlab/go-octaeeg/pkg/device"
	"jinr.ru/greenlab/go-octaeeg/pkg/log"
)

const (
	SessionsBucket   = "sessions"
	BucketNamePrefix = "reg_"
)

// Session is one acquisition run
type Session struct {
	ID             string     `json:"id"`
	Device         string     `json:"device"`
	Rate           int        `json:"rate"`
	Gain           int        `json:"gain"`
	Layout         string     `json:"layout"`
	Strategy       string     `json:"strategy"`
	Started        time.Time  `json:"started"`
	Finished       *time.Time `json:"finished,omitempty"`
	Frames         uint64     `json:"frames"`
	Samples        uint64     `json:"samples"`
	DroppedBytes   uint64     `json:"droppedBytes"`
	Recalibrations uint64     `json:"recalibrations"`
	Files          []string   `json:"files,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// State keeps sessions and the last register values written to each device
type State struct {
	DB *bbolt.DB
}

func Open(path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(SessionsBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &State{DB: db}, nil
}

func (s *State) Close() error {
	return s.DB.Close()
}

// Begin creates a running session
func (s *State) Begin(deviceName string, acq *config.Acquisition) (*Session, error) {
	session := &Session{
		ID:       uuid.NewString(),
		Device:   deviceName,
		Rate:     int(acq.Rate),
		Gain:     int(acq.Gain),
		Layout:   acq.Layout.String(),
		Strategy: acq.Strategy.String(),
		Started:  time.Now().UTC(),
	}
	log.Debug("Beginning session: %s", session.ID)
	return session, s.Put(session)
}

// Finish marks the session finished and stores it
func (s *State) Finish(session *Session) error {
	finished := time.Now().UTC()
	session.Finished = &finished
	log.Debug("Finishing session: %s", session.ID)
	return s.Put(session)
}

func (s *State) Put(session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(SessionsBucket))
		if b == nil {
			return ErrBucketNotFound{Name: SessionsBucket}
		}
		return b.Put([]byte(session.ID), data)
	})
}

func (s *State) Get(id string) (*Session, error) {
	session := &Session{}
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(SessionsBucket))
		if b == nil {
			return ErrBucketNotFound{Name: SessionsBucket}
		}
		data := b.Get([]byte(id))
		if data == nil {
			return ErrSessionNotFound{ID: id}
		}
		return json.Unmarshal(data, session)
	}); err != nil {
		return nil, err
	}
	return session, nil
}

// List returns all sessions, oldest first
func (s *State) List() ([]*Session, error) {
	sessions := []*Session{}
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(SessionsBucket))
		if b == nil {
			return ErrBucketNotFound{Name: SessionsBucket}
		}
		return b.ForEach(func(k, v []byte) error {
			session := &Session{}
			if err := json.Unmarshal(v, session); err != nil {
				return fmt.Errorf("session %s: %w", k, err)
			}
			sessions = append(sessions, session)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Started.Before(sessions[j].Started)
	})
	return sessions, nil
}

func bucketName(deviceName string) string {
	return fmt.Sprintf("%s%s", BucketNamePrefix, deviceName)
}

// SetReg stores the value written to a device register
func (s *State) SetReg(deviceName string, addr, value uint8) error {
	log.Debug("Setting register: device: %s Addr: %#02x Value: %#02x", deviceName, addr, value)
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName(deviceName)))
		if err != nil {
			return err
		}
		return b.Put([]byte{addr}, []byte{value})
	})
}

// GetRegAll returns the register values last written to the device
func (s *State) GetRegAll(deviceName string) (map[uint8]uint8, error) {
	regs := map[uint8]uint8{}
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName(deviceName)))
		if b == nil {
			return ErrBucketNotFound{Name: bucketName(deviceName)}
		}
		return b.ForEach(func(k, v []byte) error {
			if len(k) == 1 && len(v) == 1 {
				regs[k[0]] = v[0]
			}
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return regs, nil
}

// RegTracker is a device.Sender which stores every successful register
// write of the wrapped sender
type RegTracker struct {
	device.Sender
	State  *State
	Device string
}

var _ device.Sender = &RegTracker{}

func (t *RegTracker) Send(cmd device.Command) error {
	if err := t.Sender.Send(cmd); err != nil {
		return err
	}
	if cmd.Command != device.CmdWreg || len(cmd.Parameters) != 2 {
		return nil
	}
	if err := t.State.SetReg(t.Device, uint8(cmd.Parameters[0]), uint8(cmd.Parameters[1])); err != nil {
		log.Warning("Error while storing register state: %s", err)
	}
	return nil
}
