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

package srv

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-octaeeg/pkg/config"
	"jinr.ru/greenlab/go-octaeeg/pkg/driver"
	"jinr.ru/greenlab/go-octaeeg/pkg/log"
	"jinr.ru/greenlab/go-octaeeg/pkg/state"
)

//go:embed swagger.yaml
var swaggerYAML []byte

// LoadSwagger parses and analyses the embedded API description
func LoadSwagger() (*loads.Document, error) {
	data, err := yaml.YAMLToJSON(swaggerYAML)
	if err != nil {
		return nil, err
	}
	return loads.Analyzed(json.RawMessage(data), "")
}

// Source is what the API needs from the acquisition driver
type Source interface {
	State() driver.State
	Stats() driver.Stats
	Acquisition() *config.Acquisition
}

type Record struct {
	Dir    string `json:"dir"`
	Prefix string `json:"prefix"`
}

type AcquisitionStatus struct {
	Rate     int      `json:"rate"`
	Gain     int      `json:"gain"`
	Layout   string   `json:"layout"`
	Strategy string   `json:"strategy"`
	Names    []string `json:"names"`
}

type Status struct {
	State       string            `json:"state"`
	Session     string            `json:"session,omitempty"`
	Acquisition AcquisitionStatus `json:"acquisition"`
	Stats       driver.Stats      `json:"stats"`
	Outbox      OutboxStatus      `json:"outbox"`
	Recording   string            `json:"recording,omitempty"`
}

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	source   Source
	outbox   *Outbox
	recorder *Recorder
	state    *state.State
	session  *state.Session
	swagger  *loads.Document
}

// NewApiServer builds the router. st and session may be nil when sessions
// are not stored.
func NewApiServer(ctx context.Context, cfg *config.Config, source Source, outbox *Outbox,
	recorder *Recorder, st *state.State, session *state.Session) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s", cfg.Api.Address)

	swagger, err := LoadSwagger()
	if err != nil {
		return nil, err
	}
	s := &ApiServer{
		Context:  ctx,
		Config:   cfg,
		source:   source,
		outbox:   outbox,
		recorder: recorder,
		state:    st,
		session:  session,
		swagger:  swagger,
	}
	s.configureRouter()
	return s, nil
}

// Handler wraps the router with access logging and panic recovery
func (s *ApiServer) Handler() http.Handler {
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(log.Writer(log.ErrorLevel)),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(handlers.LoggingHandler(log.Writer(log.DebugLevel), s.Router))
}

// Run serves until the context is done
func (s *ApiServer) Run() error {
	log.Info("Starting API server: address: %s", s.Config.Api.Address)
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    s.Config.Api.Address,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case <-s.Context.Done():
		if err := httpServer.Shutdown(context.Background()); err != nil {
			log.Error("Error while shutting down API server: %s", err)
		}
		return s.Context.Err()
	case err := <-errChan:
		return err
	}
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/drain", s.handleDrain()).Methods("GET")
	subRouter.HandleFunc("/status", s.handleStatus()).Methods("GET")
	subRouter.HandleFunc("/record", s.handleRecord()).Methods("POST")
	subRouter.HandleFunc("/flush", s.handleFlush()).Methods("GET")
	subRouter.HandleFunc("/sessions", s.handleSessions()).Methods("GET")
	subRouter.HandleFunc("/swagger.json", s.handleSwagger()).Methods("GET")

	title := s.swagger.Spec().Info.Title
	subRouter.Handle("/docs", middleware.Redoc(middleware.RedocOpts{
		BasePath: "/api",
		Path:     "docs",
		SpecURL:  "/api/swagger.json",
		Title:    title,
	}, http.NotFoundHandler())).Methods("GET")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while encoding response: %s", err)
	}
}

func (s *ApiServer) handleDrain() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batch, ok := s.outbox.Take()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		log.Debug("Handling drain request: samples: %d", len(batch.Rows))
		writeJSON(w, batch)
	}
}

func (s *ApiServer) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acq := s.source.Acquisition()
		status := &Status{
			State: s.source.State().String(),
			Acquisition: AcquisitionStatus{
				Rate:     int(acq.Rate),
				Gain:     int(acq.Gain),
				Layout:   acq.Layout.String(),
				Strategy: acq.Strategy.String(),
				Names:    acq.Names,
			},
			Stats:     s.source.Stats(),
			Outbox:    s.outbox.Status(),
			Recording: s.recorder.Active(),
		}
		if s.session != nil {
			status.Session = s.session.ID
		}
		writeJSON(w, status)
	}
}

func (s *ApiServer) handleRecord() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &Record{}
		err := json.NewDecoder(r.Body).Decode(rec)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if rec.Dir == "" {
			rec.Dir = s.Config.RecordDir
		}

		log.Debug("Handling record request: dir: %s prefix: %s", rec.Dir, rec.Prefix)

		acq := s.source.Acquisition()
		filename, err := s.recorder.Start(rec.Dir, rec.Prefix, acq.Names, int(acq.Rate))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, &RecordResult{File: filename})
	}
}

func (s *ApiServer) handleFlush() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling flush request")
		result, err := s.recorder.Flush()
		if errors.Is(err, ErrNotRecording{}) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, result)
	}
}

func (s *ApiServer) handleSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling sessions request")
		sessions := []*state.Session{}
		if s.state != nil {
			var err error
			sessions, err = s.state.List()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
		}
		writeJSON(w, sessions)
	}
}

func (s *ApiServer) handleSwagger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(s.swagger.Raw())
	}
}
