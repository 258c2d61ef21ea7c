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
	"fmt"
	"net/http"
	"strings"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-octaeeg/pkg/config"
	"jinr.ru/greenlab/go-octaeeg/pkg/driver"
	"jinr.ru/greenlab/go-octaeeg/pkg/srv"
	"jinr.ru/greenlab/go-octaeeg/pkg/state"
)

// ErrUnexpectedStatus returned when the API answers with an unexpected code
type ErrUnexpectedStatus struct {
	Status  string
	Message string
}

func (e ErrUnexpectedStatus) Error() string {
	if e.Message == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

func checkStatus(r *req.Resp, codes ...int) error {
	code := r.Response().StatusCode
	for _, c := range codes {
		if code == c {
			return nil
		}
	}
	return ErrUnexpectedStatus{
		Status:  r.Response().Status,
		Message: strings.TrimSpace(r.String()),
	}
}

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s/api", cfg.Api.Address),
	}
}

func (c *ApiClient) url(path string) string {
	return fmt.Sprintf("%s/%s", c.ApiPrefix, path)
}

// Drain takes the samples pumped since the previous drain. ok is false
// when there are none.
func (c *ApiClient) Drain() (*driver.Batch, bool, error) {
	r, err := req.Get(c.url("drain"))
	if err != nil {
		return nil, false, err
	}
	if err := checkStatus(r, http.StatusOK, http.StatusNoContent); err != nil {
		return nil, false, err
	}
	if r.Response().StatusCode == http.StatusNoContent {
		return nil, false, nil
	}
	batch := &driver.Batch{}
	if err := r.ToJSON(batch); err != nil {
		return nil, false, err
	}
	return batch, true, nil
}

func (c *ApiClient) Status() (*srv.Status, error) {
	r, err := req.Get(c.url("status"))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r, http.StatusOK); err != nil {
		return nil, err
	}
	status := &srv.Status{}
	if err := r.ToJSON(status); err != nil {
		return nil, err
	}
	return status, nil
}

// RecordStart starts recording into a new file in dir
func (c *ApiClient) RecordStart(dir, prefix string) (*srv.RecordResult, error) {
	record := &srv.Record{
		Dir:    dir,
		Prefix: prefix,
	}
	r, err := req.Post(c.url("record"), req.BodyJSON(record))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r, http.StatusOK); err != nil {
		return nil, err
	}
	result := &srv.RecordResult{}
	if err := r.ToJSON(result); err != nil {
		return nil, err
	}
	return result, nil
}

// Flush closes the file being recorded
func (c *ApiClient) Flush() (*srv.RecordResult, error) {
	r, err := req.Get(c.url("flush"))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r, http.StatusOK); err != nil {
		return nil, err
	}
	result := &srv.RecordResult{}
	if err := r.ToJSON(result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *ApiClient) Sessions() ([]*state.Session, error) {
	r, err := req.Get(c.url("sessions"))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r, http.StatusOK); err != nil {
		return nil, err
	}
	sessions := []*state.Session{}
	if err := r.ToJSON(&sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
