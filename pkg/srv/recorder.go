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
	"os"
	"sync"
	"time"

	"jinr.ru/greenlab/go-octaeeg/pkg/driver"
	"jinr.ru/greenlab/go-octaeeg/pkg/log"
	"jinr.ru/greenlab/go-octaeeg/pkg/record"
)

type RecordResult struct {
	File string `json:"file"`
	Rows uint64 `json:"rows"`
}

// Recorder writes pumped batches into the current file, if any
type Recorder struct {
	mu     sync.Mutex
	writer *record.Writer
	files  []string
	now    func() time.Time
}

var _ Sink = &Recorder{}

func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Start opens a new file, the current one is flushed first
func (r *Recorder) Start(dir, prefix string, names []string, rate int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer != nil {
		if _, err := r.flush(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	filename := record.Filename(dir, prefix, rate, r.now())
	w, err := record.NewWriter(filename, names)
	if err != nil {
		return "", err
	}
	log.Info("Recording to %s", filename)
	r.writer = w
	return filename, nil
}

func (r *Recorder) Consume(batch *driver.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer == nil {
		return nil
	}
	return r.writer.Write(batch)
}

// Flush closes the current file
func (r *Recorder) Flush() (*RecordResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer == nil {
		return nil, ErrNotRecording{}
	}
	return r.flush()
}

func (r *Recorder) flush() (*RecordResult, error) {
	w := r.writer
	r.writer = nil
	r.files = append(r.files, w.Filename())
	result := &RecordResult{File: w.Filename(), Rows: w.Rows()}
	return result, w.Flush()
}

// Active returns the file being recorded or an empty string
func (r *Recorder) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer == nil {
		return ""
	}
	return r.writer.Filename()
}

// Files returns the finished files
func (r *Recorder) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.files...)
}
