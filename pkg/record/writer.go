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

package record

import (
	"encoding/csv"
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	"jinr.ru/greenlab/go-octaeeg/pkg/driver"
	"jinr.ru/greenlab/go-octaeeg/pkg/log"
)

const (
	TimestampColumn = "timestamp_us"
	FileTimeLayout  = "20060102-150405"
)

// Filename builds <prefix>_<time>_<rate>.csv inside dir
func Filename(dir, prefix string, rate int, t time.Time) string {
	filename := fmt.Sprintf("%s_%d.csv", t.Format(FileTimeLayout), rate)
	if prefix != "" {
		filename = fmt.Sprintf("%s_%s", prefix, filename)
	}
	return path.Join(dir, filename)
}

// Writer stores drained batches as CSV, one row per sample
type Writer struct {
	filename string
	file     *os.File
	csv      *csv.Writer
	columns  int
	rows     uint64
}

func NewWriter(filename string, names []string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		log.Error("Error while creating file: %s", filename)
		return nil, err
	}
	w := &Writer{
		filename: filename,
		file:     file,
		csv:      csv.NewWriter(file),
		columns:  len(names),
	}
	if err := w.csv.Write(append([]string{TimestampColumn}, names...)); err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) Filename() string {
	return w.filename
}

func (w *Writer) Rows() uint64 {
	return w.rows
}

func (w *Writer) Write(batch *driver.Batch) error {
	record := make([]string, w.columns+1)
	for i, row := range batch.Rows {
		if len(row) != w.columns {
			return ErrColumnMismatch{Expected: w.columns, Actual: len(row)}
		}
		record[0] = strconv.FormatInt(batch.Timestamps[i].UnixMicro(), 10)
		for j, v := range row {
			record[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := w.csv.Write(record); err != nil {
			return err
		}
		w.rows++
	}
	return w.csv.Error()
}

// Flush writes buffered rows and closes the file
func (w *Writer) Flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return err
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return err
	}
	log.Info("Recorded %d samples to %s", w.rows, w.filename)
	return w.file.Close()
}
