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
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"sigs.k8s.io/yaml"
)

// ReadTimestamps reads the timestamp column of a recorded file
func ReadTimestamps(r io.Reader) ([]time.Time, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) == 0 || header[0] != TimestampColumn {
		return nil, fmt.Errorf("first column is not %s", TimestampColumn)
	}
	timestamps := []time.Time{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return timestamps, nil
		}
		if err != nil {
			return nil, err
		}
		us, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(timestamps)+2, err)
		}
		timestamps = append(timestamps, time.UnixMicro(us))
	}
}

// DriftReport compares the nominal sample rate with the rate implied by
// the timestamps. DriftPerHour is in seconds per hour, positive when the
// device samples slower than nominal.
type DriftReport struct {
	Samples      int     `json:"Samples"`
	Duration     float64 `json:"Duration"`
	NominalRate  int     `json:"NominalRate"`
	ActualRate   float64 `json:"ActualRate"`
	DriftPerHour float64 `json:"DriftPerHour"`
}

func EstimateDrift(timestamps []time.Time, nominalRate int) (*DriftReport, error) {
	if len(timestamps) < 2 {
		return nil, ErrNotEnoughSamples{Samples: len(timestamps)}
	}
	duration := timestamps[len(timestamps)-1].Sub(timestamps[0]).Seconds()
	if duration <= 0 {
		return nil, ErrNotEnoughSamples{Samples: len(timestamps)}
	}
	rate := float64(len(timestamps)) / duration
	nominal := float64(nominalRate)
	return &DriftReport{
		Samples:      len(timestamps),
		Duration:     duration,
		NominalRate:  nominalRate,
		ActualRate:   rate,
		DriftPerHour: (nominal*3600 - rate*3600) / nominal,
	}, nil
}

func (r *DriftReport) String() string {
	result, err := yaml.Marshal(r)
	if err != nil {
		return ""
	}
	return string(result)
}
