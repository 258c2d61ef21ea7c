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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-octaeeg/pkg/driver"
)

var start = time.Date(2024, 7, 14, 13, 40, 22, 0, time.UTC)

func batch(first, n int) *driver.Batch {
	b := &driver.Batch{Names: []string{"Fp1", "Fp2"}, Meta: driver.Meta{Rate: 1000}}
	for i := first; i < first+n; i++ {
		b.Rows = append(b.Rows, []float64{float64(i), -0.5})
		b.Timestamps = append(b.Timestamps, start.Add(time.Duration(i)*time.Millisecond))
	}
	return b
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "/data/20240714-134022_1000.csv", Filename("/data", "", 1000, start))
	assert.Equal(t, "/data/sub01_20240714-134022_250.csv", Filename("/data", "sub01", 250, start))
}

func TestWriteAndReadBack(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "rec.csv")
	w, err := NewWriter(filename, []string{"Fp1", "Fp2"})
	require.NoError(t, err)
	assert.Equal(t, filename, w.Filename())

	require.NoError(t, w.Write(batch(0, 3)))
	require.NoError(t, w.Write(batch(3, 2)))
	assert.Equal(t, uint64(5), w.Rows())
	require.NoError(t, w.Flush())

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "timestamp_us,Fp1,Fp2", lines[0])
	assert.Equal(t, "1720964422000000,0,-0.5", lines[1])
	assert.Equal(t, "1720964422004000,4,-0.5", lines[5])

	f, err := os.Open(filename)
	require.NoError(t, err)
	defer f.Close()
	timestamps, err := ReadTimestamps(f)
	require.NoError(t, err)
	require.Len(t, timestamps, 5)
	assert.True(t, timestamps[4].Equal(start.Add(4*time.Millisecond)))
}

func TestWriteColumnMismatch(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "rec.csv"), []string{"a", "b", "c"})
	require.NoError(t, err)
	defer w.Flush()
	err = w.Write(batch(0, 1))
	var mismatch ErrColumnMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 3, mismatch.Expected)
	assert.Equal(t, 2, mismatch.Actual)
}

func TestReadTimestampsRejectsForeignFile(t *testing.T) {
	_, err := ReadTimestamps(strings.NewReader("time,a\n1,2\n"))
	assert.Error(t, err)
	_, err = ReadTimestamps(strings.NewReader("timestamp_us,a\nx,2\n"))
	assert.Error(t, err)
	_, err = ReadTimestamps(strings.NewReader(""))
	assert.Error(t, err)
}

func TestEstimateDrift(t *testing.T) {
	// 1001 samples over exactly one second at a nominal 1000 Hz
	timestamps := make([]time.Time, 1001)
	for i := range timestamps {
		timestamps[i] = start.Add(time.Duration(i) * time.Millisecond)
	}
	report, err := EstimateDrift(timestamps, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1001, report.Samples)
	assert.InDelta(t, 1.0, report.Duration, 1e-9)
	assert.InDelta(t, 1001.0, report.ActualRate, 1e-9)
	assert.InDelta(t, -3.6, report.DriftPerHour, 1e-9)
	assert.Contains(t, report.String(), "NominalRate: 1000")

	// a device sampling slower than nominal drifts positively
	slow := make([]time.Time, 500)
	for i := range slow {
		slow[i] = start.Add(time.Duration(i) * 2100 * time.Microsecond)
	}
	report, err = EstimateDrift(slow, 500)
	require.NoError(t, err)
	assert.Greater(t, report.DriftPerHour, 0.0)
}

func TestEstimateDriftNeedsTwoDistinctSamples(t *testing.T) {
	_, err := EstimateDrift([]time.Time{start}, 250)
	assert.ErrorAs(t, err, &ErrNotEnoughSamples{})
	_, err = EstimateDrift([]time.Time{start, start}, 250)
	assert.ErrorAs(t, err, &ErrNotEnoughSamples{})
}
