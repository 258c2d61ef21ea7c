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

package device

import (
	"jinr.ru/greenlab/go-octaeeg/pkg/layers"
)

const (
	// VRef is the ADC reference voltage
	VRef = 4.5
	// FullScale is the full scale code of the 24 bit ADC
	FullScale = layers.MaxCode
	// DebugColumns is the number of columns put in front of channels in debug mode
	DebugColumns = 2
)

// Converter converts raw ADC codes to microvolts
type Converter struct {
	scale float64
	debug bool
}

func NewConverter(gain Gain, debug bool) *Converter {
	return &Converter{
		scale: 1e6 * (VRef / FullScale) / float64(gain),
		debug: debug,
	}
}

// Microvolts converts a single code
func (c *Converter) Microvolts(code int32) float64 {
	return float64(code) * c.scale
}

// Width is the number of columns of a row
func (c *Converter) Width() int {
	if c.debug {
		return layers.Channels + DebugColumns
	}
	return layers.Channels
}

// Row converts a block to a row. In debug mode the device timestamp and the
// counter come first.
func (c *Converter) Row(block layers.SampleBlock) []float64 {
	row := make([]float64, 0, c.Width())
	if c.debug {
		row = append(row, float64(block.Timestamp), float64(block.Counter))
	}
	for _, code := range block.Codes {
		row = append(row, c.Microvolts(code))
	}
	return row
}
