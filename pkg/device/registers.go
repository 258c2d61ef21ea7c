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

// Register numbers are from the ADS1299 datasheet
// https://www.ti.com/lit/ds/symlink/ads1299.pdf

type RegAlias int

const (
	RegConfig1 RegAlias = iota
	RegConfig2
	RegConfig3
	RegCh1Set
	RegCh2Set
	RegCh3Set
	RegCh4Set
	RegCh5Set
	RegCh6Set
	RegCh7Set
	RegCh8Set
	RegMisc1
	RegAliasLimit
)

var RegMap = map[RegAlias]uint8{
	RegConfig1: 0x01,
	RegConfig2: 0x02,
	RegConfig3: 0x03,
	RegCh1Set:  0x05,
	RegCh2Set:  0x06,
	RegCh3Set:  0x07,
	RegCh4Set:  0x08,
	RegCh5Set:  0x09,
	RegCh6Set:  0x0A,
	RegCh7Set:  0x0B,
	RegCh8Set:  0x0C,
	RegMisc1:   0x15,
}

// ChannelSetRegs are the CHnSET registers in channel order
var ChannelSetRegs = []RegAlias{
	RegCh1Set, RegCh2Set, RegCh3Set, RegCh4Set,
	RegCh5Set, RegCh6Set, RegCh7Set, RegCh8Set,
}

const (
	// Config2Default sets the reserved bits, test signals are driven externally
	Config2Default uint8 = 0xC0
	// Config3Default powers the reference buffer and the bias buffer with internal bias reference
	Config3Default uint8 = 0xEC
	// Misc1SRB1 connects SRB1 to all inverting inputs
	Misc1SRB1 uint8 = 0x20
)

// Rate is the ADS1299 output data rate in Hz
type Rate int

const (
	Rate250   Rate = 250
	Rate500   Rate = 500
	Rate1000  Rate = 1000
	Rate2000  Rate = 2000
	Rate4000  Rate = 4000
	Rate8000  Rate = 8000
	Rate16000 Rate = 16000
)

// Rates are the rates accepted by the driver.
// Rate16000 is supported by the chip but not by the board firmware.
var Rates = []Rate{Rate250, Rate500, Rate1000, Rate2000, Rate4000, Rate8000}

// Register returns the CONFIG1 value for the rate
func (r Rate) Register() uint8 {
	switch r {
	case Rate250:
		return 0x96
	case Rate500:
		return 0x95
	case Rate1000:
		return 0x94
	case Rate2000:
		return 0x93
	case Rate4000:
		return 0x92
	case Rate8000:
		return 0x91
	case Rate16000:
		return 0x90
	}
	return 0
}

// ParseRate validates the rate against the enabled rates
func ParseRate(v int) (Rate, error) {
	for _, r := range Rates {
		if int(r) == v {
			return r, nil
		}
	}
	return 0, ErrInvalidRate{Rate: v}
}

// Gain is the PGA gain of all channels
type Gain int

const (
	Gain1  Gain = 1
	Gain2  Gain = 2
	Gain4  Gain = 4
	Gain6  Gain = 6
	Gain8  Gain = 8
	Gain12 Gain = 12
	Gain24 Gain = 24
)

var Gains = []Gain{Gain1, Gain2, Gain4, Gain6, Gain8, Gain12, Gain24}

// Register returns the CHnSET value for the gain
func (g Gain) Register() uint8 {
	switch g {
	case Gain1:
		return 0x00
	case Gain2:
		return 0x10
	case Gain4:
		return 0x20
	case Gain6:
		return 0x30
	case Gain8:
		return 0x40
	case Gain12:
		return 0x50
	case Gain24:
		return 0x60
	}
	return 0
}

// ParseGain validates the gain against the PGA gains
func ParseGain(v int) (Gain, error) {
	for _, g := range Gains {
		if int(g) == v {
			return g, nil
		}
	}
	return 0, ErrInvalidGain{Gain: v}
}
