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

package layers

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// OctaFrameLayerNum identifies the layer of frames with timestamp header
	OctaFrameLayerNum = 2100
	// OctaCompactFrameLayerNum identifies the layer of frames without timestamp header
	OctaCompactFrameLayerNum = 2101
)

const (
	// BlockSize is the size of one time slice of all channels on the wire
	BlockSize = 32
	// Channels is the number of ADS1299 channels in a block
	Channels = 8
	// CodeSize is the size of one 24 bit channel code
	CodeSize = 3
	// HeaderSize is the size of timestamp + counter in front of the codes
	HeaderSize = 8
	// CompactHeaderSize is the size of the one byte counter used by the compact layout
	CompactHeaderSize = 1
	// MaxCode is the positive full scale code of the 24 bit ADC
	MaxCode = 1<<23 - 1
	// MinCode is the negative full scale code of the 24 bit ADC
	MinCode = -1 << 23
)

// Layout is the block layout family of a firmware revision.
// It is chosen once per session, never per frame.
type Layout uint8

const (
	// LayoutHeader
	// [0:4]  device timestamp, microseconds, little endian
	// [4:8]  counter, little endian
	// [8:32] 8 x 3 bytes channel codes, big endian two's complement
	LayoutHeader Layout = iota
	// LayoutCompact
	// [0]    counter
	// [1:25] 8 x 3 bytes channel codes, big endian two's complement
	// [25:32] padding
	LayoutCompact
)

var layoutNames = map[Layout]string{
	LayoutHeader:  "header",
	LayoutCompact: "compact",
}

func (l Layout) String() string {
	if name, ok := layoutNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Layout(%d)", uint8(l))
}

// ParseLayout converts a layout name to Layout
func ParseLayout(name string) (Layout, bool) {
	for layout, n := range layoutNames {
		if n == name {
			return layout, true
		}
	}
	return LayoutHeader, false
}

// LayerType returns the layer type used to decode frames of the given layout
func (l Layout) LayerType() gopacket.LayerType {
	if l == LayoutCompact {
		return OctaCompactFrameLayerType
	}
	return OctaFrameLayerType
}

func (l Layout) codesOffset() int {
	if l == LayoutCompact {
		return CompactHeaderSize
	}
	return HeaderSize
}

// SampleBlock is one decoded time slice
type SampleBlock struct {
	// HasTimestamp is false for the compact layout
	HasTimestamp bool
	// Timestamp is the device clock in microseconds, wraps at 2^32
	Timestamp uint32
	Counter   uint32
	Codes     [Channels]int32
}

// OctaFrameLayer is a websocket frame of the OctaEEG board split into blocks
type OctaFrameLayer struct {
	layers.BaseLayer
	Layout
	Blocks []SampleBlock
	// Dropped is the number of trailing bytes that did not form a complete block
	Dropped int
}

var OctaFrameLayerType = gopacket.RegisterLayerType(OctaFrameLayerNum,
	gopacket.LayerTypeMetadata{Name: "OctaFrameLayerType", Decoder: gopacket.DecodeFunc(DecodeOctaFrameLayer)})

var OctaCompactFrameLayerType = gopacket.RegisterLayerType(OctaCompactFrameLayerNum,
	gopacket.LayerTypeMetadata{Name: "OctaCompactFrameLayerType", Decoder: gopacket.DecodeFunc(DecodeOctaCompactFrameLayer)})

// LayerType returns the type of the frame layer in the layer catalog
func (f *OctaFrameLayer) LayerType() gopacket.LayerType {
	return f.Layout.LayerType()
}

// DecodeCode decodes 3 bytes big endian two's complement code
func DecodeCode(b []byte) int32 {
	v := int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])
	if v&0x800000 != 0 {
		v -= 1 << 24
	}
	return v
}

// EncodeCode puts the lower 24 bits of v into b in big endian order
func EncodeCode(b []byte, v int32) {
	u := uint32(v)
	b[0] = byte(u >> 16)
	b[1] = byte(u >> 8)
	b[2] = byte(u)
}

// DecodeBlock decodes a single block. len(data) must be at least BlockSize.
func DecodeBlock(data []byte, layout Layout) SampleBlock {
	block := SampleBlock{}
	switch layout {
	case LayoutCompact:
		block.Counter = uint32(data[0])
	default:
		block.HasTimestamp = true
		block.Timestamp = binary.LittleEndian.Uint32(data[0:4])
		block.Counter = binary.LittleEndian.Uint32(data[4:8])
	}
	offset := layout.codesOffset()
	for ch := 0; ch < Channels; ch++ {
		start := offset + ch*CodeSize
		block.Codes[ch] = DecodeCode(data[start : start+CodeSize])
	}
	return block
}

// Blocks walks over consecutive complete blocks of the frame and stops early
// when yield returns false. It returns the number of trailing bytes which
// do not form a complete block.
func Blocks(data []byte, layout Layout, yield func(SampleBlock) bool) int {
	complete := len(data) / BlockSize * BlockSize
	for offset := 0; offset < complete; offset += BlockSize {
		if !yield(DecodeBlock(data[offset:offset+BlockSize], layout)) {
			break
		}
	}
	return len(data) - complete
}

// DecodeFromBytes never fails: the tail of a truncated frame is counted and ignored
func (f *OctaFrameLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	f.Blocks = make([]SampleBlock, 0, len(data)/BlockSize)
	f.Dropped = Blocks(data, f.Layout, func(block SampleBlock) bool {
		f.Blocks = append(f.Blocks, block)
		return true
	})
	if f.Dropped > 0 {
		df.SetTruncated()
	}
	f.BaseLayer = layers.BaseLayer{
		Contents: data[:len(data)-f.Dropped],
		Payload:  nil,
	}
	return nil
}

// CanDecode returns the set of layer types this layer can decode
func (f *OctaFrameLayer) CanDecode() gopacket.LayerClass {
	return f.Layout.LayerType()
}

// NextLayerType returns LayerTypeZero since the frame is the last layer
func (f *OctaFrameLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

// SerializeTo writes the blocks in the frame layout. It is used by device simulators.
func (f *OctaFrameLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	for _, block := range f.Blocks {
		buf, err := b.AppendBytes(BlockSize)
		if err != nil {
			return err
		}
		for i := range buf {
			buf[i] = 0
		}
		switch f.Layout {
		case LayoutCompact:
			buf[0] = uint8(block.Counter)
		default:
			binary.LittleEndian.PutUint32(buf[0:4], block.Timestamp)
			binary.LittleEndian.PutUint32(buf[4:8], block.Counter)
		}
		offset := f.Layout.codesOffset()
		for ch, code := range block.Codes {
			start := offset + ch*CodeSize
			EncodeCode(buf[start:start+CodeSize], code)
		}
	}
	return nil
}

func decodeOctaFrameLayer(layout Layout, data []byte, p gopacket.PacketBuilder) error {
	f := &OctaFrameLayer{Layout: layout}
	if err := f.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(f)
	return nil
}

func DecodeOctaFrameLayer(data []byte, p gopacket.PacketBuilder) error {
	return decodeOctaFrameLayer(LayoutHeader, data, p)
}

func DecodeOctaCompactFrameLayer(data []byte, p gopacket.PacketBuilder) error {
	return decodeOctaFrameLayer(LayoutCompact, data, p)
}

// DecodeFrame decodes a received frame with gopacket
func DecodeFrame(data []byte, layout Layout) (*OctaFrameLayer, error) {
	packet := gopacket.NewPacket(data, layout.LayerType(), gopacket.DecodeOptions{NoCopy: true})
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, errLayer.Error()
	}
	frame, ok := packet.Layer(layout.LayerType()).(*OctaFrameLayer)
	if !ok {
		// an empty frame produces no layer
		return &OctaFrameLayer{Layout: layout, Dropped: len(data)}, nil
	}
	return frame, nil
}

// EncodeFrame serializes blocks into a frame
func EncodeFrame(blocks []SampleBlock, layout Layout) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	f := &OctaFrameLayer{Layout: layout, Blocks: blocks}
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
