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

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// HeartRateLayerNum identifies the layer
	HeartRateLayerNum = 2037
)

// HeartRateFlags is the first byte of the Heart Rate Measurement characteristic (0x2A37)
type HeartRateFlags uint8

const (
	HeartRateFlagRate16           HeartRateFlags = 1 << 0
	HeartRateFlagContactDetected  HeartRateFlags = 1 << 1
	HeartRateFlagContactSupported HeartRateFlags = 1 << 2
	HeartRateFlagEnergyExpended   HeartRateFlags = 1 << 3
	HeartRateFlagRRInterval       HeartRateFlags = 1 << 4
)

const (
	// RRResolution is the number of RR units per second
	RRResolution = 1024.0
	// HeartRateMinLength is flags byte plus 8-bit rate
	HeartRateMinLength = 2
)

// HeartRateLayer is a decoded Heart Rate Measurement notification.
// RR intervals are kept in raw 1/1024 s units, see RRSeconds.
type HeartRateLayer struct {
	layers.BaseLayer
	Flags          HeartRateFlags
	Rate           uint16
	EnergyExpended uint16 // valid only if HeartRateFlagEnergyExpended is set
	RR             []uint16
}

var HeartRateLayerType = gopacket.RegisterLayerType(HeartRateLayerNum,
	gopacket.LayerTypeMetadata{Name: "HeartRateLayerType", Decoder: gopacket.DecodeFunc(DecodeHeartRateLayer)})

// LayerType returns the type of the HeartRate layer in the layer catalog
func (hr *HeartRateLayer) LayerType() gopacket.LayerType {
	return HeartRateLayerType
}

func (f HeartRateFlags) Has(flag HeartRateFlags) bool {
	return f&flag != 0
}

// ContactSupported is bit 2 of the flags
func (hr *HeartRateLayer) ContactSupported() bool {
	return hr.Flags.Has(HeartRateFlagContactSupported)
}

// ContactDetected is bit 1 of the flags, meaningful only if contact is supported
func (hr *HeartRateLayer) ContactDetected() bool {
	return hr.Flags.Has(HeartRateFlagContactDetected)
}

// RRSeconds converts RR intervals to seconds
func (hr *HeartRateLayer) RRSeconds() []float64 {
	result := make([]float64, len(hr.RR))
	for i, rr := range hr.RR {
		result[i] = float64(rr) / RRResolution
	}
	return result
}

func (hr *HeartRateLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < HeartRateMinLength {
		return ErrHeartRateFrame{What: "frame too short", Length: len(data)}
	}
	hr.Flags = HeartRateFlags(data[0])
	offset := 1

	if hr.Flags.Has(HeartRateFlagRate16) {
		if len(data) < offset+2 {
			return ErrHeartRateFrame{What: "16-bit rate truncated", Length: len(data)}
		}
		hr.Rate = binary.LittleEndian.Uint16(data[offset : offset+2])
		offset += 2
	} else {
		hr.Rate = uint16(data[offset])
		offset++
	}

	hr.EnergyExpended = 0
	if hr.Flags.Has(HeartRateFlagEnergyExpended) {
		if len(data) < offset+2 {
			return ErrHeartRateFrame{What: "energy expended truncated", Length: len(data)}
		}
		hr.EnergyExpended = binary.LittleEndian.Uint16(data[offset : offset+2])
		offset += 2
	}

	hr.RR = []uint16{}
	if hr.Flags.Has(HeartRateFlagRRInterval) {
		rest := data[offset:]
		if len(rest)%2 != 0 {
			return ErrHeartRateFrame{What: "odd number of RR interval bytes", Length: len(data)}
		}
		for i := 0; i < len(rest); i += 2 {
			hr.RR = append(hr.RR, binary.LittleEndian.Uint16(rest[i:i+2]))
		}
		offset = len(data)
	}

	hr.BaseLayer = layers.BaseLayer{
		Contents: data[:offset],
		Payload:  data[offset:],
	}
	return nil
}

// SerializeTo serializes the HeartRate layer into bytes and writes the bytes to the SerializeBuffer.
// Rate width and the RR flag follow the field values, the energy field follows Flags.
func (hr *HeartRateLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	flags := hr.Flags &^ (HeartRateFlagRate16 | HeartRateFlagRRInterval)
	if hr.Rate > 0xff {
		flags |= HeartRateFlagRate16
	}
	if len(hr.RR) > 0 {
		flags |= HeartRateFlagRRInterval
	}

	length := 2
	if flags.Has(HeartRateFlagRate16) {
		length++
	}
	if flags.Has(HeartRateFlagEnergyExpended) {
		length += 2
	}
	length += 2 * len(hr.RR)

	bytes, err := b.AppendBytes(length)
	if err != nil {
		return err
	}
	bytes[0] = uint8(flags)
	offset := 1
	if flags.Has(HeartRateFlagRate16) {
		binary.LittleEndian.PutUint16(bytes[offset:offset+2], hr.Rate)
		offset += 2
	} else {
		bytes[offset] = uint8(hr.Rate)
		offset++
	}
	if flags.Has(HeartRateFlagEnergyExpended) {
		binary.LittleEndian.PutUint16(bytes[offset:offset+2], hr.EnergyExpended)
		offset += 2
	}
	for _, rr := range hr.RR {
		binary.LittleEndian.PutUint16(bytes[offset:offset+2], rr)
		offset += 2
	}
	return nil
}

func (hr *HeartRateLayer) CanDecode() gopacket.LayerClass {
	return HeartRateLayerType
}

func (hr *HeartRateLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func DecodeHeartRateLayer(data []byte, p gopacket.PacketBuilder) error {
	hr := &HeartRateLayer{}
	err := hr.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(hr)
	return nil
}
