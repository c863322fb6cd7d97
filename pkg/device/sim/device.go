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

package sim

import (
	"context"
	"math"
	"time"

	"github.com/google/gopacket"

	deviceifc "jinr.ru/greenlab/go-hrm/pkg/device/ifc"
	"jinr.ru/greenlab/go-hrm/pkg/device/link"
	"jinr.ru/greenlab/go-hrm/pkg/layers"
	"jinr.ru/greenlab/go-hrm/pkg/log"
)

const (
	DeviceName = "sim"
	// RateSwing is the amplitude of the slow rate oscillation in bpm
	RateSwing = 8.0
	// RatePeriod is the period of the slow rate oscillation
	RatePeriod = time.Minute
	// EnergyEvery adds an energy expended field to every n-th frame
	EnergyEvery = 10
)

// Device is a synthetic heart rate sensor. It sends one notification per
// interval and disconnects after Frames notifications if Frames > 0.
type Device struct {
	Rate     float64
	Interval time.Duration
	Frames   int
}

var _ deviceifc.Connector = &Device{}

func NewDevice(rate float64, interval time.Duration, frames int) *Device {
	return &Device{
		Rate:     rate,
		Interval: interval,
		Frames:   frames,
	}
}

func (d *Device) Connect(ctx context.Context) (deviceifc.Session, error) {
	if d.Interval <= 0 {
		d.Interval = time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	l := link.New(DeviceName, func() error {
		cancel()
		return nil
	})
	log.Info("Simulated sensor connected: rate: %.0f interval: %s frames: %d", d.Rate, d.Interval, d.Frames)
	go d.run(ctx, l)
	return l, nil
}

func (d *Device) run(ctx context.Context, l *link.Link) {
	defer l.Disconnect()
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	var elapsed time.Duration
	for n := 0; d.Frames <= 0 || n < d.Frames; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		elapsed += d.Interval
		frame, err := Frame(d.rateAt(elapsed), d.Interval, n%EnergyEvery == EnergyEvery-1)
		if err != nil {
			log.Error("Error while serializing simulated frame: %s", err)
			continue
		}
		l.Push(frame)
	}
}

func (d *Device) rateAt(elapsed time.Duration) float64 {
	phase := 2 * math.Pi * float64(elapsed) / float64(RatePeriod)
	return d.Rate + RateSwing*math.Sin(phase)
}

// Frame builds a Heart Rate Measurement notification for rate with the
// R-R intervals of the beats that fit into interval.
func Frame(rate float64, interval time.Duration, energy bool) ([]byte, error) {
	hr := &layers.HeartRateLayer{
		Rate: uint16(math.Round(rate)),
	}
	if energy {
		hr.Flags |= layers.HeartRateFlagEnergyExpended
		hr.EnergyExpended = uint16(interval.Seconds() * rate / 10)
	}
	if rate > 0 {
		beat := 60.0 / rate
		beats := int(math.Round(interval.Seconds() / beat))
		rr := uint16(math.Round(beat * layers.RRResolution))
		for i := 0; i < beats; i++ {
			hr.RR = append(hr.RR, rr)
		}
	}
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, hr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
