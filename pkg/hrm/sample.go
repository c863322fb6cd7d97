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

package hrm

import (
	"encoding/json"
	"math"
	"time"
)

// Sample is a single decoded heart rate measurement.
// A NaN Rate marks a discontinuity (sensor gone), not a measurement.
type Sample struct {
	Time int64     // nanoseconds since the Unix epoch
	Rate float64   // beats per minute
	RR   []float64 // R-R intervals in seconds, frame order
}

// Discontinuity returns a gap marker at t
func Discontinuity(t time.Time) Sample {
	return Sample{
		Time: t.UnixNano(),
		Rate: math.NaN(),
		RR:   []float64{},
	}
}

func (s Sample) IsDiscontinuity() bool {
	return math.IsNaN(s.Rate)
}

func (s Sample) Timestamp() time.Time {
	return time.Unix(0, s.Time)
}

// sampleObject is the streaming representation of a Sample
type sampleObject struct {
	Time int64     `json:"time"`
	Rate *float64  `json:"rate"`
	RR   []float64 `json:"rr"`
}

func ratePtr(rate float64) *float64 {
	if math.IsNaN(rate) {
		return nil
	}
	return &rate
}

func rateValue(rate *float64) float64 {
	if rate == nil {
		return math.NaN()
	}
	return *rate
}

func nonNil(rr []float64) []float64 {
	if rr == nil {
		return []float64{}
	}
	return rr
}

// MarshalJSON encodes {"time": int, "rate": number|null, "rr": [...]}
func (s Sample) MarshalJSON() ([]byte, error) {
	return json.Marshal(sampleObject{
		Time: s.Time,
		Rate: ratePtr(s.Rate),
		RR:   nonNil(s.RR),
	})
}

func (s *Sample) UnmarshalJSON(data []byte) error {
	obj := sampleObject{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.Time = obj.Time
	s.Rate = rateValue(obj.Rate)
	s.RR = nonNil(obj.RR)
	return nil
}

// MarshalLine encodes the persisted log form [time, rate, rr]
func (s Sample) MarshalLine() ([]byte, error) {
	return json.Marshal([]interface{}{s.Time, ratePtr(s.Rate), nonNil(s.RR)})
}

func (s *Sample) UnmarshalLine(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if len(fields) != 3 {
		return ErrLine{What: "expected [time, rate, rr]"}
	}
	var (
		t    int64
		rate *float64
		rr   []float64
	)
	if err := json.Unmarshal(fields[0], &t); err != nil {
		return ErrLine{What: "time: " + err.Error()}
	}
	if err := json.Unmarshal(fields[1], &rate); err != nil {
		return ErrLine{What: "rate: " + err.Error()}
	}
	if err := json.Unmarshal(fields[2], &rr); err != nil {
		return ErrLine{What: "rr: " + err.Error()}
	}
	s.Time = t
	s.Rate = rateValue(rate)
	s.RR = nonNil(rr)
	return nil
}

// Equal treats two discontinuities as equal
func (s Sample) Equal(o Sample) bool {
	if s.Time != o.Time || len(s.RR) != len(o.RR) {
		return false
	}
	if s.IsDiscontinuity() != o.IsDiscontinuity() {
		return false
	}
	if !s.IsDiscontinuity() && s.Rate != o.Rate {
		return false
	}
	for i := range s.RR {
		if s.RR[i] != o.RR[i] {
			return false
		}
	}
	return true
}
