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
	"time"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-hrm/pkg/layers"
)

// Decode decodes a Heart Rate Measurement notification stamped with the wall clock
func Decode(data []byte) (Sample, error) {
	return DecodeAt(data, time.Now())
}

// DecodeAt decodes a Heart Rate Measurement notification stamped with t
func DecodeAt(data []byte, t time.Time) (Sample, error) {
	hr := &layers.HeartRateLayer{}
	if err := hr.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return Sample{}, ErrDecode{Frame: data, What: err.Error()}
	}
	return Sample{
		Time: t.UnixNano(),
		Rate: float64(hr.Rate),
		RR:   hr.RRSeconds(),
	}, nil
}
