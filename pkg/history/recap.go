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

package history

import (
	"jinr.ru/greenlab/go-hrm/pkg/hrm"
)

// NoiseFloor is the lowest rate taken as a real measurement
const NoiseFloor = 10.0

// Recap summarizes qualifying rates. Fields are nil when nothing qualifies.
type Recap struct {
	Min  *float64 `json:"min"`
	Max  *float64 `json:"max"`
	Last *float64 `json:"last"`
}

func (r Recap) Empty() bool {
	return r.Last == nil
}

// ComputeRecap takes min, max and last over samples that are not discontinuities
// and whose rate is at least floor.
func ComputeRecap(samples []hrm.Sample, floor float64) Recap {
	recap := Recap{}
	for _, s := range samples {
		// NaN fails the comparison
		if !(s.Rate >= floor) {
			continue
		}
		rate := s.Rate
		if recap.Min == nil || rate < *recap.Min {
			v := rate
			recap.Min = &v
		}
		if recap.Max == nil || rate > *recap.Max {
			v := rate
			recap.Max = &v
		}
		recap.Last = &rate
	}
	return recap
}

func (h *History) Recap() Recap {
	return ComputeRecap(h.Snapshot(), NoiseFloor)
}
