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

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "hrm"

var (
	FramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "frames_total",
		Help:      "Total number of notification frames received from the sensor",
	})

	DecodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "decode_errors_total",
		Help:      "Number of dropped malformed frames",
	})

	DiscontinuitiesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "discontinuities_total",
		Help:      "Number of gap markers appended on sensor disconnect",
	})

	HistorySize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "history_size",
		Help:      "Current number of samples in history",
	})

	Rate = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "rate_bpm",
		Help:      "Most recent decoded heart rate",
	})

	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "stream_clients",
		Help:      "Currently connected streaming clients",
	})

	StreamLinesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "stream_lines_total",
		Help:      "Lines written to streaming clients",
	}, []string{"kind"})

	SinkDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "sink_dropped_total",
		Help:      "Samples dropped because the visualization sink was busy",
	})
)

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
