// Copyright 2025 visey Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var TrainingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "visey",
	Subsystem: "logics",
	Name:      "training_seconds",
	Help:      "Wall time of latent factor model training.",
	Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
})

func observeSeconds(f func()) float64 {
	start := time.Now()
	f()
	return time.Since(start).Seconds()
}
