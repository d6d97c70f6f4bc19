// Copyright 2020 Ipalfish, Inc.
// Copyright 2022 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ModuleTiMySQL = "timysql"
)

// metrics labels.
const (
	LabelClient = "client"

	LblCommand = "cmd"
	LblResult  = "result"

	LblOK    = "ok"
	LblError = "error"
)

// Register registers the client metrics with the given registerer, or the
// default one when registerer is nil. Registration is left to the application
// so that embedding the library never mutates global prometheus state.
func Register(registerer prometheus.Registerer) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	registerer.MustRegister(ConnGauge)
	registerer.MustRegister(HandshakeDurationHistogram)
	registerer.MustRegister(CommandCounter)
	registerer.MustRegister(CommandDurationHistogram)
	registerer.MustRegister(InboundBytesCounter)
	registerer.MustRegister(OutboundBytesCounter)
}
