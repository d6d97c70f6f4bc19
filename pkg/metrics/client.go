// Copyright 2022 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConnGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: ModuleTiMySQL,
			Subsystem: LabelClient,
			Name:      "connections",
			Help:      "Number of established connections.",
		})

	HandshakeDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: ModuleTiMySQL,
			Subsystem: LabelClient,
			Name:      "handshake_duration_seconds",
			Help:      "Bucketed histogram of the connection phase duration.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 20), // 100us ~ 52s
		})

	CommandCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ModuleTiMySQL,
			Subsystem: LabelClient,
			Name:      "command_total",
			Help:      "Counter of commands.",
		}, []string{LblCommand, LblResult})

	CommandDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ModuleTiMySQL,
			Subsystem: LabelClient,
			Name:      "command_duration_seconds",
			Help:      "Bucketed histogram of command round-trip duration.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 26), // 100us ~ 1h
		}, []string{LblCommand})

	InboundBytesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: ModuleTiMySQL,
			Subsystem: LabelClient,
			Name:      "inbound_bytes",
			Help:      "Counter of bytes read from servers.",
		})

	OutboundBytesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: ModuleTiMySQL,
			Subsystem: LabelClient,
			Name:      "outbound_bytes",
			Help:      "Counter of bytes written to servers.",
		})
)
