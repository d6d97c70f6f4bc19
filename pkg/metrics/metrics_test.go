// Copyright 2022 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	registry := prometheus.NewRegistry()
	Register(registry)

	ConnGauge.Inc()
	CommandCounter.WithLabelValues("Query", LblOK).Inc()
	CommandDurationHistogram.WithLabelValues("Query").Observe(0.01)

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make(map[string]struct{}, len(families))
	for _, f := range families {
		names[f.GetName()] = struct{}{}
	}
	require.Contains(t, names, "timysql_client_connections")
	require.Contains(t, names, "timysql_client_command_total")
	require.Contains(t, names, "timysql_client_command_duration_seconds")
}
