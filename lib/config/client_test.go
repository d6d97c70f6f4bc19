// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pingcap/tidb/pkg/parser/mysql"
	"github.com/stretchr/testify/require"
)

func TestClientDefaults(t *testing.T) {
	cfg := NewClient()
	require.NoError(t, cfg.Check())
	require.Equal(t, "127.0.0.1:3306", cfg.Addr)
	require.Equal(t, mysql.DefaultCollationName, cfg.Collation)
	require.Equal(t, uint8(mysql.DefaultCollationID), cfg.CollationID())
}

func TestClientFile(t *testing.T) {
	content := `
addr = "10.0.0.1:4000"
username = "app"
password = "s3cret"
db = "orders"
collation = "latin1_swedish_ci"

[retry]
interval = "100ms"
cnt = 5
`
	path := filepath.Join(t.TempDir(), "client.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadClientFile(path)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1:4000", cfg.Addr)
	require.Equal(t, "app", cfg.Username)
	require.Equal(t, "orders", cfg.DB)
	require.Equal(t, uint8(8), cfg.CollationID())
	require.Equal(t, 100*time.Millisecond, cfg.Retry.Interval)
	require.Equal(t, uint64(5), cfg.Retry.Cnt)
}

func TestClientCheck(t *testing.T) {
	cfg := NewClient()
	cfg.Addr = ""
	require.ErrorIs(t, cfg.Check(), ErrInvalidConfigValue)

	cfg = NewClient()
	cfg.Collation = "no_such_collation"
	require.ErrorIs(t, cfg.Check(), ErrInvalidConfigValue)
}
