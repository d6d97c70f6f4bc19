// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package passwd

import (
	"testing"

	"github.com/pingcap/tidb/pkg/parser/mysql"
	"github.com/stretchr/testify/require"
)

var testScramble = []byte{10, 47, 74, 111, 75, 73, 34, 48, 88, 76, 114, 74, 37, 13, 3, 80, 82, 2, 23, 21}

func TestCalcCachingSha2Password(t *testing.T) {
	tests := []struct {
		password string
		expected []byte
	}{
		{
			password: "secret",
			expected: []byte{244, 144, 231, 111, 102, 217, 216, 102, 101, 206, 84, 217, 140, 120, 208, 172,
				254, 47, 176, 176, 139, 66, 61, 168, 7, 20, 72, 115, 211, 11, 49, 44},
		},
		{
			password: "secret2",
			expected: []byte{171, 195, 147, 74, 1, 44, 243, 66, 232, 118, 7, 28, 142, 226, 2, 222,
				81, 120, 91, 67, 2, 88, 167, 160, 19, 139, 199, 156, 77, 128, 11, 198},
		},
	}
	for _, tt := range tests {
		resp := CalcCachingSha2Password(testScramble, []byte(tt.password))
		require.Len(t, resp, 32)
		require.Equal(t, tt.expected, resp)
	}

	// The scramble itself is total: even an empty password hashes to a full
	// 32-byte response. The connection phase decides to send nothing instead.
	resp := CalcCachingSha2Password(testScramble, nil)
	require.Len(t, resp, 32)
	require.NotEqual(t, make([]byte, 32), resp)
}

func TestCalcNativePassword(t *testing.T) {
	resp := CalcNativePassword(testScramble, []byte("secret"))
	require.Len(t, resp, 20)
	resp2 := CalcNativePassword(testScramble, []byte("secret2"))
	require.NotEqual(t, resp, resp2)
}

func TestCalcAuthData(t *testing.T) {
	for _, plugin := range []string{mysql.AuthNativePassword, mysql.AuthCachingSha2Password} {
		resp, err := CalcAuthData(plugin, testScramble, []byte("secret"))
		require.NoError(t, err)
		require.NotEmpty(t, resp)
	}
	_, err := CalcAuthData("mysql_clear_password", testScramble, []byte("secret"))
	require.ErrorIs(t, err, ErrUnknownPlugin)
}
