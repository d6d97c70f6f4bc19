// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"net"
	"testing"

	"github.com/pingcap/tidb/pkg/parser/mysql"
	"github.com/pingcap/timysql/lib/util/logger"
	"github.com/pingcap/timysql/pkg/testkit"
	"github.com/stretchr/testify/require"
)

func TestHandshakeResp(t *testing.T) {
	resp1 := &HandshakeResp{
		Attrs:      map[string]string{"key": "value"},
		User:       "user",
		DB:         "db",
		AuthPlugin: "plugin",
		AuthData:   []byte("1234567890"),
		Capability: ^ClientPluginAuthLenencClientData,
		Collation:  0,
	}
	b := MakeHandshakeResponse(resp1)
	resp2, err := ParseHandshakeResponse(b)
	require.NoError(t, err)
	require.Equal(t, resp1, resp2)
}

func TestInitialHandshake(t *testing.T) {
	lg, _ := logger.CreateLoggerForTest(t)
	salt := make([]byte, 20)
	for i := range salt {
		salt[i] = byte(i + 1)
	}
	capability := ClientProtocol41 | ClientPluginAuth | ClientSecureConnection | ClientDeprecateEOF
	testkit.TestPipeConn(t,
		func(t *testing.T, c net.Conn) {
			srv := NewPacketIO(c, lg)
			require.NoError(t, srv.WriteInitialHandshake(capability, salt, mysql.AuthCachingSha2Password, "8.0.11", 100))
		},
		func(t *testing.T, c net.Conn) {
			cli := NewPacketIO(c, lg)
			pkt, err := cli.ReadPacket()
			require.NoError(t, err)
			hs, err := ParseInitialHandshake(pkt)
			require.NoError(t, err)
			require.Equal(t, "8.0.11", hs.ServerVersion)
			require.Equal(t, uint32(100), hs.ConnID)
			require.Equal(t, capability, hs.Capability)
			require.Equal(t, mysql.AuthCachingSha2Password, hs.AuthPlugin)
			require.Equal(t, salt, hs.AuthPluginData)
		},
		1,
	)
}

func TestParseInitialHandshakeError(t *testing.T) {
	_, err := ParseInitialHandshake([]byte{0xff, 0x15, 0x04})
	require.ErrorIs(t, err, ErrUnexpectedPacket)
	_, err = ParseInitialHandshake([]byte{HandshakeVersion, '8', '.', '0'})
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestOKPacket(t *testing.T) {
	// affected_rows=1, last_insert_id=0, status, warnings, info
	data := []byte{0x00, 0x01, 0x00}
	data = DumpUint16(data, mysql.ServerStatusAutocommit)
	data = DumpUint16(data, 0)
	data = append(data, "done"...)
	require.True(t, IsOKPacket(data))
	ok, err := ParseOKPacket(data)
	require.NoError(t, err)
	require.Equal(t, uint64(1), ok.AffectedRows)
	require.Equal(t, uint64(0), ok.LastInsertID)
	require.Equal(t, mysql.ServerStatusAutocommit, ok.Status)
	require.Equal(t, "done", ok.Info)

	_, err = ParseOKPacket([]byte{0x00, 0x01, 0x00, 0x02})
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestErrorPacket(t *testing.T) {
	data := []byte{0xff, 0xef, 0x03, '#', 'H', 'Y', '0', '0', '0'}
	data = append(data, "database exists"...)
	require.True(t, IsErrorPacket(data))
	err := ParseErrorPacket(data)
	var se *SQLError
	require.ErrorAs(t, err, &se)
	require.Equal(t, uint16(1007), se.Code)
	require.Equal(t, "HY000", se.State)
	require.Equal(t, "database exists", se.Message)
	require.Equal(t, "ERROR 1007 (HY000): database exists", se.Error())
}

func TestEOFPacket(t *testing.T) {
	data := []byte{0xfe}
	data = DumpUint16(data, 2)
	data = DumpUint16(data, mysql.ServerStatusAutocommit)
	require.True(t, IsEOFPacket(data))
	eof, err := ParseEOFPacket(data)
	require.NoError(t, err)
	require.Equal(t, uint16(2), eof.Warnings)
	require.Equal(t, mysql.ServerStatusAutocommit, eof.Status)
}

// 0xfe is ambiguous: an OK packet terminating a result set under
// CLIENT_DEPRECATE_EOF is at least 7 bytes, a legacy EOF packet is shorter.
func TestEOFOKAmbiguity(t *testing.T) {
	eof := []byte{0xfe, 0x00, 0x00, 0x02, 0x00}
	require.True(t, IsEOFPacket(eof))
	require.False(t, IsResultSetOKPacket(eof))

	ok := []byte{0xfe, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00}
	require.True(t, IsResultSetOKPacket(ok))
}

func TestAuthSwitchRequest(t *testing.T) {
	lg, _ := logger.CreateLoggerForTest(t)
	salt := make([]byte, 20)
	testkit.TestPipeConn(t,
		func(t *testing.T, c net.Conn) {
			srv := NewPacketIO(c, lg)
			require.NoError(t, srv.WriteSwitchRequest(mysql.AuthNativePassword, salt))
		},
		func(t *testing.T, c net.Conn) {
			cli := NewPacketIO(c, lg)
			pkt, err := cli.ReadPacket()
			require.NoError(t, err)
			req, err := ParseAuthSwitchRequest(pkt)
			require.NoError(t, err)
			require.Equal(t, mysql.AuthNativePassword, req.Plugin)
			require.Equal(t, salt, req.Data)
		},
		1,
	)
}
