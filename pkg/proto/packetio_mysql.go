// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"github.com/pingcap/errors"
	"github.com/pingcap/tidb/pkg/parser/mysql"
)

var (
	ErrSaltNotLongEnough = errors.New("salt is not long enough")
)

// WriteInitialHandshake writes an initial handshake as a server. It's only used for testing.
func (p *PacketIO) WriteInitialHandshake(capability Capability, salt []byte, authPlugin string, serverVersion string, connID uint32) error {
	saltLen := len(salt)
	if saltLen < 8 {
		return ErrSaltNotLongEnough
	} else if saltLen > 20 {
		saltLen = 20
	}

	data := make([]byte, 0, 128)

	// min version 10
	data = append(data, HandshakeVersion)
	// server version[NUL]
	data = append(data, serverVersion...)
	data = append(data, 0)
	// connection id
	data = DumpUint32(data, connID)
	// auth-plugin-data-part-1
	data = append(data, salt[0:8]...)
	// filler [00]
	data = append(data, 0)
	// capability flag lower 2 bytes
	data = append(data, byte(capability), byte(capability>>8))
	// charset
	data = append(data, uint8(mysql.DefaultCollationID))
	// status
	data = DumpUint16(data, mysql.ServerStatusAutocommit)
	// capability flag upper 2 bytes
	data = append(data, byte(capability>>16), byte(capability>>24))
	// length of auth-plugin-data
	data = append(data, byte(saltLen+1))
	// reserved 10 [00]
	data = append(data, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	// auth-plugin-data-part-2
	data = append(data, salt[8:saltLen]...)
	data = append(data, 0)
	// auth-plugin name
	data = append(data, []byte(authPlugin)...)
	data = append(data, 0)

	return p.WritePacket(data, true)
}

// WriteSwitchRequest writes an auth switch request to the client. It's only used for testing.
func (p *PacketIO) WriteSwitchRequest(authPlugin string, salt []byte) error {
	length := 1 + len(authPlugin) + 1 + len(salt) + 1
	data := make([]byte, 0, length)
	// check https://dev.mysql.com/doc/dev/mysql-server/latest/page_protocol_connection_phase_packets_protocol_auth_switch_request.html
	data = append(data, AuthSwitchHeader.Byte())
	data = append(data, authPlugin...)
	data = append(data, 0x00)
	data = append(data, salt...)
	data = append(data, 0x00)
	return p.WritePacket(data, true)
}

// WriteShaCommand asks for the full caching_sha2_password exchange. It's only used for testing.
func (p *PacketIO) WriteShaCommand() error {
	return p.WritePacket([]byte{ShaCommand, FastAuthFail}, true)
}

// WriteOKPacket writes an OK packet. It's only used for testing.
func (p *PacketIO) WriteOKPacket(status uint16, header Header) error {
	data := make([]byte, 0, 7)
	data = append(data, header.Byte())
	data = append(data, 0, 0)
	// ClientProtocol41 must be enabled.
	data = DumpUint16(data, status)
	data = append(data, 0, 0)
	return p.WritePacket(data, true)
}

// WriteErrPacket writes an Error packet. It's only used for testing.
func (p *PacketIO) WriteErrPacket(code uint16, message string) error {
	data := make([]byte, 0, 9+len(message))
	data = append(data, ErrHeader.Byte())
	data = append(data, byte(code), byte(code>>8))

	// ClientProtocol41 must be enabled for the state.
	data = append(data, '#')
	s, ok := mysql.MySQLState[code]
	if !ok {
		s = mysql.DefaultMySQLState
	}
	data = append(data, s...)
	data = append(data, message...)
	return p.WritePacket(data, true)
}

// WriteEOFPacket writes an EOF packet. It's only used for testing.
func (p *PacketIO) WriteEOFPacket(status uint16) error {
	data := make([]byte, 0, 5)
	data = append(data, EOFHeader.Byte())
	data = append(data, 0, 0)
	// ClientProtocol41 must be enabled.
	data = DumpUint16(data, status)
	return p.WritePacket(data, true)
}
