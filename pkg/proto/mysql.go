// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"bytes"
	"encoding/binary"

	"github.com/pingcap/errors"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	"github.com/siddontang/go/hack"
)

// InitialHandshake is the HandshakeV10 greeting sent by the server.
type InitialHandshake struct {
	ServerVersion  string
	AuthPlugin     string
	AuthPluginData []byte
	Capability     Capability
	ConnID         uint32
	Status         uint16
	Collation      uint8
}

// ParseInitialHandshake parses the initial handshake received from the server.
func ParseInitialHandshake(data []byte) (*InitialHandshake, error) {
	if len(data) == 0 || data[0] != HandshakeVersion {
		return nil, errors.WithStack(ErrUnexpectedPacket)
	}
	hs := new(InitialHandshake)
	serverVersion, rest := ParseNullTermString(data[1:])
	if rest == nil || len(rest) < 4+8+1+2 {
		return nil, errors.WithStack(ErrMalformedPacket)
	}
	hs.ServerVersion = string(serverVersion)
	hs.ConnID = binary.LittleEndian.Uint32(rest[:4])
	pos := 4
	// auth-plugin-data-part-1
	hs.AuthPluginData = append(hs.AuthPluginData, rest[pos:pos+8]...)
	// skip filler
	pos += 8 + 1

	// capability lower 2 bytes
	hs.Capability = Capability(binary.LittleEndian.Uint16(rest[pos : pos+2]))
	pos += 2

	if len(rest) > pos {
		if len(rest) < pos+1+2+2+1+10 {
			return nil, errors.WithStack(ErrMalformedPacket)
		}
		hs.Collation = rest[pos]
		pos++
		hs.Status = binary.LittleEndian.Uint16(rest[pos : pos+2])
		pos += 2
		// capability flags (upper 2 bytes)
		hs.Capability = Capability(binary.LittleEndian.Uint16(rest[pos:pos+2]))<<16 | hs.Capability
		pos += 2
		authDataLen := int(rest[pos])
		pos++
		// reserved (all [00])
		pos += 10

		if hs.Capability&ClientSecureConnection != 0 {
			// auth-plugin-data-part-2: at least 12 bytes besides the trailing [00]
			part2Len := 13
			if authDataLen-8 > part2Len {
				part2Len = authDataLen - 8
			}
			if len(rest) < pos+part2Len {
				return nil, errors.WithStack(ErrMalformedPacket)
			}
			part2 := rest[pos : pos+part2Len]
			pos += part2Len
			if part2[len(part2)-1] == 0 {
				part2 = part2[:len(part2)-1]
			}
			hs.AuthPluginData = append(hs.AuthPluginData, part2...)
		}
		if hs.Capability&ClientPluginAuth != 0 {
			name, _ := ParseNullTermString(rest[pos:])
			if name == nil {
				// some servers forget the trailing [00]
				name = rest[pos:]
			}
			hs.AuthPlugin = string(name)
		}
	}
	return hs, nil
}

// HandshakeResp is the HandshakeResponse41 sent by the client.
type HandshakeResp struct {
	Attrs      map[string]string
	User       string
	DB         string
	AuthPlugin string
	AuthData   []byte
	Capability Capability
	Collation  uint8
}

func ParseHandshakeResponse(data []byte) (*HandshakeResp, error) {
	resp := new(HandshakeResp)
	pos := 0
	// capability
	resp.Capability = Capability(binary.LittleEndian.Uint32(data[:4]))
	pos += 4
	// skip max packet size
	pos += 4
	// charset
	resp.Collation = data[pos]
	pos++
	// skip reserved 23[00]
	pos += 23

	// user name
	resp.User = string(data[pos : pos+bytes.IndexByte(data[pos:], 0)])
	pos += len(resp.User) + 1

	// auth data
	if resp.Capability&ClientPluginAuthLenencClientData > 0 {
		num, null, off := ParseLengthEncodedInt(data[pos:])
		pos += off
		if !null {
			resp.AuthData = data[pos : pos+int(num)]
			pos += int(num)
		}
	} else if resp.Capability&ClientSecureConnection > 0 {
		authLen := int(data[pos])
		pos++
		resp.AuthData = data[pos : pos+authLen]
		pos += authLen
	} else {
		resp.AuthData = data[pos : pos+bytes.IndexByte(data[pos:], 0)]
		pos += len(resp.AuthData) + 1
	}

	// dbname
	if resp.Capability&ClientConnectWithDB > 0 {
		if len(data[pos:]) > 0 {
			idx := bytes.IndexByte(data[pos:], 0)
			resp.DB = string(data[pos : pos+idx])
			pos = pos + idx + 1
		}
	}

	// auth plugin
	if resp.Capability&ClientPluginAuth > 0 {
		idx := bytes.IndexByte(data[pos:], 0)
		s := pos
		f := pos + idx
		if s < f { // handle unexpected bad packets
			resp.AuthPlugin = string(data[s:f])
		}
		pos += idx + 1
	}

	// attrs
	var err error
	if resp.Capability&ClientConnectAttrs > 0 {
		if num, null, off := ParseLengthEncodedInt(data[pos:]); !null {
			pos += off
			row := data[pos : pos+int(num)]
			resp.Attrs, err = parseAttrs(row)
			if err != nil {
				err = errors.Annotate(err, "parse attrs failed")
			}
		}
	}
	return resp, err
}

func parseAttrs(data []byte) (map[string]string, error) {
	attrs := make(map[string]string)
	pos := 0
	for pos < len(data) {
		key, _, off, err := ParseLengthEncodedBytes(data[pos:])
		if err != nil {
			return attrs, err
		}
		pos += off
		value, _, off, err := ParseLengthEncodedBytes(data[pos:])
		if err != nil {
			return attrs, err
		}
		pos += off

		attrs[string(key)] = string(value)
	}
	return attrs, nil
}

func dumpAttrs(attrs map[string]string) []byte {
	var buf bytes.Buffer
	var keyBuf []byte
	for k, v := range attrs {
		keyBuf = keyBuf[0:0]
		keyBuf = DumpLengthEncodedString(keyBuf, []byte(k))
		buf.Write(keyBuf)
		keyBuf = keyBuf[0:0]
		keyBuf = DumpLengthEncodedString(keyBuf, []byte(v))
		buf.Write(keyBuf)
	}
	return buf.Bytes()
}

func MakeHandshakeResponse(resp *HandshakeResp) []byte {
	// encode length of the auth data
	var (
		authRespBuf, attrLenBuf  [9]byte
		authResp, attrs, attrBuf []byte
	)
	authResp = DumpLengthEncodedInt(authRespBuf[:0], uint64(len(resp.AuthData)))
	capability := resp.Capability
	if len(authResp) > 1 {
		capability |= ClientPluginAuthLenencClientData
	} else {
		capability &= ^ClientPluginAuthLenencClientData
	}
	if capability&ClientConnectAttrs > 0 {
		attrs = dumpAttrs(resp.Attrs)
		attrBuf = DumpLengthEncodedInt(attrLenBuf[:0], uint64(len(attrs)))
	}

	length := 4 + 4 + 1 + 23 + len(resp.User) + 1 + len(authResp) + len(resp.AuthData) + len(resp.DB) + 1 + len(resp.AuthPlugin) + 1 + len(attrBuf) + len(attrs)
	data := make([]byte, length)
	pos := 0
	// capability [32 bit]
	DumpUint32(data[:0], capability.Uint32())
	pos += 4
	// MaxPacketSize [32 bit]
	pos += 4
	// Charset [1 byte]
	data[pos] = resp.Collation
	pos++
	// Filler [23 bytes] (all 0x00)
	pos += 23

	// User [null terminated string]
	pos += copy(data[pos:], resp.User)
	data[pos] = 0x00
	pos++

	// auth data
	if capability&ClientPluginAuthLenencClientData > 0 {
		pos += copy(data[pos:], authResp)
		pos += copy(data[pos:], resp.AuthData)
	} else if capability&ClientSecureConnection > 0 {
		data[pos] = byte(len(resp.AuthData))
		pos++
		pos += copy(data[pos:], resp.AuthData)
	} else {
		pos += copy(data[pos:], resp.AuthData)
		data[pos] = 0x00
		pos++
	}

	// db [null terminated string]
	if capability&ClientConnectWithDB > 0 {
		pos += copy(data[pos:], resp.DB)
		data[pos] = 0x00
		pos++
	}

	// auth_plugin [null terminated string]
	if capability&ClientPluginAuth > 0 {
		pos += copy(data[pos:], resp.AuthPlugin)
		data[pos] = 0x00
		pos++
	}

	// attrs
	if capability&ClientConnectAttrs > 0 {
		pos += copy(data[pos:], attrBuf)
		pos += copy(data[pos:], attrs)
	}
	return data[:pos]
}

// AuthSwitchRequest asks the client to continue under another plugin.
type AuthSwitchRequest struct {
	Plugin string
	Data   []byte
}

func ParseAuthSwitchRequest(data []byte) (*AuthSwitchRequest, error) {
	if len(data) == 0 || Header(data[0]) != AuthSwitchHeader {
		return nil, errors.WithStack(ErrUnexpectedPacket)
	}
	req := new(AuthSwitchRequest)
	name, rest := ParseNullTermString(data[1:])
	if name == nil {
		return nil, errors.WithStack(ErrMalformedPacket)
	}
	req.Plugin = string(name)
	if len(rest) > 0 && rest[len(rest)-1] == 0 {
		rest = rest[:len(rest)-1]
	}
	req.Data = rest
	return req, nil
}

// OK is the decoded form of an OK packet.
type OK struct {
	Info         string
	AffectedRows uint64
	LastInsertID uint64
	Status       uint16
	Warnings     uint16
}

// ParseOKPacket transforms an OK packet into an OK object.
func ParseOKPacket(data []byte) (*OK, error) {
	var n int
	var pos = 1
	r := new(OK)
	r.AffectedRows, _, n = ParseLengthEncodedInt(data[pos:])
	if n == 0 {
		return nil, errors.WithStack(ErrMalformedPacket)
	}
	pos += n
	r.LastInsertID, _, n = ParseLengthEncodedInt(data[pos:])
	if n == 0 {
		return nil, errors.WithStack(ErrMalformedPacket)
	}
	pos += n
	// ClientProtocol41 is always negotiated.
	if len(data) < pos+4 {
		return nil, errors.WithStack(ErrMalformedPacket)
	}
	r.Status = binary.LittleEndian.Uint16(data[pos:])
	pos += 2
	r.Warnings = binary.LittleEndian.Uint16(data[pos:])
	pos += 2
	if len(data) > pos {
		r.Info = hack.String(data[pos:])
	}
	return r, nil
}

// ParseErrorPacket transforms an error packet into a SQLError object.
func ParseErrorPacket(data []byte) error {
	e := new(SQLError)
	pos := 1
	if len(data) < 3 {
		return errors.WithStack(ErrMalformedPacket)
	}
	e.Code = binary.LittleEndian.Uint16(data[pos:])
	pos += 2
	e.State = mysql.DefaultMySQLState
	if len(data) > pos && data[pos] == '#' {
		pos++
		if len(data) < pos+5 {
			return errors.WithStack(ErrMalformedPacket)
		}
		e.State = hack.String(data[pos : pos+5])
		pos += 5
	}
	e.Message = hack.String(data[pos:])
	return e
}

// EOF is the decoded form of a legacy EOF packet.
type EOF struct {
	Warnings uint16
	Status   uint16
}

func ParseEOFPacket(data []byte) (*EOF, error) {
	if len(data) < 5 {
		return nil, errors.WithStack(ErrMalformedPacket)
	}
	return &EOF{
		Warnings: binary.LittleEndian.Uint16(data[1:]),
		Status:   binary.LittleEndian.Uint16(data[3:]),
	}, nil
}

// IsOKPacket returns true if it's an OK packet (but not ResultSet OK).
func IsOKPacket(data []byte) bool {
	return Header(data[0]) == OKHeader
}

// IsEOFPacket returns true if it's an EOF packet.
func IsEOFPacket(data []byte) bool {
	return Header(data[0]) == EOFHeader && len(data) < 9
}

// IsResultSetOKPacket returns true if it's an OK packet after the result set when
// CLIENT_DEPRECATE_EOF is enabled. A row packet may also begin with 0xfe, so we
// need to judge it with the packet length.
// See https://mariadb.com/kb/en/result-set-packets/
func IsResultSetOKPacket(data []byte) bool {
	// With CLIENT_PROTOCOL_41 enabled, the least length is 7.
	return Header(data[0]) == EOFHeader && len(data) >= 7 && len(data) < 0xFFFFFF
}

// IsErrorPacket returns true if it's an error packet.
func IsErrorPacket(data []byte) bool {
	return Header(data[0]) == ErrHeader
}
