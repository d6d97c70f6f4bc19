// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

type Header byte

// Header information.
const (
	OKHeader           Header = 0x00
	AuthMoreDataHeader Header = 0x01
	LocalInFileHeader  Header = 0xfb
	EOFHeader          Header = 0xfe
	AuthSwitchHeader   Header = 0xfe
	ErrHeader          Header = 0xff
)

// HandshakeVersion is the protocol version of the initial handshake.
const HandshakeVersion = 10

var headerStrings = map[Header]string{
	OKHeader:           "OK",
	AuthMoreDataHeader: "AUTH_MORE_DATA",
	LocalInFileHeader:  "LOCAL_IN_FILE",
	EOFHeader:          "EOF/AuthSwitch",
	ErrHeader:          "ERR",
}

func (f Header) Byte() byte {
	return byte(f)
}

func (f Header) String() string {
	return headerStrings[f]
}
