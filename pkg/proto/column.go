// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"encoding/binary"

	"github.com/pingcap/errors"
	"github.com/pingcap/tidb/pkg/parser/mysql"
)

// ColumnDefinition is a ColumnDefinition41 packet.
// Ref https://dev.mysql.com/doc/dev/mysql-server/latest/page_protocol_com_query_response_text_resultset_column_definition.html.
type ColumnDefinition struct {
	Catalog      string
	Schema       string
	Table        string
	OrgTable     string
	Name         string
	OrgName      string
	ColumnLength uint32
	Charset      uint16
	Flags        uint16
	Type         byte
	Decimals     uint8
}

// Unsigned reports whether the column carries the UNSIGNED flag, which decides
// the signedness of binary-encoded integer values.
func (cd *ColumnDefinition) Unsigned() bool {
	return uint(cd.Flags)&mysql.UnsignedFlag != 0
}

func ParseColumnDefinition(data []byte) (*ColumnDefinition, error) {
	cd := new(ColumnDefinition)
	pos := 0
	for _, dst := range []*string{&cd.Catalog, &cd.Schema, &cd.Table, &cd.OrgTable, &cd.Name, &cd.OrgName} {
		s, _, n, err := ParseLengthEncodedBytes(data[pos:])
		if err != nil {
			return nil, err
		}
		*dst = string(s)
		pos += n
	}
	// length of fixed-length fields, always 0x0c
	fixedLen, _, n := ParseLengthEncodedInt(data[pos:])
	if n == 0 || fixedLen != 0x0c || len(data) < pos+n+0x0c {
		return nil, errors.WithStack(ErrMalformedPacket)
	}
	pos += n
	cd.Charset = binary.LittleEndian.Uint16(data[pos:])
	pos += 2
	cd.ColumnLength = binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	cd.Type = data[pos]
	pos++
	cd.Flags = binary.LittleEndian.Uint16(data[pos:])
	pos += 2
	cd.Decimals = data[pos]
	// filler [2 bytes]
	return cd, nil
}

// DumpColumnDefinition encodes a ColumnDefinition41 payload. It's only used for testing.
func DumpColumnDefinition(buffer []byte, cd *ColumnDefinition) []byte {
	for _, s := range []string{cd.Catalog, cd.Schema, cd.Table, cd.OrgTable, cd.Name, cd.OrgName} {
		buffer = DumpLengthEncodedString(buffer, []byte(s))
	}
	buffer = append(buffer, 0x0c)
	buffer = DumpUint16(buffer, cd.Charset)
	buffer = DumpUint32(buffer, cd.ColumnLength)
	buffer = append(buffer, cd.Type)
	buffer = DumpUint16(buffer, cd.Flags)
	buffer = append(buffer, cd.Decimals)
	buffer = append(buffer, 0, 0)
	return buffer
}

// PrepareOK is the first packet of a COM_STMT_PREPARE response.
type PrepareOK struct {
	StatementID uint32
	NumColumns  uint16
	NumParams   uint16
	Warnings    uint16
}

func ParsePrepareOK(data []byte) (*PrepareOK, error) {
	if len(data) < 12 || Header(data[0]) != OKHeader {
		return nil, errors.WithStack(ErrMalformedPacket)
	}
	p := new(PrepareOK)
	p.StatementID = binary.LittleEndian.Uint32(data[1:])
	p.NumColumns = binary.LittleEndian.Uint16(data[5:])
	p.NumParams = binary.LittleEndian.Uint16(data[7:])
	// data[9] is a reserved filler
	p.Warnings = binary.LittleEndian.Uint16(data[10:])
	return p, nil
}

// DumpPrepareOK encodes a COM_STMT_PREPARE response head. It's only used for testing.
func DumpPrepareOK(buffer []byte, p *PrepareOK) []byte {
	buffer = append(buffer, OKHeader.Byte())
	buffer = DumpUint32(buffer, p.StatementID)
	buffer = DumpUint16(buffer, p.NumColumns)
	buffer = DumpUint16(buffer, p.NumParams)
	buffer = append(buffer, 0)
	buffer = DumpUint16(buffer, p.Warnings)
	return buffer
}
