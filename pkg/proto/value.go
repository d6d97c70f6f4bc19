// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"encoding/binary"
	"math"

	"github.com/pingcap/errors"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	"github.com/siddontang/go/hack"
)

// DateTime is the wire form of DATETIME and TIMESTAMP values.
type DateTime struct {
	Microsecond uint32
	Year        uint16
	Month       uint8
	Day         uint8
	Hour        uint8
	Minute      uint8
	Second      uint8
}

// Duration is the wire form of TIME values.
type Duration struct {
	Days        uint32
	Microsecond uint32
	Hour        uint8
	Minute      uint8
	Second      uint8
	IsNegative  bool
}

// DumpBinaryDateTime appends the length-prefixed compressed form of dt.
func DumpBinaryDateTime(buffer []byte, dt DateTime) []byte {
	switch {
	case dt.Microsecond != 0:
		buffer = append(buffer, 11)
		buffer = DumpUint16(buffer, dt.Year)
		buffer = append(buffer, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second)
		buffer = DumpUint32(buffer, dt.Microsecond)
	case dt.Hour != 0 || dt.Minute != 0 || dt.Second != 0:
		buffer = append(buffer, 7)
		buffer = DumpUint16(buffer, dt.Year)
		buffer = append(buffer, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second)
	case dt.Year != 0 || dt.Month != 0 || dt.Day != 0:
		buffer = append(buffer, 4)
		buffer = DumpUint16(buffer, dt.Year)
		buffer = append(buffer, dt.Month, dt.Day)
	default:
		buffer = append(buffer, 0)
	}
	return buffer
}

// ParseBinaryDateTime parses a length-prefixed DATETIME/TIMESTAMP/DATE value.
// n is the number of consumed bytes.
func ParseBinaryDateTime(data []byte) (dt DateTime, n int, err error) {
	if len(data) == 0 {
		err = errors.WithStack(ErrMalformedPacket)
		return
	}
	length := int(data[0])
	n = 1 + length
	if len(data) < n {
		err = errors.WithStack(ErrMalformedPacket)
		return
	}
	switch length {
	case 0:
	case 11:
		dt.Microsecond = binary.LittleEndian.Uint32(data[8:])
		fallthrough
	case 7:
		dt.Hour = data[5]
		dt.Minute = data[6]
		dt.Second = data[7]
		fallthrough
	case 4:
		dt.Year = binary.LittleEndian.Uint16(data[1:])
		dt.Month = data[3]
		dt.Day = data[4]
	default:
		err = errors.WithStack(ErrMalformedPacket)
	}
	return
}

// DumpBinaryTime appends the length-prefixed compressed form of d.
func DumpBinaryTime(buffer []byte, d Duration) []byte {
	neg := byte(0)
	if d.IsNegative {
		neg = 1
	}
	switch {
	case d.Microsecond != 0:
		buffer = append(buffer, 12, neg)
		buffer = DumpUint32(buffer, d.Days)
		buffer = append(buffer, d.Hour, d.Minute, d.Second)
		buffer = DumpUint32(buffer, d.Microsecond)
	case neg != 0 || d.Days != 0 || d.Hour != 0 || d.Minute != 0 || d.Second != 0:
		buffer = append(buffer, 8, neg)
		buffer = DumpUint32(buffer, d.Days)
		buffer = append(buffer, d.Hour, d.Minute, d.Second)
	default:
		buffer = append(buffer, 0)
	}
	return buffer
}

// ParseBinaryTime parses a length-prefixed TIME value.
func ParseBinaryTime(data []byte) (d Duration, n int, err error) {
	if len(data) == 0 {
		err = errors.WithStack(ErrMalformedPacket)
		return
	}
	length := int(data[0])
	n = 1 + length
	if len(data) < n {
		err = errors.WithStack(ErrMalformedPacket)
		return
	}
	switch length {
	case 0:
	case 12:
		d.Microsecond = binary.LittleEndian.Uint32(data[9:])
		fallthrough
	case 8:
		d.IsNegative = data[1] == 1
		d.Days = binary.LittleEndian.Uint32(data[2:])
		d.Hour = data[6]
		d.Minute = data[7]
		d.Second = data[8]
	default:
		err = errors.WithStack(ErrMalformedPacket)
	}
	return
}

// fieldType maps a native argument to the field type of its binary encoding.
func fieldType(arg any) (byte, error) {
	switch arg.(type) {
	case nil:
		return mysql.TypeNull, nil
	case bool, int8, uint8:
		return mysql.TypeTiny, nil
	case int16, uint16:
		return mysql.TypeShort, nil
	case int32, uint32:
		return mysql.TypeLong, nil
	case int, uint, int64, uint64:
		return mysql.TypeLonglong, nil
	case float32:
		return mysql.TypeFloat, nil
	case float64:
		return mysql.TypeDouble, nil
	case string, []byte:
		return mysql.TypeString, nil
	case DateTime:
		return mysql.TypeDatetime, nil
	case Duration:
		return mysql.TypeDuration, nil
	}
	return 0, errors.Annotatef(ErrUnsupportedType, "%T", arg)
}

// dumpBinaryParam appends the binary encoding of a non-nil argument.
func dumpBinaryParam(buffer []byte, arg any) ([]byte, error) {
	switch v := arg.(type) {
	case bool:
		if v {
			return append(buffer, 1), nil
		}
		return append(buffer, 0), nil
	case int8:
		return append(buffer, byte(v)), nil
	case uint8:
		return append(buffer, v), nil
	case int16:
		return DumpUint16(buffer, uint16(v)), nil
	case uint16:
		return DumpUint16(buffer, v), nil
	case int32:
		return DumpUint32(buffer, uint32(v)), nil
	case uint32:
		return DumpUint32(buffer, v), nil
	case int:
		return DumpUint64(buffer, uint64(v)), nil
	case uint:
		return DumpUint64(buffer, uint64(v)), nil
	case int64:
		return DumpUint64(buffer, uint64(v)), nil
	case uint64:
		return DumpUint64(buffer, v), nil
	case float32:
		return DumpUint32(buffer, math.Float32bits(v)), nil
	case float64:
		return DumpUint64(buffer, math.Float64bits(v)), nil
	case string:
		return DumpLengthEncodedString(buffer, hack.Slice(v)), nil
	case []byte:
		return DumpLengthEncodedString(buffer, v), nil
	case DateTime:
		return DumpBinaryDateTime(buffer, v), nil
	case Duration:
		return DumpBinaryTime(buffer, v), nil
	}
	return buffer, errors.Annotatef(ErrUnsupportedType, "%T", arg)
}

// MakeExecuteRequest builds a COM_STMT_EXECUTE request with the arguments
// bound through the binary protocol.
// Ref https://dev.mysql.com/doc/dev/mysql-server/latest/page_protocol_com_stmt_execute.html.
func MakeExecuteRequest(stmtID uint32, numParams int, args []any) ([]byte, error) {
	if len(args) != numParams {
		return nil, errors.Annotatef(ErrParamsCountMismatch, "want %d, got %d", numParams, len(args))
	}
	data := make([]byte, 0, 1+4+1+4+(numParams+7)/8+1+numParams*2)
	data = append(data, mysql.ComStmtExecute)
	data = DumpUint32(data, stmtID)
	// flags (0: CURSOR_TYPE_NO_CURSOR)
	data = append(data, 0x00)
	// iteration count, always 1
	data = DumpUint32(data, 1)
	if numParams == 0 {
		return data, nil
	}

	nullBitmap := make([]byte, (numParams+7)/8)
	for i, arg := range args {
		if arg == nil {
			nullBitmap[i/8] |= 1 << (uint(i) & 7)
		}
	}
	data = append(data, nullBitmap...)

	// new params bind flag
	data = append(data, 0x01)
	for _, arg := range args {
		tp, err := fieldType(arg)
		if err != nil {
			return nil, err
		}
		data = append(data, tp, 0x00)
	}
	for _, arg := range args {
		if arg == nil {
			continue
		}
		var err error
		if data, err = dumpBinaryParam(data, arg); err != nil {
			return nil, err
		}
	}
	return data, nil
}
