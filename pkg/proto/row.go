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

type FieldValueType uint8

const (
	FieldValueNull FieldValueType = iota
	FieldValueUnsigned
	FieldValueSigned
	FieldValueFloat
	FieldValueBytes
	FieldValueDateTime
	FieldValueDuration
)

// FieldValue is one positional value of a decoded row. Mapping values onto
// user types is left to the caller.
type FieldValue struct {
	bytes []byte
	dt    DateTime
	dur   Duration
	num   uint64
	Type  FieldValueType
}

func (fv *FieldValue) IsNull() bool {
	return fv.Type == FieldValueNull
}

func (fv *FieldValue) AsUint64() uint64 {
	return fv.num
}

func (fv *FieldValue) AsInt64() int64 {
	return int64(fv.num)
}

func (fv *FieldValue) AsFloat64() float64 {
	if fv.Type == FieldValueFloat {
		return math.Float64frombits(fv.num)
	}
	return float64(fv.AsInt64())
}

func (fv *FieldValue) AsBytes() []byte {
	return fv.bytes
}

func (fv *FieldValue) AsString() string {
	return hack.String(fv.bytes)
}

func (fv *FieldValue) AsDateTime() DateTime {
	return fv.dt
}

func (fv *FieldValue) AsDuration() Duration {
	return fv.dur
}

// ParseTextRow decodes a text-protocol row: one length-encoded string per
// column, or 0xfb for NULL.
func ParseTextRow(data []byte, columns []*ColumnDefinition) ([]FieldValue, error) {
	row := make([]FieldValue, len(columns))
	pos := 0
	for i := range columns {
		value, isNull, n, err := ParseLengthEncodedBytes(data[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		if isNull {
			row[i].Type = FieldValueNull
			continue
		}
		row[i].Type = FieldValueBytes
		row[i].bytes = value
	}
	if pos != len(data) {
		return nil, errors.WithStack(ErrMalformedPacket)
	}
	return row, nil
}

// ParseBinaryRow decodes a binary-protocol row: a 0x00 header, the NULL
// bitmap with its 2-bit offset, then one value per non-NULL column encoded
// by the declared column type.
func ParseBinaryRow(data []byte, columns []*ColumnDefinition) ([]FieldValue, error) {
	if len(data) == 0 || Header(data[0]) != OKHeader {
		return nil, errors.WithStack(ErrUnexpectedPacket)
	}
	bitmapLen := (len(columns) + 7 + 2) / 8
	if len(data) < 1+bitmapLen {
		return nil, errors.WithStack(ErrMalformedPacket)
	}
	nullBitmap := data[1 : 1+bitmapLen]
	pos := 1 + bitmapLen

	row := make([]FieldValue, len(columns))
	for i, cd := range columns {
		if nullBitmap[(i+2)/8]&(1<<(uint(i+2)&7)) != 0 {
			row[i].Type = FieldValueNull
			continue
		}
		n, err := parseBinaryValue(&row[i], data[pos:], cd)
		if err != nil {
			return nil, err
		}
		pos += n
	}
	if pos != len(data) {
		return nil, errors.WithStack(ErrMalformedPacket)
	}
	return row, nil
}

func parseBinaryValue(fv *FieldValue, data []byte, cd *ColumnDefinition) (int, error) {
	unsigned := cd.Unsigned()
	switch cd.Type {
	case mysql.TypeNull:
		fv.Type = FieldValueNull
		return 0, nil

	case mysql.TypeTiny:
		if len(data) < 1 {
			return 0, errors.WithStack(ErrMalformedPacket)
		}
		if unsigned {
			fv.Type = FieldValueUnsigned
			fv.num = uint64(data[0])
		} else {
			fv.Type = FieldValueSigned
			fv.num = uint64(int64(int8(data[0])))
		}
		return 1, nil

	case mysql.TypeShort, mysql.TypeYear:
		if len(data) < 2 {
			return 0, errors.WithStack(ErrMalformedPacket)
		}
		if unsigned {
			fv.Type = FieldValueUnsigned
			fv.num = uint64(binary.LittleEndian.Uint16(data))
		} else {
			fv.Type = FieldValueSigned
			fv.num = uint64(int64(int16(binary.LittleEndian.Uint16(data))))
		}
		return 2, nil

	case mysql.TypeInt24, mysql.TypeLong:
		if len(data) < 4 {
			return 0, errors.WithStack(ErrMalformedPacket)
		}
		if unsigned {
			fv.Type = FieldValueUnsigned
			fv.num = uint64(binary.LittleEndian.Uint32(data))
		} else {
			fv.Type = FieldValueSigned
			fv.num = uint64(int64(int32(binary.LittleEndian.Uint32(data))))
		}
		return 4, nil

	case mysql.TypeLonglong:
		if len(data) < 8 {
			return 0, errors.WithStack(ErrMalformedPacket)
		}
		if unsigned {
			fv.Type = FieldValueUnsigned
		} else {
			fv.Type = FieldValueSigned
		}
		fv.num = binary.LittleEndian.Uint64(data)
		return 8, nil

	case mysql.TypeFloat:
		if len(data) < 4 {
			return 0, errors.WithStack(ErrMalformedPacket)
		}
		fv.Type = FieldValueFloat
		fv.num = math.Float64bits(float64(math.Float32frombits(binary.LittleEndian.Uint32(data))))
		return 4, nil

	case mysql.TypeDouble:
		if len(data) < 8 {
			return 0, errors.WithStack(ErrMalformedPacket)
		}
		fv.Type = FieldValueFloat
		fv.num = binary.LittleEndian.Uint64(data)
		return 8, nil

	case mysql.TypeUnspecified, mysql.TypeNewDecimal, mysql.TypeVarchar, mysql.TypeBit,
		mysql.TypeEnum, mysql.TypeSet, mysql.TypeTinyBlob, mysql.TypeMediumBlob,
		mysql.TypeLongBlob, mysql.TypeBlob, mysql.TypeVarString, mysql.TypeString,
		mysql.TypeGeometry, mysql.TypeJSON:
		value, isNull, n, err := ParseLengthEncodedBytes(data)
		if err != nil {
			return 0, err
		}
		if isNull {
			fv.Type = FieldValueNull
		} else {
			fv.Type = FieldValueBytes
			fv.bytes = value
		}
		return n, nil

	case mysql.TypeDate, mysql.TypeNewDate, mysql.TypeTimestamp, mysql.TypeDatetime:
		dt, n, err := ParseBinaryDateTime(data)
		if err != nil {
			return 0, err
		}
		fv.Type = FieldValueDateTime
		fv.dt = dt
		return n, nil

	case mysql.TypeDuration:
		dur, n, err := ParseBinaryTime(data)
		if err != nil {
			return 0, err
		}
		fv.Type = FieldValueDuration
		fv.dur = dur
		return n, nil
	}
	return 0, errors.Annotatef(ErrUnsupportedType, "field type %d", cd.Type)
}

// DumpTextRow encodes a text-protocol row; nil means NULL. It's only used for testing.
func DumpTextRow(buffer []byte, values [][]byte) []byte {
	for _, v := range values {
		if v == nil {
			buffer = append(buffer, 0xfb)
			continue
		}
		buffer = DumpLengthEncodedString(buffer, v)
	}
	return buffer
}

// DumpBinaryRow encodes a binary-protocol row; nil means NULL. It's only used for testing.
func DumpBinaryRow(buffer []byte, values []any) ([]byte, error) {
	buffer = append(buffer, OKHeader.Byte())
	bitmapPos := len(buffer)
	bitmapLen := (len(values) + 7 + 2) / 8
	for i := 0; i < bitmapLen; i++ {
		buffer = append(buffer, 0)
	}
	for i, v := range values {
		if v == nil {
			buffer[bitmapPos+(i+2)/8] |= 1 << (uint(i+2) & 7)
			continue
		}
		var err error
		if buffer, err = dumpBinaryParam(buffer, v); err != nil {
			return nil, err
		}
	}
	return buffer, nil
}
