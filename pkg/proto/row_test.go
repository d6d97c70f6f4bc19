// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	"testing"

	"github.com/pingcap/tidb/pkg/parser/mysql"
	"github.com/stretchr/testify/require"
)

func columnsOf(types ...byte) []*ColumnDefinition {
	columns := make([]*ColumnDefinition, 0, len(types))
	for _, tp := range types {
		columns = append(columns, &ColumnDefinition{Type: tp})
	}
	return columns
}

func TestParseTextRow(t *testing.T) {
	data := DumpTextRow(nil, [][]byte{[]byte("42"), nil, []byte("hello")})
	row, err := ParseTextRow(data, columnsOf(mysql.TypeLong, mysql.TypeLong, mysql.TypeVarString))
	require.NoError(t, err)
	require.Len(t, row, 3)
	require.False(t, row[0].IsNull())
	require.Equal(t, "42", row[0].AsString())
	require.True(t, row[1].IsNull())
	require.Equal(t, []byte("hello"), row[2].AsBytes())
}

func TestParseTextRowMalformed(t *testing.T) {
	_, err := ParseTextRow([]byte{0x05, 'h', 'i'}, columnsOf(mysql.TypeVarString))
	require.ErrorIs(t, err, ErrMalformedPacket)
	// trailing garbage after the last column
	_, err = ParseTextRow([]byte{0x01, 'h', 0x00}, columnsOf(mysql.TypeVarString))
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestBinaryRowRoundTrip(t *testing.T) {
	columns := columnsOf(
		mysql.TypeTiny,
		mysql.TypeShort,
		mysql.TypeLong,
		mysql.TypeLonglong,
		mysql.TypeFloat,
		mysql.TypeDouble,
		mysql.TypeVarString,
		mysql.TypeDatetime,
		mysql.TypeDuration,
		mysql.TypeLong,
	)
	dt := DateTime{Year: 2024, Month: 2, Day: 29, Hour: 12, Minute: 30, Second: 45}
	dur := Duration{Days: 1, Hour: 2, Minute: 3, Second: 4, Microsecond: 5}
	data, err := DumpBinaryRow(nil, []any{
		int8(-8),
		int16(-16),
		int32(-32),
		int64(-64),
		float32(1.5),
		float64(2.5),
		[]byte("bytes"),
		dt,
		dur,
		nil,
	})
	require.NoError(t, err)

	row, err := ParseBinaryRow(data, columns)
	require.NoError(t, err)
	require.Len(t, row, 10)
	require.Equal(t, int64(-8), row[0].AsInt64())
	require.Equal(t, int64(-16), row[1].AsInt64())
	require.Equal(t, int64(-32), row[2].AsInt64())
	require.Equal(t, int64(-64), row[3].AsInt64())
	require.Equal(t, 1.5, row[4].AsFloat64())
	require.Equal(t, 2.5, row[5].AsFloat64())
	require.Equal(t, "bytes", row[6].AsString())
	require.Equal(t, dt, row[7].AsDateTime())
	require.Equal(t, dur, row[8].AsDuration())
	require.True(t, row[9].IsNull())
}

func TestBinaryRowUnsigned(t *testing.T) {
	columns := []*ColumnDefinition{
		{Type: mysql.TypeTiny, Flags: uint16(mysql.UnsignedFlag)},
		{Type: mysql.TypeTiny},
	}
	data, err := DumpBinaryRow(nil, []any{uint8(0xff), int8(-1)})
	require.NoError(t, err)
	row, err := ParseBinaryRow(data, columns)
	require.NoError(t, err)
	require.Equal(t, uint64(255), row[0].AsUint64())
	require.Equal(t, int64(-1), row[1].AsInt64())
}

// The server null bitmap is shifted by 2 bits: bit 2 of byte 0 is column 0.
func TestBinaryRowNullBitmapOffset(t *testing.T) {
	values := make([]any, 9)
	columns := make([]*ColumnDefinition, 9)
	for i := range values {
		columns[i] = &ColumnDefinition{Type: mysql.TypeLong}
		if i%2 == 0 {
			values[i] = nil
		} else {
			values[i] = int32(i)
		}
	}
	data, err := DumpBinaryRow(nil, values)
	require.NoError(t, err)
	require.Equal(t, OKHeader.Byte(), data[0])
	// 9 columns + 2 offset bits span 2 bitmap bytes
	require.Equal(t, byte(0b01010100), data[1])
	require.Equal(t, byte(0b00000101), data[2])

	row, err := ParseBinaryRow(data, columns)
	require.NoError(t, err)
	for i := range row {
		require.Equal(t, i%2 == 0, row[i].IsNull(), "column %d", i)
		if i%2 != 0 {
			require.Equal(t, int64(i), row[i].AsInt64())
		}
	}
}

func TestBinaryRowTruncated(t *testing.T) {
	columns := columnsOf(mysql.TypeLonglong)
	_, err := ParseBinaryRow([]byte{0x00, 0x00, 0x01, 0x02}, columns)
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestColumnDefinitionRoundTrip(t *testing.T) {
	cd := &ColumnDefinition{
		Catalog:      "def",
		Schema:       "test",
		Table:        "t",
		OrgTable:     "t",
		Name:         "a",
		OrgName:      "a",
		Charset:      63,
		ColumnLength: 11,
		Type:         mysql.TypeLong,
		Flags:        uint16(mysql.UnsignedFlag),
		Decimals:     0,
	}
	data := DumpColumnDefinition(nil, cd)
	parsed, err := ParseColumnDefinition(data)
	require.NoError(t, err)
	require.Equal(t, cd, parsed)
	require.True(t, parsed.Unsigned())
}

func TestPrepareOKRoundTrip(t *testing.T) {
	p := &PrepareOK{StatementID: 7, NumColumns: 2, NumParams: 3, Warnings: 1}
	data := DumpPrepareOK(nil, p)
	parsed, err := ParsePrepareOK(data)
	require.NoError(t, err)
	require.Equal(t, p, parsed)

	_, err = ParsePrepareOK([]byte{0x00, 0x01})
	require.ErrorIs(t, err, ErrMalformedPacket)
}
