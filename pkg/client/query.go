// Copyright 2022 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/timysql/pkg/proto"
	"github.com/siddontang/go/hack"
)

// ResultSet streams the rows of one command. It borrows the connection until
// it is drained: no other command may be issued before Next returns the end
// of the stream or Close is called.
type ResultSet struct {
	conn    *Conn
	ok      *proto.OK
	start   time.Time
	columns []*proto.ColumnDefinition
	cmd     proto.Command
	binary  bool
	done    bool
}

// Query runs sql through the text protocol.
func (c *Conn) Query(sql string) (*ResultSet, error) {
	if err := c.beginCommand(); err != nil {
		return nil, err
	}
	start := time.Now()
	data := hack.Slice(sql)
	request := make([]byte, 0, 1+len(data))
	request = append(request, proto.ComQuery.Byte())
	request = append(request, data...)
	err := c.packetIO.WritePacket(request, true)
	var rs *ResultSet
	if err == nil {
		rs, err = c.readResultSetHead(proto.ComQuery, start, false)
	}
	if err != nil {
		return nil, c.finishCommand(proto.ComQuery, start, err)
	}
	if rs.done {
		return rs, c.finishCommand(proto.ComQuery, start, nil)
	}
	return rs, nil
}

// readResultSetHead reads the first response packet of COM_QUERY or
// COM_STMT_EXECUTE and the column definitions when rows follow.
func (c *Conn) readResultSetHead(cmd proto.Command, start time.Time, binary bool) (*ResultSet, error) {
	response, err := c.packetIO.ReadPacket()
	if err != nil {
		return nil, err
	}
	rs := &ResultSet{conn: c, cmd: cmd, start: start, binary: binary}
	switch {
	case proto.IsOKPacket(response):
		ok, err := proto.ParseOKPacket(response)
		if err != nil {
			return nil, err
		}
		c.status = ok.Status
		rs.ok = ok
		rs.done = true
		return rs, nil
	case proto.IsErrorPacket(response):
		rs.done = true
		return rs, proto.ParseErrorPacket(response)
	case proto.Header(response[0]) == proto.LocalInFileHeader:
		return nil, errors.WithStack(proto.ErrUnsupportedLocalInfile)
	}

	columnCount, _, n := proto.ParseLengthEncodedInt(response)
	if n != len(response) {
		return nil, errors.WithStack(proto.ErrMalformedPacket)
	}
	if rs.columns, err = c.readColumns(int(columnCount)); err != nil {
		return nil, err
	}
	c.inResultSet = true
	return rs, nil
}

func (c *Conn) readColumns(count int) ([]*proto.ColumnDefinition, error) {
	columns := make([]*proto.ColumnDefinition, 0, count)
	for i := 0; i < count; i++ {
		data, err := c.packetIO.ReadPacket()
		if err != nil {
			return nil, err
		}
		cd, err := proto.ParseColumnDefinition(data)
		if err != nil {
			return nil, err
		}
		columns = append(columns, cd)
	}
	if count > 0 && c.capability&proto.ClientDeprecateEOF == 0 {
		data, err := c.packetIO.ReadPacket()
		if err != nil {
			return nil, err
		}
		if !proto.IsEOFPacket(data) {
			return nil, errors.Annotatef(proto.ErrUnexpectedPacket, "header %#x after column definitions", data[0])
		}
	}
	return columns, nil
}

// Columns returns the column definitions, nil for OK-only results.
func (rs *ResultSet) Columns() []*proto.ColumnDefinition {
	return rs.columns
}

// AffectedRows is valid once the result set is drained.
func (rs *ResultSet) AffectedRows() uint64 {
	if rs.ok == nil {
		return 0
	}
	return rs.ok.AffectedRows
}

// LastInsertID is valid once the result set is drained.
func (rs *ResultSet) LastInsertID() uint64 {
	if rs.ok == nil {
		return 0
	}
	return rs.ok.LastInsertID
}

// Next returns the next row, or nil when the stream ends. The terminating
// OK/EOF gives the connection back to the caller; a server error mid-stream
// is returned as a SQLError.
func (rs *ResultSet) Next() ([]proto.FieldValue, error) {
	if rs.done {
		return nil, nil
	}
	data, err := rs.conn.packetIO.ReadPacket()
	if err != nil {
		return nil, rs.finish(err)
	}

	if rs.conn.capability&proto.ClientDeprecateEOF == 0 {
		if proto.IsEOFPacket(data) {
			eof, err := proto.ParseEOFPacket(data)
			if err == nil {
				rs.conn.status = eof.Status
				rs.ok = &proto.OK{Status: eof.Status, Warnings: eof.Warnings}
			}
			return nil, rs.finish(err)
		}
	} else if proto.IsResultSetOKPacket(data) {
		ok, err := proto.ParseOKPacket(data)
		if err == nil {
			rs.conn.status = ok.Status
			rs.ok = ok
		}
		return nil, rs.finish(err)
	}
	// The server may fail while writing rows.
	if proto.IsErrorPacket(data) {
		return nil, rs.finish(proto.ParseErrorPacket(data))
	}

	var row []proto.FieldValue
	if rs.binary {
		row, err = proto.ParseBinaryRow(data, rs.columns)
	} else {
		row, err = proto.ParseTextRow(data, rs.columns)
	}
	if err != nil {
		return nil, rs.finish(err)
	}
	return row, nil
}

// finish ends the stream and returns the connection to the caller.
func (rs *ResultSet) finish(err error) error {
	rs.done = true
	rs.conn.inResultSet = false
	return rs.conn.finishCommand(rs.cmd, rs.start, err)
}

// Close drains the remaining rows so that the connection can be reused.
func (rs *ResultSet) Close() error {
	for !rs.done {
		if _, err := rs.Next(); err != nil {
			return err
		}
	}
	return nil
}
