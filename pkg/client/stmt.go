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

// Stmt is a server-side prepared statement. It lives until Close or until the
// connection goes away.
type Stmt struct {
	conn      *Conn
	prepareOK *proto.PrepareOK
	params    []*proto.ColumnDefinition
	columns   []*proto.ColumnDefinition
	closed    bool
}

// Prepare compiles sql on the server.
func (c *Conn) Prepare(sql string) (*Stmt, error) {
	if err := c.beginCommand(); err != nil {
		return nil, err
	}
	start := time.Now()
	data := hack.Slice(sql)
	request := make([]byte, 0, 1+len(data))
	request = append(request, proto.ComStmtPrepare.Byte())
	request = append(request, data...)
	stmt, err := c.readPrepareResponse(request)
	if err != nil {
		return nil, c.finishCommand(proto.ComStmtPrepare, start, err)
	}
	return stmt, c.finishCommand(proto.ComStmtPrepare, start, nil)
}

func (c *Conn) readPrepareResponse(request []byte) (*Stmt, error) {
	if err := c.packetIO.WritePacket(request, true); err != nil {
		return nil, err
	}
	response, err := c.packetIO.ReadPacket()
	if err != nil {
		return nil, err
	}
	if proto.IsErrorPacket(response) {
		return nil, proto.ParseErrorPacket(response)
	}
	prepareOK, err := proto.ParsePrepareOK(response)
	if err != nil {
		return nil, err
	}
	stmt := &Stmt{conn: c, prepareOK: prepareOK}
	if prepareOK.NumParams > 0 {
		if stmt.params, err = c.readColumns(int(prepareOK.NumParams)); err != nil {
			return nil, err
		}
	}
	if prepareOK.NumColumns > 0 {
		if stmt.columns, err = c.readColumns(int(prepareOK.NumColumns)); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// StatementID reports the server-assigned statement id.
func (s *Stmt) StatementID() uint32 {
	return s.prepareOK.StatementID
}

// NumParams reports the number of parameter placeholders.
func (s *Stmt) NumParams() int {
	return int(s.prepareOK.NumParams)
}

// Params returns the parameter definitions sent by the server.
func (s *Stmt) Params() []*proto.ColumnDefinition {
	return s.params
}

// Columns returns the result column definitions sent by the server.
func (s *Stmt) Columns() []*proto.ColumnDefinition {
	return s.columns
}

// Execute runs the statement through the binary protocol. Rows are decoded by
// the declared column types.
func (s *Stmt) Execute(args ...any) (*ResultSet, error) {
	if s.closed {
		return nil, errors.WithStack(ErrStmtClosed)
	}
	// Encoding failures are local: the connection stays usable.
	request, err := proto.MakeExecuteRequest(s.prepareOK.StatementID, s.NumParams(), args)
	if err != nil {
		return nil, err
	}
	c := s.conn
	if err := c.beginCommand(); err != nil {
		return nil, err
	}
	start := time.Now()
	err = c.packetIO.WritePacket(request, true)
	var rs *ResultSet
	if err == nil {
		rs, err = c.readResultSetHead(proto.ComStmtExecute, start, true)
	}
	if err != nil {
		return nil, c.finishCommand(proto.ComStmtExecute, start, err)
	}
	if rs.done {
		return rs, c.finishCommand(proto.ComStmtExecute, start, nil)
	}
	return rs, nil
}

// Close deallocates the statement on the server. COM_STMT_CLOSE has no
// response packet.
func (s *Stmt) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	c := s.conn
	if err := c.beginCommand(); err != nil {
		// Losing the connection deallocates the statement anyway. While a
		// result set is pending, no COM_STMT_CLOSE is sent either and the
		// statement stays allocated on the server.
		return nil
	}
	start := time.Now()
	request := make([]byte, 0, 5)
	request = append(request, proto.ComStmtClose.Byte())
	request = proto.DumpUint32(request, s.prepareOK.StatementID)
	err := c.packetIO.WritePacket(request, true)
	return c.finishCommand(proto.ComStmtClose, start, err)
}
