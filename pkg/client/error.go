// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"github.com/pingcap/errors"
)

var (
	// ErrConnClosed is returned by any operation on a closed connection.
	ErrConnClosed = errors.New("connection is closed")
	// ErrConnPoisoned is returned after a protocol or I/O failure until the
	// connection is closed.
	ErrConnPoisoned = errors.New("connection is in a failed state")
	// ErrResultSetPending means a previous result set has not been fully
	// drained. The protocol is half duplex per connection.
	ErrResultSetPending = errors.New("a result set is still being read")
	// ErrStmtClosed is returned when executing a closed prepared statement.
	ErrStmtClosed = errors.New("prepared statement is closed")
)
