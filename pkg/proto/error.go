// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

import (
	stderrors "errors"
	"fmt"

	"github.com/pingcap/errors"
)

var (
	ErrReadConn  = errors.New("failed to read the connection")
	ErrWriteConn = errors.New("failed to write the connection")
	ErrFlushConn = errors.New("failed to flush the connection")
	ErrCloseConn = errors.New("failed to close the connection")

	// ErrInvalidSequence means the packet header carried an unexpected sequence id.
	// There is no resync: the connection must be closed.
	ErrInvalidSequence = errors.New("invalid packet sequence")
	// ErrMalformedPacket means a payload was truncated or carried an invalid
	// length-encoded integer.
	ErrMalformedPacket = errors.New("malformed packet")
	// ErrUnexpectedPacket means the payload discriminator does not match the
	// current protocol state.
	ErrUnexpectedPacket = errors.New("unexpected packet")

	ErrUnsupportedProtocol    = errors.New("pre-4.1 MySQL server versions are not supported")
	ErrUnsupportedAuthPlugin  = errors.New("unsupported auth plugin")
	ErrUnsupportedLocalInfile = errors.New("LOCAL INFILE requests are not supported")

	ErrParamsCountMismatch = errors.New("parameter count mismatch")
	ErrUnsupportedType     = errors.New("unsupported parameter type")
)

// SQLError is an error reported by the server through an ERR packet.
type SQLError struct {
	Message string
	State   string
	Code    uint16
}

func (e *SQLError) Error() string {
	return fmt.Sprintf("ERROR %d (%s): %s", e.Code, e.State, e.Message)
}

// IsSQLError returns true if the error is reported by the server.
func IsSQLError(err error) bool {
	if err == nil {
		return false
	}
	var se *SQLError
	return stderrors.As(err, &se)
}
