// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

// The MIT License (MIT)
//
// Copyright (c) 2014 wandoulabs
// Copyright (c) 2014 siddontang
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.

package proto

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"io"
	"net"
	"time"

	"github.com/pingcap/errors"
	"go.uber.org/zap"
)

const (
	defaultReaderSize = 4096
	defaultWriterSize = 4096
)

// rdbufConn buffers reads and writes over the transport. A packet that fits in
// the write buffer reaches the socket whole on flush; a larger one is passed on
// to the socket as the buffer fills.
type rdbufConn struct {
	net.Conn
	*bufio.ReadWriter
	inBytes  uint64
	outBytes uint64
}

func newRdbufConn(conn net.Conn, bufSize int) *rdbufConn {
	return &rdbufConn{
		Conn:       conn,
		ReadWriter: bufio.NewReadWriter(bufio.NewReaderSize(conn, bufSize), bufio.NewWriterSize(conn, bufSize)),
	}
}

func (f *rdbufConn) Read(b []byte) (n int, err error) {
	n, err = f.ReadWriter.Read(b)
	f.inBytes += uint64(n)
	return n, err
}

func (f *rdbufConn) Write(p []byte) (n int, err error) {
	n, err = f.ReadWriter.Write(p)
	f.outBytes += uint64(n)
	return n, err
}

// PacketIO reads and writes MySQL packets over a byte stream.
type PacketIO struct {
	readWriter *rdbufConn
	rawConn    net.Conn
	logger     *zap.Logger
	wrap       error
	sequence   uint8
}

type PacketIOption = func(*PacketIO)

func WithWrapError(err error) func(pi *PacketIO) {
	return func(pi *PacketIO) {
		pi.wrap = err
	}
}

func NewPacketIO(conn net.Conn, lg *zap.Logger, opts ...PacketIOption) *PacketIO {
	p := &PacketIO{
		rawConn:    conn,
		logger:     lg,
		sequence:   0,
		readWriter: newRdbufConn(conn, defaultReaderSize),
	}
	p.ApplyOpts(opts...)
	return p
}

func (p *PacketIO) ApplyOpts(opts ...PacketIOption) {
	for _, opt := range opts {
		opt(p)
	}
}

func (p *PacketIO) wrapErr(err error) error {
	if p.wrap == nil {
		return err
	}
	return errors.Annotate(err, p.wrap.Error())
}

func (p *PacketIO) LocalAddr() net.Addr {
	return p.readWriter.LocalAddr()
}

func (p *PacketIO) RemoteAddr() net.Addr {
	return p.readWriter.RemoteAddr()
}

// ResetSequence is called before every client-initiated command.
func (p *PacketIO) ResetSequence() {
	p.sequence = 0
}

// GetSequence is used in tests to assert that the sequences on both sides are equal.
func (p *PacketIO) GetSequence() uint8 {
	return p.sequence
}

func (p *PacketIO) readOnePacket() ([]byte, bool, error) {
	var header [4]byte
	if _, err := io.ReadFull(p.readWriter, header[:]); err != nil {
		return nil, false, errors.Annotate(err, ErrReadConn.Error())
	}
	sequence := header[3]
	if sequence != p.sequence {
		return nil, false, errors.Annotatef(ErrInvalidSequence, "expected %d, actual %d", p.sequence, sequence)
	}
	p.sequence++

	length := int(uint32(header[0]) | uint32(header[1])<<8 | uint32(header[2])<<16)
	data := make([]byte, length)
	if _, err := io.ReadFull(p.readWriter, data); err != nil {
		return nil, false, errors.Annotate(err, ErrReadConn.Error())
	}
	return data, length == MaxPayloadLen, nil
}

// ReadPacket reads a logical packet and removes the headers. Payloads spanning
// multiple frames are reassembled.
func (p *PacketIO) ReadPacket() (data []byte, err error) {
	for more := true; more; {
		var buf []byte
		buf, more, err = p.readOnePacket()
		if err != nil {
			err = p.wrapErr(err)
			return
		}
		data = append(data, buf...)
	}
	return data, nil
}

func (p *PacketIO) writeOnePacket(data []byte) (int, bool, error) {
	more := false
	length := len(data)
	if length >= MaxPayloadLen {
		// we need another packet, this is true even if
		// the current packet is of len(MaxPayloadLen) exactly
		length = MaxPayloadLen
		more = true
	}

	var header [4]byte
	header[0] = byte(length)
	header[1] = byte(length >> 8)
	header[2] = byte(length >> 16)
	header[3] = p.sequence
	p.sequence++

	if _, err := io.Copy(p.readWriter, bytes.NewReader(header[:])); err != nil {
		return 0, more, errors.Annotate(err, ErrWriteConn.Error())
	}

	if _, err := io.Copy(p.readWriter, bytes.NewReader(data[:length])); err != nil {
		return 0, more, errors.Annotate(err, ErrWriteConn.Error())
	}

	return length, more, nil
}

// WritePacket writes a logical packet, splitting it at the max payload length.
func (p *PacketIO) WritePacket(data []byte, flush bool) (err error) {
	for more := true; more; {
		var n int
		n, more, err = p.writeOnePacket(data)
		if err != nil {
			err = p.wrapErr(err)
			return
		}
		data = data[n:]
	}
	if flush {
		return p.Flush()
	}
	return nil
}

func (p *PacketIO) InBytes() uint64 {
	return p.readWriter.inBytes
}

func (p *PacketIO) OutBytes() uint64 {
	return p.readWriter.outBytes
}

func (p *PacketIO) Flush() error {
	if err := p.readWriter.Flush(); err != nil {
		return p.wrapErr(errors.Annotate(err, ErrFlushConn.Error()))
	}
	return nil
}

// SetDeadline applies to all subsequent reads and writes.
func (p *PacketIO) SetDeadline(t time.Time) error {
	return p.readWriter.SetDeadline(t)
}

func (p *PacketIO) SetReadDeadline(t time.Time) error {
	return p.readWriter.SetReadDeadline(t)
}

func (p *PacketIO) SetWriteDeadline(t time.Time) error {
	return p.readWriter.SetWriteDeadline(t)
}

// GracefulClose interrupts in-flight reads and writes.
func (p *PacketIO) GracefulClose() error {
	if err := p.readWriter.SetDeadline(time.Now()); err != nil && !stderrors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (p *PacketIO) Close() error {
	if err := p.readWriter.Close(); err != nil && !stderrors.Is(err, net.ErrClosed) {
		return p.wrapErr(errors.Annotate(err, ErrCloseConn.Error()))
	}
	return nil
}
