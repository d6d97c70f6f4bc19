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
	"context"
	"net"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/timysql/lib/config"
	"github.com/pingcap/timysql/lib/util/retry"
	"github.com/pingcap/timysql/pkg/metrics"
	"github.com/pingcap/timysql/pkg/proto"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	clientName    = "timysql"
	clientVersion = "1.0.0"
)

// Conn is a single connection to a server. It is single-owner: operations are
// strictly sequential and a result set must be drained before the next
// command is issued.
type Conn struct {
	logger        *zap.Logger
	cfg           *config.Client
	packetIO      *proto.PacketIO
	fatalErr      atomic.Error
	serverVersion string
	capability    proto.Capability
	connID        uint32
	status        uint16
	inResultSet   bool
	closed        atomic.Bool
}

// Connect dials the server and runs the connection phase.
func Connect(ctx context.Context, cfg *config.Client, lg *zap.Logger) (*Conn, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	dialer := net.Dialer{Timeout: cfg.Timeouts.Dial}
	var netConn net.Conn
	err := retry.Retry(func() error {
		var err error
		netConn, err = dialer.DialContext(ctx, "tcp", cfg.Addr)
		return err
	}, ctx, cfg.Retry.Interval, cfg.Retry.Cnt)
	if err != nil {
		return nil, errors.Annotatef(err, "dial %s", cfg.Addr)
	}

	c := &Conn{
		logger:   lg.With(zap.String("addr", cfg.Addr)),
		cfg:      cfg,
		packetIO: proto.NewPacketIO(netConn, lg),
	}
	auth := &authenticator{
		user:            cfg.Username,
		password:        cfg.Password,
		dbname:          cfg.DB,
		collation:       cfg.CollationID(),
		extraCapability: proto.Capability(cfg.CapabilityFlags),
		attrs: map[string]string{
			"_client_name":    clientName,
			"_client_version": clientVersion,
		},
	}
	start := time.Now()
	hs, err := auth.handshake(c.packetIO)
	if err != nil {
		if closeErr := c.packetIO.Close(); closeErr != nil {
			c.logger.Warn("close connection failed", zap.Error(closeErr))
		}
		return nil, err
	}
	metrics.HandshakeDurationHistogram.Observe(time.Since(start).Seconds())
	metrics.ConnGauge.Inc()

	c.capability = auth.capability
	c.serverVersion = hs.ServerVersion
	c.connID = hs.ConnID
	c.status = hs.Status
	c.logger.Debug("connected",
		zap.String("server_version", c.serverVersion),
		zap.Uint32("conn_id", c.connID),
		zap.Stringer("capability", c.capability))
	return c, nil
}

// ServerVersion reports the version from the initial handshake.
func (c *Conn) ServerVersion() string {
	return c.serverVersion
}

// ConnID reports the server-assigned connection id.
func (c *Conn) ConnID() uint32 {
	return c.connID
}

// Status reports the last server status flags.
func (c *Conn) Status() uint16 {
	return c.status
}

// Capability reports the negotiated capability flags.
func (c *Conn) Capability() proto.Capability {
	return c.capability
}

// beginCommand checks the connection state and resets the sequence counter.
func (c *Conn) beginCommand() error {
	if c.closed.Load() {
		return errors.WithStack(ErrConnClosed)
	}
	if err := c.fatalErr.Load(); err != nil {
		return errors.Annotate(ErrConnPoisoned, err.Error())
	}
	if c.inResultSet {
		return errors.WithStack(ErrResultSetPending)
	}
	if c.cfg.Timeouts.Read > 0 {
		if err := c.packetIO.SetReadDeadline(time.Now().Add(c.cfg.Timeouts.Read)); err != nil {
			return errors.WithStack(err)
		}
	}
	if c.cfg.Timeouts.Write > 0 {
		if err := c.packetIO.SetWriteDeadline(time.Now().Add(c.cfg.Timeouts.Write)); err != nil {
			return errors.WithStack(err)
		}
	}
	c.packetIO.ResetSequence()
	return nil
}

// finishCommand records metrics and poisons the connection on protocol and
// I/O failures. Server errors leave the connection usable.
func (c *Conn) finishCommand(cmd proto.Command, start time.Time, err error) error {
	result := metrics.LblOK
	if err != nil {
		result = metrics.LblError
		if !proto.IsSQLError(err) {
			c.fatalErr.Store(err)
			c.inResultSet = false
		}
	}
	metrics.CommandCounter.WithLabelValues(cmd.String(), result).Inc()
	metrics.CommandDurationHistogram.WithLabelValues(cmd.String()).Observe(time.Since(start).Seconds())
	return err
}

// readOKOrErr consumes the terminal packet of a simple command.
func (c *Conn) readOKOrErr() (*proto.OK, error) {
	data, err := c.packetIO.ReadPacket()
	if err != nil {
		return nil, err
	}
	switch {
	case proto.IsOKPacket(data):
		ok, err := proto.ParseOKPacket(data)
		if err != nil {
			return nil, err
		}
		c.status = ok.Status
		return ok, nil
	case proto.IsErrorPacket(data):
		return nil, proto.ParseErrorPacket(data)
	}
	return nil, errors.Annotatef(proto.ErrUnexpectedPacket, "header %#x", data[0])
}

// Ping checks that the server is alive.
func (c *Conn) Ping() error {
	if err := c.beginCommand(); err != nil {
		return err
	}
	start := time.Now()
	err := c.packetIO.WritePacket([]byte{proto.ComPing.Byte()}, true)
	if err == nil {
		_, err = c.readOKOrErr()
	}
	return c.finishCommand(proto.ComPing, start, err)
}

// Close sends COM_QUIT on a best-effort basis and shuts the transport down.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.fatalErr.Load() == nil && !c.inResultSet {
		c.packetIO.ResetSequence()
		if err := c.packetIO.WritePacket([]byte{proto.ComQuit.Byte()}, true); err != nil {
			c.logger.Debug("sending quit failed", zap.Error(err))
		}
	}
	metrics.ConnGauge.Dec()
	metrics.InboundBytesCounter.Add(float64(c.packetIO.InBytes()))
	metrics.OutboundBytesCounter.Add(float64(c.packetIO.OutBytes()))
	return c.packetIO.Close()
}
