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
	"testing"
	"time"

	"github.com/pingcap/tidb/pkg/parser/mysql"
	"github.com/pingcap/timysql/lib/config"
	"github.com/pingcap/timysql/lib/util/logger"
	"github.com/pingcap/timysql/lib/util/waitgroup"
	"github.com/pingcap/timysql/pkg/proto"
	"github.com/pingcap/timysql/pkg/util/passwd"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testSalt = []byte{10, 47, 74, 111, 75, 73, 34, 48, 88, 76, 114, 74, 37, 13, 3, 80, 82, 2, 23, 21}

const defaultServerCapability = proto.ClientLongPassword | proto.ClientLongFlag | proto.ClientProtocol41 |
	proto.ClientTransactions | proto.ClientSecureConnection | proto.ClientPluginAuth |
	proto.ClientConnectWithDB | proto.ClientConnectAttrs | proto.ClientDeprecateEOF

type mockServer struct {
	t        *testing.T
	listener net.Listener
	wg       waitgroup.WaitGroup
	lg       *zap.Logger
	// capability advertised in the initial handshake
	capability proto.Capability
	authPlugin string
}

func startMockServer(t *testing.T, handler func(*testing.T, *mockServer, *proto.PacketIO)) (*mockServer, *config.Client) {
	lg, _ := logger.CreateLoggerForTest(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &mockServer{
		t:          t,
		listener:   listener,
		lg:         lg,
		capability: defaultServerCapability,
		authPlugin: mysql.AuthCachingSha2Password,
	}
	srv.wg.Run(func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		if ddl, ok := t.Deadline(); ok {
			require.NoError(t, conn.SetDeadline(ddl))
		}
		packetIO := proto.NewPacketIO(conn, lg)
		handler(t, srv, packetIO)
		_ = packetIO.Close()
	})

	cfg := config.NewClient()
	cfg.Addr = listener.Addr().String()
	cfg.Username = "u_test"
	cfg.Password = "secret"
	cfg.Retry.Interval = 10 * time.Millisecond
	return srv, cfg
}

func (srv *mockServer) close() {
	require.NoError(srv.t, srv.listener.Close())
	srv.wg.Wait()
}

// greet writes the initial handshake and authenticates the client, checking
// the challenge response against the scramble of the advertised plugin.
func (srv *mockServer) greet(t *testing.T, packetIO *proto.PacketIO, password string) *proto.HandshakeResp {
	require.NoError(t, packetIO.WriteInitialHandshake(srv.capability, testSalt, srv.authPlugin, mysql.ServerVersion, 100))
	pkt, err := packetIO.ReadPacket()
	require.NoError(t, err)
	resp, err := proto.ParseHandshakeResponse(pkt)
	require.NoError(t, err)
	if len(password) == 0 {
		require.Empty(t, resp.AuthData)
	} else {
		expected, err := passwd.CalcAuthData(srv.authPlugin, testSalt, []byte(password))
		require.NoError(t, err)
		require.Equal(t, expected, resp.AuthData)
	}
	require.NoError(t, packetIO.WriteOKPacket(mysql.ServerStatusAutocommit, proto.OKHeader))
	return resp
}

// readCommand resets the per-command sequence and returns the next request.
func (srv *mockServer) readCommand(t *testing.T, packetIO *proto.PacketIO) []byte {
	packetIO.ResetSequence()
	pkt, err := packetIO.ReadPacket()
	require.NoError(t, err)
	return pkt
}

func testConnect(t *testing.T, cfg *config.Client) (*Conn, error) {
	lg, _ := logger.CreateLoggerForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return Connect(ctx, cfg, lg)
}
