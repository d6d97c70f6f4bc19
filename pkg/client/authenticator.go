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
	"fmt"

	"github.com/pingcap/errors"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	"github.com/pingcap/timysql/pkg/proto"
	"github.com/pingcap/timysql/pkg/util/passwd"
	"github.com/siddontang/go/hack"
)

// requiredCapabilities must be granted by every server this client talks to.
const requiredCapabilities = proto.ClientProtocol41 | proto.ClientPluginAuth | proto.ClientSecureConnection

// defaultCapabilities are requested on top of the required ones and of
// whatever the configuration adds; the server may refuse any of them.
const defaultCapabilities = proto.ClientLongPassword | proto.ClientLongFlag | proto.ClientTransactions |
	proto.ClientDeprecateEOF | proto.ClientConnectAttrs

// Authenticator runs the connection phase against the server.
type authenticator struct {
	attrs      map[string]string
	user       string
	password   string
	dbname     string
	authPlugin string
	salt       []byte
	// capability flags requested by the configuration, OR'd into the defaults.
	extraCapability proto.Capability
	capability      proto.Capability
	collation       uint8
}

func (auth *authenticator) String() string {
	return fmt.Sprintf("user:%s, dbname:%s, capability:%d, collation:%d",
		auth.user, auth.dbname, auth.capability, auth.collation)
}

// handshake reads the server greeting, answers it and loops until the server
// accepts or rejects the credentials. It is the only place where local
// recovery (auth switch, more data) is attempted.
func (auth *authenticator) handshake(packetIO *proto.PacketIO) (*proto.InitialHandshake, error) {
	serverPkt, err := packetIO.ReadPacket()
	if err != nil {
		return nil, err
	}
	if proto.IsErrorPacket(serverPkt) {
		return nil, proto.ParseErrorPacket(serverPkt)
	}
	hs, err := proto.ParseInitialHandshake(serverPkt)
	if err != nil {
		return nil, err
	}
	if hs.Capability&proto.ClientProtocol41 == 0 {
		return nil, errors.WithStack(proto.ErrUnsupportedProtocol)
	}

	requested := requiredCapabilities | defaultCapabilities | auth.extraCapability
	if len(auth.dbname) > 0 {
		requested |= proto.ClientConnectWithDB
	}
	auth.capability = requested&hs.Capability | requiredCapabilities

	auth.authPlugin = hs.AuthPlugin
	if len(auth.authPlugin) == 0 {
		auth.authPlugin = mysql.AuthCachingSha2Password
	}
	auth.salt = hs.AuthPluginData

	authData, err := auth.calcAuthData()
	if err != nil {
		return nil, err
	}
	resp := &proto.HandshakeResp{
		User:       auth.user,
		DB:         auth.dbname,
		AuthPlugin: auth.authPlugin,
		AuthData:   authData,
		Capability: auth.capability,
		Collation:  auth.collation,
	}
	if auth.capability&proto.ClientConnectAttrs != 0 {
		resp.Attrs = auth.attrs
	}
	if err := packetIO.WritePacket(proto.MakeHandshakeResponse(resp), true); err != nil {
		return nil, err
	}

	for {
		serverPkt, err = packetIO.ReadPacket()
		if err != nil {
			return nil, err
		}
		switch proto.Header(serverPkt[0]) {
		case proto.OKHeader:
			return hs, nil
		case proto.ErrHeader:
			return nil, proto.ParseErrorPacket(serverPkt)
		case proto.AuthSwitchHeader:
			// The challenge is re-run under the plugin and plugin data carried
			// by the switch request.
			req, err := proto.ParseAuthSwitchRequest(serverPkt)
			if err != nil {
				return nil, err
			}
			auth.authPlugin = req.Plugin
			auth.salt = req.Data
			if authData, err = auth.calcAuthData(); err != nil {
				return nil, err
			}
			if err = packetIO.WritePacket(authData, true); err != nil {
				return nil, err
			}
		case proto.AuthMoreDataHeader:
			if len(serverPkt) == 2 && serverPkt[1] == proto.FastAuthOK {
				// caching_sha2_password fast path succeeded, an OK follows.
				continue
			}
			auth.salt = serverPkt[1:]
			if authData, err = auth.calcAuthData(); err != nil {
				return nil, err
			}
			if err = packetIO.WritePacket(authData, true); err != nil {
				return nil, err
			}
		default:
			return nil, errors.Annotatef(proto.ErrUnexpectedPacket, "header %#x during handshake", serverPkt[0])
		}
	}
}

func (auth *authenticator) calcAuthData() ([]byte, error) {
	switch auth.authPlugin {
	case mysql.AuthNativePassword, mysql.AuthCachingSha2Password:
	default:
		return nil, errors.Annotate(proto.ErrUnsupportedAuthPlugin, auth.authPlugin)
	}
	if len(auth.password) == 0 {
		return nil, nil
	}
	authData, err := passwd.CalcAuthData(auth.authPlugin, auth.salt, hack.Slice(auth.password))
	if err != nil {
		return nil, errors.Annotate(proto.ErrUnsupportedAuthPlugin, auth.authPlugin)
	}
	return authData, nil
}
