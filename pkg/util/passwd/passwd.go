// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package passwd

import (
	"crypto/sha1"
	"crypto/sha256"

	"github.com/pingcap/errors"
	"github.com/pingcap/tidb/pkg/parser/mysql"
)

var (
	ErrUnknownPlugin = errors.New("unknown auth plugin")
)

// CalcAuthData computes the challenge response for the given plugin.
func CalcAuthData(authPlugin string, scramble, password []byte) ([]byte, error) {
	switch authPlugin {
	case mysql.AuthNativePassword:
		return CalcNativePassword(scramble, password), nil
	case mysql.AuthCachingSha2Password:
		return CalcCachingSha2Password(scramble, password), nil
	}
	return nil, errors.Annotate(ErrUnknownPlugin, authPlugin)
}

// CalcNativePassword computes the mysql_native_password response:
// SHA1(password) XOR SHA1(scramble + SHA1(SHA1(password))).
func CalcNativePassword(scramble, password []byte) []byte {
	crypt := sha1.New()
	crypt.Write(password)
	stage1 := crypt.Sum(nil)

	// inner hash
	crypt.Reset()
	crypt.Write(stage1)
	hash := crypt.Sum(nil)

	// outer hash
	crypt.Reset()
	crypt.Write(scramble)
	crypt.Write(hash)
	message := crypt.Sum(nil)

	for i := range message {
		message[i] ^= stage1[i]
	}
	return message
}

// CalcCachingSha2Password computes the caching_sha2_password response:
// SHA256(password) XOR SHA256(SHA256(SHA256(password)) + scramble).
// The result is always the full 32-byte XOR; whether an empty password maps
// to an empty auth response is decided by the connection phase, not here.
func CalcCachingSha2Password(scramble, password []byte) []byte {
	crypt := sha256.New()
	crypt.Write(password)
	stage1 := crypt.Sum(nil)

	crypt.Reset()
	crypt.Write(stage1)
	hash := crypt.Sum(nil)

	crypt.Reset()
	crypt.Write(hash)
	crypt.Write(scramble)
	message2 := crypt.Sum(nil)

	for i := range stage1 {
		stage1[i] ^= message2[i]
	}
	return stage1
}
