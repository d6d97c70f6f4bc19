// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package proto

const (
	// MaxPayloadLen is the max packet payload length.
	MaxPayloadLen = 1<<24 - 1
)

const (
	// ShaCommand prefixes a caching_sha2_password extra round.
	ShaCommand = 1
	// FastAuthOK and FastAuthFail are caching_sha2_password fast-path results.
	FastAuthOK   = 3
	FastAuthFail = 4
)
