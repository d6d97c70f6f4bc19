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

package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapabilityString(t *testing.T) {
	caps := ClientProtocol41 | ClientDeprecateEOF
	require.Equal(t, "CLIENT_PROTOCOL_41|CLIENT_DEPRECATE_EOF", caps.String())

	var parsed Capability
	require.NoError(t, parsed.UnmarshalText([]byte(caps.String())))
	require.Equal(t, caps, parsed)
}

func TestCommandString(t *testing.T) {
	require.Equal(t, "Query", ComQuery.String())
	require.Equal(t, "StmtExecute", ComStmtExecute.String())
	require.Equal(t, "Ping", ComPing.String())
}
