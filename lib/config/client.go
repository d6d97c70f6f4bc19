// Copyright 2023 PingCAP, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
	"github.com/pingcap/tidb/pkg/parser/charset"
	"github.com/pingcap/tidb/pkg/parser/mysql"
)

var (
	ErrInvalidConfigValue = errors.New("invalid config value")
)

const (
	DefaultPort = "3306"
)

// Client is the configuration of one client connection.
type Client struct {
	// Addr is the server endpoint, host:port.
	Addr     string `yaml:"addr,omitempty" toml:"addr,omitempty" json:"addr,omitempty"`
	Username string `yaml:"username,omitempty" toml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" toml:"password,omitempty" json:"password,omitempty"`
	// DB is the default schema. Empty means none.
	DB string `yaml:"db,omitempty" toml:"db,omitempty" json:"db,omitempty"`
	// Collation is a collation name, e.g. utf8mb4_general_ci. It decides the
	// character set id sent during the handshake.
	Collation string `yaml:"collation,omitempty" toml:"collation,omitempty" json:"collation,omitempty"`
	// CapabilityFlags is OR'd into the required client capabilities.
	CapabilityFlags uint32   `yaml:"capability-flags,omitempty" toml:"capability-flags,omitempty" json:"capability-flags,omitempty"`
	Retry           Retry    `yaml:"retry,omitempty" toml:"retry,omitempty" json:"retry,omitempty"`
	Timeouts        Timeouts `yaml:"timeouts,omitempty" toml:"timeouts,omitempty" json:"timeouts,omitempty"`

	collationID uint8
}

// Retry controls dialing retries.
type Retry struct {
	Interval time.Duration `yaml:"interval,omitempty" toml:"interval,omitempty" json:"interval,omitempty"`
	Cnt      uint64        `yaml:"cnt,omitempty" toml:"cnt,omitempty" json:"cnt,omitempty"`
}

// Timeouts are mapped onto transport deadlines.
type Timeouts struct {
	Dial  time.Duration `yaml:"dial,omitempty" toml:"dial,omitempty" json:"dial,omitempty"`
	Read  time.Duration `yaml:"read,omitempty" toml:"read,omitempty" json:"read,omitempty"`
	Write time.Duration `yaml:"write,omitempty" toml:"write,omitempty" json:"write,omitempty"`
}

func NewClient() *Client {
	return &Client{
		Addr:      "127.0.0.1:" + DefaultPort,
		Collation: mysql.DefaultCollationName,
		Retry: Retry{
			Interval: 1 * time.Second,
			Cnt:      3,
		},
		Timeouts: Timeouts{
			Dial: 5 * time.Second,
		},
	}
}

// LoadClientFile reads the configuration from a TOML file over the defaults.
func LoadClientFile(path string) (*Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cfg := NewClient()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Check validates the config and resolves derived fields.
func (cfg *Client) Check() error {
	if len(cfg.Addr) == 0 {
		return errors.Annotate(ErrInvalidConfigValue, "addr is empty")
	}
	if len(cfg.Collation) == 0 {
		cfg.Collation = mysql.DefaultCollationName
	}
	collation, err := charset.GetCollationByName(cfg.Collation)
	if err != nil {
		return errors.Annotatef(ErrInvalidConfigValue, "unknown collation %s", cfg.Collation)
	}
	cfg.collationID = uint8(collation.ID)
	return nil
}

// CollationID returns the character set id resolved by Check.
func (cfg *Client) CollationID() uint8 {
	if cfg.collationID == 0 {
		return uint8(mysql.DefaultCollationID)
	}
	return cfg.collationID
}
