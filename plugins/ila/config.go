// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ila

import (
	"time"

	"github.com/pkg/errors"

	"github.com/contiv/gtpila/plugins/ila/identdb"
	"github.com/contiv/gtpila/plugins/ila/identdb/redis"
)

const (
	defaultBackend      = redis.Name
	defaultStartTimeout = 10 * time.Second
)

// Config represents configuration of the ILA plugin.
// The path to the configuration file can be specified in two ways:
//  - using the `-ila-config=<path to config>` argument, or
//  - using the `ILA_CONFIG=<path to config>` environment variable
type Config struct {
	// locator id of this node, stored with every identifier entry
	LocID uint64 `json:"locID"`

	// identifier DB backend and its endpoint, host and port default
	// to the backend defaults
	Backend string `json:"backend"`
	Host    string `json:"host"`
	Port    uint16 `json:"port"`

	// backend specific options, e.g. "{password: secret, db: 1}"
	DBParms string `json:"dbParms"`

	// addresses written into the DB once the connection is started
	TestAddrs []string `json:"testAddrs"`

	OpTimeout    identdb.Duration `json:"opTimeout"`
	StartTimeout identdb.Duration `json:"startTimeout"`
}

// defaultConfig returns configuration with all defaults filled in.
func defaultConfig() *Config {
	return &Config{
		Backend:      defaultBackend,
		OpTimeout:    identdb.Duration(DefaultOpTimeout),
		StartTimeout: identdb.Duration(defaultStartTimeout),
	}
}

// validate checks mandatory fields.
func (cfg *Config) validate() error {
	if cfg.LocID == 0 {
		return errors.New("locID must be configured")
	}
	if cfg.Backend == "" {
		return errors.New("backend must be configured")
	}
	if cfg.OpTimeout <= 0 || cfg.StartTimeout <= 0 {
		return errors.Errorf("timeouts must be positive (opTimeout: %v, startTimeout: %v)",
			time.Duration(cfg.OpTimeout), time.Duration(cfg.StartTimeout))
	}
	return nil
}

// backendConfig returns mapper backend configuration.
func (cfg *Config) backendConfig() BackendConfig {
	return BackendConfig{
		Name:    cfg.Backend,
		Host:    cfg.Host,
		Port:    cfg.Port,
		Options: cfg.DBParms,
	}
}

// redacted returns copy of the configuration safe to log or expose.
func (cfg *Config) redacted() Config {
	redacted := *cfg
	redacted.DBParms = identdb.RedactOptions(cfg.DBParms)
	return redacted
}
