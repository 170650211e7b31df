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
	"context"
	"net"
	"time"

	"github.com/ligato/cn-infra/infra"
	prometheusplugin "github.com/ligato/cn-infra/rpc/prometheus"
	"github.com/ligato/cn-infra/rpc/rest"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/contiv/gtpila/plugins/ila/identdb"
	"github.com/contiv/gtpila/plugins/ila/ilaaddr"
)

// Plugin maintains identifier entries of the UE sessions handled by this
// node in the identifier DB.
type Plugin struct {
	Deps

	config  *Config
	metrics *Metrics
	mapper  *Mapper
}

// Deps lists dependencies of the ILA plugin.
type Deps struct {
	infra.PluginDeps

	// optional
	HTTPHandlers rest.HTTPHandlers
	Prometheus   prometheusplugin.API

	// Driver overrides the backend selected by name in the configuration.
	Driver identdb.Driver
}

// Init loads the configuration, starts the identifier DB and writes the
// configured test addresses. Any failure is fatal, the plugin never runs
// with a partially initialized DB.
func (p *Plugin) Init() error {
	p.config = defaultConfig()
	if err := p.loadConfig(p.config); err != nil {
		return err
	}
	if err := p.config.validate(); err != nil {
		return errors.Wrapf(err, "invalid %v configuration", p.PluginName)
	}
	p.Log.Infof("Got parameter locID %d", p.config.LocID)
	p.Log.Infof("Got parameter backend %s, dbParms %s", p.config.Backend, identdb.RedactOptions(p.config.DBParms))

	p.metrics = NewMetrics()
	p.mapper = NewMapper(p.Log, p.config.LocID,
		WithTimeout(time.Duration(p.config.OpTimeout)),
		WithMetrics(p.metrics))

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(p.config.StartTimeout))
	defer cancel()

	backend := p.config.backendConfig()
	backend.Driver = p.Driver
	if err := p.mapper.Start(ctx, backend); err != nil {
		return errors.Wrap(err, "unable to start identifier DB")
	}

	for _, addr := range p.config.TestAddrs {
		if err := p.mapper.TestWrite(context.Background(), addr); err != nil {
			p.mapper.Stop()
			return errors.Wrap(err, "unable to test write identifier DB")
		}
		p.Log.Infof("Set up test address %s", addr)
	}
	return nil
}

// AfterInit registers REST handlers and metrics.
func (p *Plugin) AfterInit() error {
	p.registerHandlers()
	return p.registerMetrics()
}

// Close stops the identifier DB connection.
func (p *Plugin) Close() error {
	if p.mapper == nil {
		return nil
	}
	return p.mapper.Stop()
}

// CreateIdent creates (or replaces) the identifier entry for a UE address.
func (p *Plugin) CreateIdent(ctx context.Context, addr net.IP) (Result, ilaaddr.Identifier, error) {
	return p.mapper.CreateMapping(ctx, addr)
}

// RemoveIdent removes the identifier entry.
func (p *Plugin) RemoveIdent(ctx context.Context, id ilaaddr.Identifier) error {
	return p.mapper.RemoveMapping(ctx, id)
}

// LookupIdent reads the identifier entry.
func (p *Plugin) LookupIdent(ctx context.Context, id ilaaddr.Identifier) (*Entry, bool, error) {
	return p.mapper.LookupMapping(ctx, id)
}

// GetLocID returns the locator id of this node.
func (p *Plugin) GetLocID() uint64 {
	return p.mapper.LocID()
}

// loadConfig loads configuration file.
func (p *Plugin) loadConfig(config *Config) error {
	if p.Cfg == nil {
		return errors.Errorf("%v configuration is not available", p.PluginName)
	}
	found, err := p.Cfg.LoadValue(config)
	if err != nil {
		return errors.Wrapf(err, "failed to load %v configuration", p.PluginName)
	} else if !found {
		return errors.Errorf("%v configuration not found", p.PluginName)
	}
	p.Log.Debugf("%v config found: %+v", p.PluginName, config.redacted())
	return nil
}

// registerMetrics creates a registry for the plugin metrics.
func (p *Plugin) registerMetrics() error {
	if p.Prometheus == nil {
		p.Log.Warn("No prometheus plugin provided, ILA metrics will not be exposed")
		return nil
	}
	err := p.Prometheus.NewRegistry(prometheusMetricsPath,
		promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError, ErrorLog: p.Log})
	if err != nil {
		return err
	}
	for _, collector := range p.metrics.Collectors() {
		if err := p.Prometheus.Register(prometheusMetricsPath, collector); err != nil {
			p.Log.Errorf("failed to register metric %v", err)
			return err
		}
	}
	return nil
}
