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

package main

import (
	"github.com/ligato/cn-infra/agent"
	"github.com/ligato/cn-infra/health/probe"
	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/ligato/cn-infra/servicelabel"

	"github.com/contiv/gtpila/plugins/ila"

	// identifier DB backends selectable in ila.conf
	_ "github.com/contiv/gtpila/plugins/ila/identdb/etcd"
	_ "github.com/contiv/gtpila/plugins/ila/identdb/redis"
)

// MicroserviceLabel is the default label of the agent.
const MicroserviceLabel = "gtpila"

// GtpIlaAgent maintains ILA identifier entries of UE sessions of this node.
type GtpIlaAgent struct {
	ServiceLabel servicelabel.ReaderAPI
	HealthProbe  *probe.Plugin
	ILA          *ila.Plugin
}

func (a *GtpIlaAgent) String() string {
	return "GTP-ILA"
}

// Init is called at startup phase. Method added in order to implement Plugin interface.
func (a *GtpIlaAgent) Init() error {
	return nil
}

// Close is called at cleanup phase. Method added in order to implement Plugin interface.
func (a *GtpIlaAgent) Close() error {
	return nil
}

func main() {

	servicelabel.DefaultPlugin.MicroserviceLabel = MicroserviceLabel

	gtpIla := &GtpIlaAgent{
		ServiceLabel: &servicelabel.DefaultPlugin,
		HealthProbe:  &probe.DefaultPlugin,
		ILA:          &ila.DefaultPlugin,
	}

	a := agent.NewAgent(agent.AllPlugins(gtpIla))
	if err := a.Run(); err != nil {
		logrus.DefaultLogger().Fatal(err)
	}
}
