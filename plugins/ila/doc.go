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

// Package ila implements the GTP-ILA identifier mapping service. For each UE
// session with an ILA address the service stores the identifier of the
// address together with the address itself and the locator id of this node
// into the identifier DB, from where the other ILA nodes resolve identifiers
// to locators.
//
// The identifier DB is reached through one of the identdb backends, selected
// by name in the plugin configuration file (ila.conf):
//
//	locID: 42
//	backend: redis
//	host: "::1"
//	port: 6380
//	dbParms: "{password: secret}"
//	testAddrs:
//	  - "2001:db8:1:2:2000::1"
//	opTimeout: 300ms
package ila
