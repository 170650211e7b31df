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

// Package identdb defines the contract between the ILA mapping service and
// the key-value store holding identifier entries, together with the
// registry of backends that implement it.
//
// A backend is picked by name at startup:
//
//	driver, err := identdb.Lookup("redis")
//	conn, err := driver.Init(log, host, port)
//	err = conn.Configure(options)
//	err = conn.Start(ctx)
//
// Backends register themselves from init(), the binary selects which are
// available by importing their packages.
package identdb
