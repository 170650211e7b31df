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

// gtpila-agent runs the ILA plugin next to a GTP gateway. It connects to the
// identifier DB configured in ila.conf (flag -ila-config or env ILA_CONFIG),
// writes the configured test addresses and serves the identifier REST API
// and metrics. The agent exits if the identifier DB cannot be set up.
package main
