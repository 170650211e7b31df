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

// Package gtpila connects the UE session lifecycle of a GTP gateway to the
// ILA identifier DB.
//
// When a session gets an IPv6 address that is an ILA address, an identifier
// entry pointing to this node is created; when the session is removed, the
// entry is removed again. Address assignment may fail if the entry cannot be
// written (the caller decides), session removal never blocks on the DB.
package gtpila
