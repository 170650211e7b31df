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

// Package ilaaddr decodes the identifier and locator halves of an ILA
// (Identifier-Locator Addressing) IPv6 address that uses the 64/64 split.
//
// Layout of the address (network byte order):
//
//	 0                   63 64                 127
//	+----------------------+----------------------+
//	|       locator        |      identifier      |
//	+----------------------+----------------------+
//
// The first byte of the identifier carries the identifier type (3 bits) and
// the checksum-neutral flag (1 bit):
//
//	  7 6 5   4   3 2 1 0
//	+-------+---+---------+
//	| type  | C |         |
//	+-------+---+---------+
//
// An identifier of type IID is a plain interface identifier, i.e. the address
// is not an ILA address.
package ilaaddr
