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

	"github.com/contiv/gtpila/plugins/ila/ilaaddr"
)

// API defines methods provided by the ILA plugin for use by the GTP
// session handling.
type API interface {
	// CreateIdent creates (or replaces) the identifier entry for a UE address.
	// Skipped is returned for addresses that are not ILA addresses.
	CreateIdent(ctx context.Context, addr net.IP) (Result, ilaaddr.Identifier, error)

	// RemoveIdent removes the identifier entry. Removing a missing entry
	// is not an error.
	RemoveIdent(ctx context.Context, id ilaaddr.Identifier) error

	// LookupIdent reads the identifier entry.
	LookupIdent(ctx context.Context, id ilaaddr.Identifier) (entry *Entry, found bool, err error)

	// GetLocID returns the locator id of this node.
	GetLocID() uint64
}

// Result of CreateIdent.
type Result int

const (
	// Skipped means the address is not an ILA address and no entry was created.
	Skipped Result = iota
	// Created means the entry was written.
	Created
	// Failed means the address is an ILA address but the entry could not
	// be written.
	Failed
)

// String returns "skipped", "created" or "failed".
func (r Result) String() string {
	switch r {
	case Skipped:
		return "skipped"
	case Created:
		return "created"
	case Failed:
		return "failed"
	}
	return "unknown"
}
