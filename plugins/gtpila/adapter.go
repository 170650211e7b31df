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

package gtpila

import (
	"context"
	"net"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
	"github.com/wmnsk/go-pfcp/ie"

	"github.com/contiv/gtpila/plugins/ila"
	"github.com/contiv/gtpila/plugins/ila/ilaaddr"
)

// V6 flag of the UE IP Address IE.
const ueIPFlagV6 = 0x01

// Outcome of the address assignment. Identifier is set when the address is
// an ILA address, the control plane keeps it to remove the entry later.
type Outcome struct {
	Result     ila.Result
	Identifier ilaaddr.Identifier
}

// Adapter translates session events into identifier DB operations.
type Adapter struct {
	log   logging.Logger
	ident ila.API
}

// NewAdapter creates adapter using the given ILA API.
func NewAdapter(log logging.Logger, ident ila.API) *Adapter {
	return &Adapter{log: log, ident: ident}
}

// SessionAddressAssigned handles UE IP Address IE of a session, either on its
// own or nested in a PDI / Create PDR IE. Sessions without an IPv6 address are
// skipped. A malformed IE is reported with the Skipped result, the outcome is
// still safe to pass to SessionRemoved.
func (a *Adapter) SessionAddressAssigned(ctx context.Context, ueIP *ie.IE) (Outcome, error) {
	if ueIP == nil {
		return Outcome{Result: ila.Skipped}, nil
	}
	fields, err := ueIP.UEIPAddress()
	if errors.Cause(err) == ie.ErrIENotFound {
		a.log.Debugf("IE (type %d) carries no UE IP address, no identifier entry created", ueIP.Type)
		return Outcome{Result: ila.Skipped}, nil
	}
	if err != nil {
		// nothing was written, the outcome must not trigger a remove
		a.log.Warnf("Invalid UE IP address IE (type %d): %v", ueIP.Type, err)
		return Outcome{Result: ila.Skipped}, errors.Wrap(err, "invalid UE IP address")
	}
	if fields.Flags&ueIPFlagV6 == 0 || fields.IPv6Address == nil {
		a.log.Debugf("UE IP address %v has no IPv6 address, no identifier entry created", fields.IPv4Address)
		return Outcome{Result: ila.Skipped}, nil
	}
	return a.AddressAssigned(ctx, fields.IPv6Address)
}

// AddressAssigned creates identifier entry for the address if it is an ILA
// address.
func (a *Adapter) AddressAssigned(ctx context.Context, addr net.IP) (Outcome, error) {
	result, id, err := a.ident.CreateIdent(ctx, addr)
	if err != nil {
		a.log.Warnf("UE address %v: identifier %v not created: %v", addr, id, err)
		return Outcome{Result: result, Identifier: id}, err
	}
	if result == ila.Created {
		a.log.Debugf("UE address %v: identifier %v mapped to locID %d", addr, id, a.ident.GetLocID())
	}
	return Outcome{Result: result, Identifier: id}, nil
}

// SessionRemoved removes identifier entry of the session. Entries of failed
// creates are removed too, the write may have reached the DB before it timed
// out. The DB operation is bounded by the ILA operation timeout; a failure
// leaves a stale entry, it is logged and returned for reporting only.
func (a *Adapter) SessionRemoved(ctx context.Context, outcome Outcome) error {
	if outcome.Result == ila.Skipped {
		return nil
	}
	err := a.ident.RemoveIdent(ctx, outcome.Identifier)
	if err != nil {
		a.log.Warnf("Session removed, identifier %v left stale in the DB: %v", outcome.Identifier, err)
	}
	return err
}
