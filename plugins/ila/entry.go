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
	"encoding/binary"
	"fmt"
	"net"

	"github.com/pkg/errors"

	"github.com/contiv/gtpila/plugins/ila/ilaaddr"
)

// The layout of keys and values is shared with the Linux ILA tooling,
// which writes its C structures with x86 byte order:
//
//	key:   identifier number (8 bytes, little-endian)
//	value: address (16 bytes, network order) | locator id (8 bytes, little-endian)
const (
	keyLen   = 8
	valueLen = net.IPv6len + 8
)

// Entry is the value stored in the identifier DB for one identifier.
type Entry struct {
	Address net.IP `json:"address"`
	LocID   uint64 `json:"locID"`
}

// String returns human readable representation of the entry.
func (e *Entry) String() string {
	return fmt.Sprintf("{address: %v, locID: %d}", e.Address, e.LocID)
}

// MarshalBinary encodes the entry into the DB value format.
func (e *Entry) MarshalBinary() ([]byte, error) {
	addr := e.Address.To16()
	if addr == nil {
		return nil, errors.Errorf("invalid entry address %v", e.Address)
	}
	value := make([]byte, valueLen)
	copy(value, addr)
	binary.LittleEndian.PutUint64(value[net.IPv6len:], e.LocID)
	return value, nil
}

// UnmarshalBinary decodes the entry from the DB value format.
func (e *Entry) UnmarshalBinary(value []byte) error {
	if len(value) != valueLen {
		return errors.Errorf("invalid entry length %d (expected %d)", len(value), valueLen)
	}
	e.Address = append(net.IP(nil), value[:net.IPv6len]...)
	e.LocID = binary.LittleEndian.Uint64(value[net.IPv6len:])
	return nil
}

// EncodeKey returns the DB key of the identifier.
func EncodeKey(id ilaaddr.Identifier) []byte {
	key := make([]byte, keyLen)
	binary.LittleEndian.PutUint64(key, uint64(id))
	return key
}

// DecodeKey is the inverse of EncodeKey.
func DecodeKey(key []byte) (ilaaddr.Identifier, error) {
	if len(key) != keyLen {
		return 0, errors.Errorf("invalid key length %d (expected %d)", len(key), keyLen)
	}
	return ilaaddr.Identifier(binary.LittleEndian.Uint64(key)), nil
}
