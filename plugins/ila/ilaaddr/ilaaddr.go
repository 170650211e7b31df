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

package ilaaddr

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// locatorOffset is the offset of the locator in a 16-byte address.
	locatorOffset = 0

	// identifierOffset is the offset of the identifier in a 16-byte address.
	identifierOffset = 8

	typeShift           = 61
	typeMask            = 0x7
	checksumNeutralFlag = uint64(1) << 60
)

// Type is the ILA identifier type.
type Type uint8

// Identifier types, same numbering as the Linux ILA implementation.
const (
	TypeIID Type = iota
	TypeLUID
	TypeVirtV4
	TypeVirtUniV6
	TypeVirtMultiV6
	TypeNonLocalAddr
)

var typeNames = map[Type]string{
	TypeIID:          "iid",
	TypeLUID:         "luid",
	TypeVirtV4:       "virt-v4",
	TypeVirtUniV6:    "virt-uni-v6",
	TypeVirtMultiV6:  "virt-multi-v6",
	TypeNonLocalAddr: "non-local-addr",
}

// String returns human readable name of the identifier type.
func (t Type) String() string {
	if name, known := typeNames[t]; known {
		return name
	}
	return fmt.Sprintf("type-%d", uint8(t))
}

// Identifier is the lower 64 bits of an ILA address in host byte order.
type Identifier uint64

// Type returns the identifier type encoded in the three most significant bits.
func (id Identifier) Type() Type {
	return Type((uint64(id) >> typeShift) & typeMask)
}

// ChecksumNeutral returns true if the C-bit is set, meaning the identifier
// was chosen so that the translation keeps the transport checksum unchanged.
func (id Identifier) ChecksumNeutral() bool {
	return uint64(id)&checksumNeutralFlag != 0
}

// String formats the identifier the way ILA tools print it (four groups
// of 16 bits in hex).
func (id Identifier) String() string {
	return formatGroups(uint64(id))
}

// Locator is the upper 64 bits of an ILA address in host byte order.
type Locator uint64

// String formats the locator as four groups of 16 bits in hex.
func (loc Locator) String() string {
	return formatGroups(uint64(loc))
}

// Classification is the result of Classify.
type Classification struct {
	// Eligible is false for addresses that should not get an identifier
	// mapping (IPv4 addresses and plain interface identifiers).
	Eligible bool

	Identifier Identifier
	Locator    Locator
}

// Classify decides whether addr is an ILA address and decodes both halves
// of it.
func Classify(addr net.IP) Classification {
	ip6 := to16(addr)
	if ip6 == nil {
		return Classification{}
	}
	id := ExtractIdentifier(ip6)
	return Classification{
		Eligible:   id.Type() != TypeIID,
		Identifier: id,
		Locator:    ExtractLocator(ip6),
	}
}

// ExtractIdentifier reads the identifier half of addr.
// Zero is returned for anything that is not an IPv6 address.
func ExtractIdentifier(addr net.IP) Identifier {
	ip6 := to16(addr)
	if ip6 == nil {
		return 0
	}
	return Identifier(binary.BigEndian.Uint64(ip6[identifierOffset:]))
}

// ExtractLocator reads the locator half of addr.
// Zero is returned for anything that is not an IPv6 address.
func ExtractLocator(addr net.IP) Locator {
	ip6 := to16(addr)
	if ip6 == nil {
		return 0
	}
	return Locator(binary.BigEndian.Uint64(ip6[locatorOffset:identifierOffset]))
}

// ParseAddress parses textual IPv6 address.
func ParseAddress(s string) (net.IP, error) {
	addr := net.ParseIP(strings.TrimSpace(s))
	if addr == nil {
		return nil, errors.Errorf("invalid IPv6 address %q", s)
	}
	if addr.To4() != nil {
		return nil, errors.Errorf("%q is not an IPv6 address", s)
	}
	return addr, nil
}

// ParseIdentifier parses an identifier given either as a decimal number,
// a 0x-prefixed hex number or in the four-group form returned by
// Identifier.String.
func ParseIdentifier(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.Contains(s, ":"):
		groups := strings.Split(s, ":")
		if len(groups) != 4 {
			return 0, errors.Errorf("invalid identifier %q: expected 4 groups", s)
		}
		var id uint64
		for _, group := range groups {
			v, err := strconv.ParseUint(group, 16, 16)
			if err != nil {
				return 0, errors.Wrapf(err, "invalid identifier %q", s)
			}
			id = id<<16 | v
		}
		return Identifier(id), nil
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid identifier %q", s)
		}
		return Identifier(v), nil
	default:
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid identifier %q", s)
		}
		return Identifier(v), nil
	}
}

// to16 returns the 16-byte form of addr, nil for IPv4 (incl. v4-mapped)
// and malformed input.
func to16(addr net.IP) net.IP {
	if len(addr) != net.IPv6len || addr.To4() != nil {
		return nil
	}
	return addr
}

func formatGroups(v uint64) string {
	return fmt.Sprintf("%x:%x:%x:%x", uint16(v>>48), uint16(v>>32), uint16(v>>16), uint16(v))
}
