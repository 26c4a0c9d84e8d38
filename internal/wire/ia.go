/*
Copyright 2026 jr42.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package wire

import (
	"fmt"
	"net/netip"

	"github.com/sclark007/kea/internal/dhcperr"
)

// IAAddrOption is IA_ADDR (RFC 8415 §21.6): an address assigned under an
// IA_NA, with its own preferred/valid lifetimes.
type IAAddrOption struct {
	Address           netip.Addr
	PreferredLifetime uint32
	ValidLifetime     uint32
}

func (o *IAAddrOption) Code() OptionCode { return OptionIAAddr }

func (o *IAAddrOption) ToBytes() []byte {
	addr := o.Address.As16()
	buf := make([]byte, 0, 24)
	buf = append(buf, addr[:]...)
	buf = appendUint32(buf, o.PreferredLifetime)
	buf = appendUint32(buf, o.ValidLifetime)
	return buf
}

// DecodeIAAddr parses an IA_ADDR option payload.
func DecodeIAAddr(data []byte) (*IAAddrOption, error) {
	if len(data) < 24 {
		return nil, fmt.Errorf("wire: IA_ADDR option too short (%d bytes): %w", len(data), dhcperr.ErrInvalidOption)
	}
	var raw [16]byte
	copy(raw[:], data[0:16])
	addr := netip.AddrFrom16(raw)
	if !addr.Is6() {
		return nil, fmt.Errorf("wire: IA_ADDR address is not IPv6: %w", dhcperr.ErrInvalidOption)
	}
	preferred := decodeUint32(data[16:20])
	valid := decodeUint32(data[20:24])
	return &IAAddrOption{Address: addr, PreferredLifetime: preferred, ValidLifetime: valid}, nil
}

// IANAOption is IA_NA (RFC 8415 §21.4): an identity association for
// non-temporary addresses, identified by IAID, carrying zero or more nested
// IA_ADDR options.
type IANAOption struct {
	IAID    [4]byte
	T1      uint32
	T2      uint32
	Addrs   []*IAAddrOption
}

func (o *IANAOption) Code() OptionCode { return OptionIANA }

func (o *IANAOption) ToBytes() []byte {
	buf := make([]byte, 0, 12)
	buf = append(buf, o.IAID[:]...)
	buf = appendUint32(buf, o.T1)
	buf = appendUint32(buf, o.T2)
	for _, a := range o.Addrs {
		payload := a.ToBytes()
		buf = appendUint16(buf, uint16(OptionIAAddr))
		buf = appendUint16(buf, uint16(len(payload)))
		buf = append(buf, payload...)
	}
	return buf
}

// DecodeIANA parses an IA_NA option payload, including nested IA_ADDR
// options encoded as (code, length, value) triplets.
func DecodeIANA(data []byte) (*IANAOption, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("wire: IA_NA option too short (%d bytes): %w", len(data), dhcperr.ErrInvalidOption)
	}
	opt := &IANAOption{
		T1: decodeUint32(data[4:8]),
		T2: decodeUint32(data[8:12]),
	}
	copy(opt.IAID[:], data[0:4])

	rest := data[12:]
	for len(rest) > 0 {
		if len(rest) < 4 {
			return nil, fmt.Errorf("wire: truncated suboption header in IA_NA: %w", dhcperr.ErrInvalidOption)
		}
		code := OptionCode(decodeUint16(rest[0:2]))
		length := int(decodeUint16(rest[2:4]))
		if len(rest) < 4+length {
			return nil, fmt.Errorf("wire: truncated suboption value in IA_NA: %w", dhcperr.ErrInvalidOption)
		}
		value := rest[4 : 4+length]
		if code == OptionIAAddr {
			addr, err := DecodeIAAddr(value)
			if err != nil {
				return nil, err
			}
			opt.Addrs = append(opt.Addrs, addr)
		}
		rest = rest[4+length:]
	}
	return opt, nil
}

func decodeUint16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func decodeUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
