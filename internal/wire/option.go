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

// Package wire encodes and decodes the DHCPv6 options the FQDN/DDNS core
// consumes: the Client FQDN option (RFC 4704, code 39), IA_NA, IA_ADDR, and
// Status Code. The option hierarchy follows the same shape as
// github.com/insomniacslk/dhcp's own option model (a small tagged-variant
// Option interface with per-variant Code/ToBytes), which the module already
// depends on for DUID handling.
package wire

// OptionCode identifies a DHCPv6 option on the wire (RFC 3315/8415 §24.3,
// RFC 4704 §3).
type OptionCode uint16

const (
	OptionIANA       OptionCode = 3
	OptionIAAddr     OptionCode = 5
	OptionStatusCode OptionCode = 13
	OptionClientFQDN OptionCode = 39
)

// Option is the common shape of every option this package knows how to
// encode. Decoding is per-variant (DecodeFQDN, DecodeIANA, ...) because each
// option's payload grammar differs enough that a single generic decoder
// would just be a type switch in disguise.
type Option interface {
	Code() OptionCode
	ToBytes() []byte
}

// appendUint16 appends v in network byte order, matching the rest of the
// DHCPv6 option wire format.
func appendUint16(dst []byte, v uint16) []byte {
	return append(dst, byte(v>>8), byte(v))
}

// appendUint32 appends v in network byte order.
func appendUint32(dst []byte, v uint32) []byte {
	return append(dst, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
