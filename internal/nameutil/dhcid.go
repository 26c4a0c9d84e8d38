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

package nameutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// identifierTypeDUID is the RFC 4701 identifier-type-code for "the DHCP
// client's DUID", the only identifier kind the DHCPv6 FQDN core uses.
const identifierTypeDUID uint16 = 0x0002

// digestTypeSHA256 is the RFC 4701 digest-type-code for SHA-256, the only
// digest algorithm this module implements.
const digestTypeSHA256 byte = 0x01

// DHCID computes the RFC 4701 DHCID identifier for a DHCPv6 client: fixed
// 2-octet identifier-type-code, 1-octet digest-type-code, and a SHA-256
// digest over the identifier-type, the client's DUID bytes, and the
// lower-cased canonical name. The name is lower-cased here regardless of
// the caller's casing, which is what gives DHCID its case invariance
// (RFC 4701 §3.3 / spec invariant: same address+DUID+name hashes
// identically no matter how the name was cased on the wire).
func DHCID(duid []byte, canonicalName string) []byte {
	h := sha256.New()
	h.Write([]byte{byte(identifierTypeDUID >> 8), byte(identifierTypeDUID)})
	h.Write(duid)
	h.Write([]byte(strings.ToLower(canonicalName)))
	digest := h.Sum(nil)

	out := make([]byte, 0, 2+1+len(digest))
	out = append(out, byte(identifierTypeDUID>>8), byte(identifierTypeDUID))
	out = append(out, digestTypeSHA256)
	out = append(out, digest...)
	return out
}

// DHCIDHex renders a DHCID as the uppercase hex string NCRs carry on the
// wire.
func DHCIDHex(duid []byte, canonicalName string) string {
	return strings.ToUpper(hex.EncodeToString(DHCID(duid, canonicalName)))
}
