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

// Package nameutil canonicalizes DHCPv6 FQDN option names and computes the
// RFC 4701 DHCID identifier used to tag DDNS records with their owning
// lease.
package nameutil

import (
	"net/netip"
	"strings"
)

// Canonicalize lower-cases every label of name and ensures a single
// trailing dot, matching the FULL-name form the DHCID hash and the DDNS
// wire protocol both expect.
func Canonicalize(name string) string {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, ".") {
		lower += "."
	}
	return lower
}

// CompletePartial appends suffix to a PARTIAL name to produce a FULL one,
// per §4.B's completion rule. suffix is expected to already carry its own
// trailing dot (e.g. "example.com.").
func CompletePartial(partial, suffix string) string {
	if partial == "" {
		return Canonicalize(suffix)
	}
	trimmedSuffix := strings.TrimPrefix(suffix, ".")
	if strings.HasSuffix(partial, ".") {
		return Canonicalize(partial + trimmedSuffix)
	}
	return Canonicalize(partial + "." + trimmedSuffix)
}

// SynthesizeFromAddress forms a name from a leased address when the client
// left the FQDN empty and the server is configured to generate one:
// "host-<addr-with-colons-replaced-by-dashes>.<suffix>". The address is
// rendered in its as-received text form (netip.Addr.String() does not
// expand zero-run groups, matching the rule in §4.B).
func SynthesizeFromAddress(addr netip.Addr, suffix string) string {
	dashed := strings.ReplaceAll(addr.String(), ":", "-")
	return CompletePartial("host-"+dashed, suffix)
}
