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

package lease

import (
	"fmt"
	"math/big"
	"net/netip"
)

// SubnetConfig carves the single lease subnet this daemon serves (the
// Lease6.SubnetID every lease it hands out is tagged with) out of the
// delegated prefix an operator passes on the command line.
type SubnetConfig struct {
	// Name becomes the subnet identifier stamped onto every Lease6 carved
	// from this subnet.
	Name string

	// Offset selects which Nth subnet of PrefixLength to carve out of the
	// delegated prefix. A delegated /48 carved into /64s takes offset 0
	// for the first /64, offset 1 for the second, and so on.
	Offset int64

	// PrefixLength is the subnet's own prefix length; must be at least as
	// long as the delegated prefix it is carved from.
	PrefixLength int
}

// Subnet is the lease subnet a SubnetConfig resolves to.
type Subnet struct {
	Name string
	CIDR netip.Prefix
}

// Contains reports whether addr falls within this subnet, the check a
// DHCPv6 server applies before trusting an IA_NA address a client renews
// or requests against this subnet's identifier.
func (s Subnet) Contains(addr netip.Addr) bool {
	return s.CIDR.Contains(addr)
}

// CalculateSubnet carves cfg's subnet out of delegatedPrefix and confirms
// the result does not run past the delegation, a mistake an operator can
// make simply by choosing an Offset one too high for the delegated space.
func CalculateSubnet(delegatedPrefix netip.Prefix, cfg SubnetConfig) (Subnet, error) {
	if !delegatedPrefix.Addr().Is6() {
		return Subnet{}, fmt.Errorf("lease: delegated prefix %s is not IPv6", delegatedPrefix)
	}
	if cfg.PrefixLength < delegatedPrefix.Bits() {
		return Subnet{}, fmt.Errorf(
			"lease: subnet %q prefix length /%d is shorter than delegated prefix length /%d",
			cfg.Name, cfg.PrefixLength, delegatedPrefix.Bits(),
		)
	}
	if cfg.PrefixLength > 128 {
		return Subnet{}, fmt.Errorf("lease: subnet %q prefix length /%d exceeds 128", cfg.Name, cfg.PrefixLength)
	}
	if cfg.Offset < 0 {
		return Subnet{}, fmt.Errorf("lease: subnet %q offset %d is negative", cfg.Name, cfg.Offset)
	}

	delegatedBase := delegatedPrefix.Masked().Addr().As16()
	delegatedInt := new(big.Int).SetBytes(delegatedBase[:])

	hostBits := uint(128 - cfg.PrefixLength)
	subnetSize := new(big.Int).Lsh(big.NewInt(1), hostBits)
	subnetInt := new(big.Int).Add(delegatedInt, new(big.Int).Mul(big.NewInt(cfg.Offset), subnetSize))
	if subnetInt.BitLen() > 128 {
		return Subnet{}, fmt.Errorf("lease: subnet %q offset %d runs past the IPv6 address space", cfg.Name, cfg.Offset)
	}

	subnetBytes := subnetInt.FillBytes(make([]byte, 16))
	var addr16 [16]byte
	copy(addr16[:], subnetBytes)
	subnetAddr := netip.AddrFrom16(addr16)

	cidr, err := subnetAddr.Prefix(cfg.PrefixLength)
	if err != nil {
		return Subnet{}, fmt.Errorf("lease: subnet %q: %w", cfg.Name, err)
	}

	// The carved subnet is aligned to its own size and is no larger than
	// the delegation, so it lies inside the delegation exactly when its
	// network address does; an offset that overflows the 128-bit address
	// space entirely has already been rejected above.
	if !delegatedPrefix.Contains(cidr.Addr()) {
		return Subnet{}, fmt.Errorf(
			"lease: subnet %q (%s, offset %d) falls outside delegated prefix %s",
			cfg.Name, cidr, cfg.Offset, delegatedPrefix,
		)
	}

	return Subnet{Name: cfg.Name, CIDR: cidr}, nil
}

// ParsePrefix parses a CIDR string into a netip.Prefix, normalized to the
// network address (host bits zeroed) so the result is always suitable as
// a delegated prefix for CalculateSubnet.
func ParsePrefix(cidr string) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("lease: invalid delegated prefix %q: %w", cidr, err)
	}
	return prefix.Masked(), nil
}
