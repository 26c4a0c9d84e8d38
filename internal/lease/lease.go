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

// Package lease defines the lease-view abstraction the FQDN/DDNS core
// depends on (component E: an interface only, per the spec this module
// implements) plus a non-production in-memory reference implementation
// used by the daemon and by tests, built atop the address/subnet carving
// math adapted from the teacher's prefix-delegation utilities.
package lease

import (
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv6"
)

// Lease6 holds the attributes the FQDN core reads and writes for a single
// IPv6 address lease.
type Lease6 struct {
	Address             netip.Addr
	DUID                dhcpv6.DUID
	IAID                [4]byte
	PreferredLifetime   uint32
	ValidLifetime       uint32
	ClientLastTransmit  time.Time
	SubnetID            string

	// Hostname is canonical: lower-case, trailing dot, or empty. It holds
	// the last negotiated name even when both FQDNForward and FQDNReverse
	// are false (a client that set N=1).
	Hostname     string
	FQDNForward  bool
	FQDNReverse  bool

	ExpiresAt time.Time
}

// HoldsDNS reports whether this lease currently has any DDNS records
// associated with it.
func (l *Lease6) HoldsDNS() bool {
	return l.FQDNForward || l.FQDNReverse
}

// Expired reports whether the lease's valid lifetime has elapsed as of now.
func (l *Lease6) Expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && now.After(l.ExpiresAt)
}

// LeaseView is the narrow slice of the allocation engine the FQDN/NCR core
// depends on: lookup by address, hostname/flag mutation, and expiration
// checks. The real allocation policy (pool selection, renewal timers,
// persistence) lives entirely outside this interface, per the module's
// non-goals.
type LeaseView interface {
	// Lookup returns the lease bound to addr, or ok=false if none exists.
	Lookup(addr netip.Addr) (lease *Lease6, ok bool)

	// Allocate assigns addr to the given client, returning the new lease
	// and, if a different tenant previously held addr and that lease had
	// expired, the prior tenant's lease (for CHG_REMOVE bookkeeping per
	// §4.F case 4). prior is nil when no reuse occurred.
	Allocate(addr netip.Addr, duid dhcpv6.DUID, iaid [4]byte, subnetID string, preferred, valid uint32, now time.Time) (current, prior *Lease6, err error)

	// UpdateFQDN writes the negotiated hostname/flags onto an existing
	// lease.
	UpdateFQDN(addr netip.Addr, hostname string, forward, reverse bool) error

	// Delete removes the lease bound to addr, e.g. on Release.
	Delete(addr netip.Addr) error
}

// MemLeaseView is a process-local, mutex-protected LeaseView backed by a
// map, sufficient for the demo daemon and for exercising the FQDN/NCR core
// in tests. It is explicitly not an allocation engine: callers choose
// which address to assign (e.g. via CalculatePoolRange/CalculateSubnet)
// before calling Allocate.
type MemLeaseView struct {
	mu      sync.Mutex
	leases  map[netip.Addr]*Lease6
}

// NewMemLeaseView constructs an empty lease view.
func NewMemLeaseView() *MemLeaseView {
	return &MemLeaseView{leases: make(map[netip.Addr]*Lease6)}
}

func (v *MemLeaseView) Lookup(addr netip.Addr) (*Lease6, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	l, ok := v.leases[addr]
	return l, ok
}

func (v *MemLeaseView) Allocate(addr netip.Addr, duid dhcpv6.DUID, iaid [4]byte, subnetID string, preferred, valid uint32, now time.Time) (*Lease6, *Lease6, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	existing, ok := v.leases[addr]

	var prior *Lease6
	if ok && !sameClient(existing, duid, iaid) {
		if !existing.Expired(now) {
			return nil, nil, fmt.Errorf("lease: address %s is in use by another client", addr)
		}
		// Expired lease reused by a new tenant: the caller (ProcessRequest
		// /ProcessRenew) uses prior to enqueue CHG_REMOVE for the previous
		// tenant's recorded name before enqueuing CHG_ADD for the new one.
		prior = existing
	}

	current := &Lease6{
		Address:            addr,
		DUID:               duid,
		IAID:               iaid,
		SubnetID:           subnetID,
		PreferredLifetime:  preferred,
		ValidLifetime:      valid,
		ClientLastTransmit: now,
		ExpiresAt:          now.Add(time.Duration(valid) * time.Second),
	}
	if ok && sameClient(existing, duid, iaid) {
		current.Hostname = existing.Hostname
		current.FQDNForward = existing.FQDNForward
		current.FQDNReverse = existing.FQDNReverse
	}
	v.leases[addr] = current
	return current, prior, nil
}

func (v *MemLeaseView) UpdateFQDN(addr netip.Addr, hostname string, forward, reverse bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	l, ok := v.leases[addr]
	if !ok {
		return fmt.Errorf("lease: no lease for address %s", addr)
	}
	l.Hostname = hostname
	l.FQDNForward = forward
	l.FQDNReverse = reverse
	return nil
}

func (v *MemLeaseView) Delete(addr netip.Addr) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.leases, addr)
	return nil
}

func sameClient(l *Lease6, duid dhcpv6.DUID, iaid [4]byte) bool {
	if l.IAID != iaid {
		return false
	}
	if l.DUID == nil || duid == nil {
		return l.DUID == nil && duid == nil
	}
	return string(l.DUID.ToBytes()) == string(duid.ToBytes())
}
