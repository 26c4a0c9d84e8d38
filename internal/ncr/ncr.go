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

// Package ncr produces and queues Name Change Requests: the unit of work a
// DHCPv6 server hands to a downstream DDNS updater whenever a lease's
// forward/reverse DNS records need to be added or removed.
package ncr

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/sclark007/kea/internal/dhcperr"
	"github.com/sclark007/kea/internal/lease"
	"github.com/sclark007/kea/internal/nameutil"
)

// ChangeType distinguishes an add from a remove NCR.
type ChangeType string

const (
	ChangeAdd    ChangeType = "CHG_ADD"
	ChangeRemove ChangeType = "CHG_REMOVE"
)

// Status is the NCR's processing state as tracked by this producer; the
// downstream consumer owns all transitions after ST_NEW.
type Status string

const statusNew Status = "ST_NEW"

// Request is a single Name Change Request.
type Request struct {
	ChangeType      ChangeType
	ForwardChange   bool
	ReverseChange   bool
	IPAddress       netip.Addr
	DHCID           string
	LeaseExpiresOn  int64
	LeaseLength     uint32
	Status          Status
}

// newRequest builds a Request, enforcing the invariant that at least one of
// forward/reverse is set.
func newRequest(changeType ChangeType, forward, reverse bool, addr netip.Addr, dhcid string, leaseLength uint32) (Request, error) {
	if !forward && !reverse {
		return Request{}, fmt.Errorf("ncr: neither forward nor reverse change requested: %w", dhcperr.ErrBadValue)
	}
	return Request{
		ChangeType:    changeType,
		ForwardChange: forward,
		ReverseChange: reverse,
		IPAddress:     addr,
		DHCID:         dhcid,
		// lease_expires_on is left at 0: see the producer contract
		// recorded in DESIGN.md (Open Question 1).
		LeaseExpiresOn: 0,
		LeaseLength:    leaseLength,
		Status:         statusNew,
	}, nil
}

// AnswerIA describes one IA_NA's worth of assigned addresses, as much of
// the answer packet as createNameChangeRequests needs.
type AnswerIA struct {
	Addrs         []netip.Addr
	ValidLifetime uint32
}

// Answer is the subset of an outgoing ADVERTISE/REPLY that
// createNameChangeRequests consumes: the client's DUID, the negotiated
// FQDN decision, and the IA_NAs carrying newly assigned addresses.
type Answer struct {
	DUID          dhcpv6.DUID
	DoForward     bool
	DoReverse     bool
	CanonicalName string
	IANAs         []AnswerIA
}

// CreateNameChangeRequests implements §4.D's createNameChangeRequests:
// at most one CHG_ADD is produced per answer, taken from the first
// address of the first IA_NA that has one.
func CreateNameChangeRequests(answer *Answer) ([]Request, error) {
	if answer == nil {
		return nil, fmt.Errorf("ncr: answer packet is nil: %w", dhcperr.ErrUnexpected)
	}
	if answer.DUID == nil {
		return nil, fmt.Errorf("ncr: answer carries no client DUID: %w", dhcperr.ErrUnexpected)
	}

	if answer.CanonicalName == "" {
		return nil, nil
	}

	var firstAddr netip.Addr
	var leaseLength uint32
	found := false
	for _, ia := range answer.IANAs {
		if len(ia.Addrs) == 0 {
			continue
		}
		firstAddr = ia.Addrs[0]
		leaseLength = ia.ValidLifetime
		found = true
		break
	}
	if !found {
		return nil, nil
	}

	dhcid := nameutil.DHCIDHex(answer.DUID.ToBytes(), answer.CanonicalName)
	req, err := newRequest(ChangeAdd, answer.DoForward, answer.DoReverse, firstAddr, dhcid, leaseLength)
	if err != nil {
		return nil, err
	}
	return []Request{req}, nil
}

// CreateRemovalNameChangeRequest implements §4.D's
// createRemovalNameChangeRequest: a single CHG_REMOVE for a lease whose
// DNS records are being torn down.
func CreateRemovalNameChangeRequest(l *lease.Lease6) (*Request, error) {
	if l == nil || !l.HoldsDNS() {
		return nil, nil
	}
	if l.Hostname == "" || !validFQDNSyntax(l.Hostname) {
		return nil, nil
	}

	dhcid := nameutil.DHCIDHex(l.DUID.ToBytes(), l.Hostname)
	req, err := newRequest(ChangeRemove, l.FQDNForward, l.FQDNReverse, l.Address, dhcid, l.ValidLifetime)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// validFQDNSyntax rejects the malformed names createRemovalNameChangeRequest
// must silently refuse to act on (e.g. consecutive dots).
func validFQDNSyntax(name string) bool {
	if name == "" || strings.Contains(name, "..") {
		return false
	}
	trimmed := strings.TrimSuffix(name, ".")
	if trimmed == "" {
		return false
	}
	for _, label := range strings.Split(trimmed, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
	}
	return true
}
