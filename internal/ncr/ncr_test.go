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

package ncr

import (
	"net/netip"
	"strings"
	"testing"

	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/insomniacslk/dhcp/iana"
	"github.com/sclark007/kea/internal/lease"
)

func testDUID() dhcpv6.DUID {
	return &dhcpv6.DUIDLL{HWType: iana.HWTypeEthernet, LinkLayerAddr: []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}}
}

func TestCreateNameChangeRequestsNilAnswer(t *testing.T) {
	if _, err := CreateNameChangeRequests(nil); err == nil {
		t.Fatal("CreateNameChangeRequests(nil) = nil error, want error")
	}
}

func TestCreateNameChangeRequestsMissingDUID(t *testing.T) {
	answer := &Answer{CanonicalName: "myhost.example.com."}
	if _, err := CreateNameChangeRequests(answer); err == nil {
		t.Fatal("CreateNameChangeRequests(no DUID) = nil error, want error")
	}
}

func TestCreateNameChangeRequestsNoNameIsNoop(t *testing.T) {
	answer := &Answer{DUID: testDUID()}
	reqs, err := CreateNameChangeRequests(answer)
	if err != nil {
		t.Fatalf("CreateNameChangeRequests() error: %v", err)
	}
	if reqs != nil {
		t.Errorf("CreateNameChangeRequests() = %v, want nil (no-op)", reqs)
	}
}

func TestCreateNameChangeRequestsNoAddressIsNoop(t *testing.T) {
	answer := &Answer{DUID: testDUID(), CanonicalName: "myhost.example.com.", DoForward: true, DoReverse: true}
	reqs, err := CreateNameChangeRequests(answer)
	if err != nil {
		t.Fatalf("CreateNameChangeRequests() error: %v", err)
	}
	if reqs != nil {
		t.Errorf("CreateNameChangeRequests() = %v, want nil when no address was leased", reqs)
	}
}

// S3 — empty name synthesis: one CHG_ADD for the synthesized hostname, at
// the first address of the first IA_NA.
func TestCreateNameChangeRequestsSingleIAOneAdd(t *testing.T) {
	addr := netip.MustParseAddr("2001:db8:1:1::dead:beef")
	answer := &Answer{
		DUID:          testDUID(),
		DoForward:     true,
		DoReverse:     true,
		CanonicalName: "host-2001-db8-1-1--dead-beef.example.com.",
		IANAs: []AnswerIA{
			{Addrs: []netip.Addr{addr}, ValidLifetime: 7200},
		},
	}
	reqs, err := CreateNameChangeRequests(answer)
	if err != nil {
		t.Fatalf("CreateNameChangeRequests() error: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("CreateNameChangeRequests() returned %d requests, want 1", len(reqs))
	}
	req := reqs[0]
	if req.ChangeType != ChangeAdd || req.IPAddress != addr || req.LeaseLength != 7200 {
		t.Errorf("request = %+v, want CHG_ADD at %v with lease_length 7200", req, addr)
	}
	if !req.ForwardChange || !req.ReverseChange {
		t.Errorf("request forward/reverse = %v/%v, want true/true", req.ForwardChange, req.ReverseChange)
	}
}

// Multiple IA_NAs: only the first address of the first non-empty IA_NA
// produces an NCR (Open Question 2's codified behavior).
func TestCreateNameChangeRequestsMultipleIAsOnlyFirstUsed(t *testing.T) {
	first := netip.MustParseAddr("2001:db8::1")
	second := netip.MustParseAddr("2001:db8::2")
	answer := &Answer{
		DUID:          testDUID(),
		DoForward:     true,
		DoReverse:     true,
		CanonicalName: "myhost.example.com.",
		IANAs: []AnswerIA{
			{Addrs: nil},
			{Addrs: []netip.Addr{first, second}, ValidLifetime: 3600},
		},
	}
	reqs, err := CreateNameChangeRequests(answer)
	if err != nil {
		t.Fatalf("CreateNameChangeRequests() error: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("CreateNameChangeRequests() returned %d requests, want 1", len(reqs))
	}
	if reqs[0].IPAddress != first {
		t.Errorf("request address = %v, want first address %v", reqs[0].IPAddress, first)
	}
}

func TestCreateRemovalNameChangeRequestNoDNSHeldIsNoop(t *testing.T) {
	l := &lease.Lease6{Address: netip.MustParseAddr("2001:db8::1"), DUID: testDUID()}
	req, err := CreateRemovalNameChangeRequest(l)
	if err != nil {
		t.Fatalf("CreateRemovalNameChangeRequest() error: %v", err)
	}
	if req != nil {
		t.Errorf("CreateRemovalNameChangeRequest() = %+v, want nil (no DNS held)", req)
	}
}

func TestCreateRemovalNameChangeRequestInvalidHostnameIsNoop(t *testing.T) {
	l := &lease.Lease6{
		Address:     netip.MustParseAddr("2001:db8::1"),
		DUID:        testDUID(),
		Hostname:    "bad..name.",
		FQDNForward: true,
		FQDNReverse: true,
	}
	req, err := CreateRemovalNameChangeRequest(l)
	if err != nil {
		t.Fatalf("CreateRemovalNameChangeRequest() error: %v", err)
	}
	if req != nil {
		t.Errorf("CreateRemovalNameChangeRequest() = %+v, want nil (invalid hostname)", req)
	}
}

func TestCreateRemovalNameChangeRequest(t *testing.T) {
	l := &lease.Lease6{
		Address:       netip.MustParseAddr("2001:db8::1"),
		DUID:          testDUID(),
		Hostname:      "myhost.example.com.",
		FQDNForward:   true,
		FQDNReverse:   true,
		ValidLifetime: 7200,
	}
	req, err := CreateRemovalNameChangeRequest(l)
	if err != nil {
		t.Fatalf("CreateRemovalNameChangeRequest() error: %v", err)
	}
	if req == nil {
		t.Fatal("CreateRemovalNameChangeRequest() = nil, want a CHG_REMOVE")
	}
	if req.ChangeType != ChangeRemove || req.IPAddress != l.Address || req.LeaseLength != 7200 {
		t.Errorf("request = %+v, want CHG_REMOVE at %v with lease_length 7200", req, l.Address)
	}
}

// S5 — Request then Request with a different name: the queue ends with
// ADD(myhost), REMOVE(myhost), ADD(otherhost) in that order.
func TestQueueOrderingRemoveThenAdd(t *testing.T) {
	q := NewQueue()
	addr := netip.MustParseAddr("2001:db8::1")

	addMyhost, err := newRequest(ChangeAdd, true, true, addr, "DHCID-MYHOST", 3600)
	if err != nil {
		t.Fatalf("newRequest() error: %v", err)
	}
	q.Enqueue(addMyhost)

	removeMyhost, err := newRequest(ChangeRemove, true, true, addr, "DHCID-MYHOST", 3600)
	if err != nil {
		t.Fatalf("newRequest() error: %v", err)
	}
	addOtherhost, err := newRequest(ChangeAdd, true, true, addr, "DHCID-OTHERHOST", 3600)
	if err != nil {
		t.Fatalf("newRequest() error: %v", err)
	}
	q.EnqueueAll(removeMyhost, addOtherhost)

	if got := q.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	wantOrder := []ChangeType{ChangeAdd, ChangeRemove, ChangeAdd}
	wantDHCID := []string{"DHCID-MYHOST", "DHCID-MYHOST", "DHCID-OTHERHOST"}
	for i, want := range wantOrder {
		req, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop() at index %d: queue empty, want more entries", i)
		}
		if req.ChangeType != want || req.DHCID != wantDHCID[i] {
			t.Errorf("Pop() at index %d = %+v, want type %s dhcid %s", i, req, want, wantDHCID[i])
		}
	}
}

func TestNewRequestRejectsNeitherForwardNorReverse(t *testing.T) {
	if _, err := newRequest(ChangeAdd, false, false, netip.MustParseAddr("2001:db8::1"), "DHCID", 3600); err == nil {
		t.Fatal("newRequest(forward=false, reverse=false) = nil error, want error")
	}
}

func TestEncodeProducesCamelCaseUppercaseDHCID(t *testing.T) {
	req, err := newRequest(ChangeAdd, true, true, netip.MustParseAddr("2001:db8::1"), "ABCDEF01", 3600)
	if err != nil {
		t.Fatalf("newRequest() error: %v", err)
	}
	b, err := Encode(req)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	got := string(b)
	for _, field := range []string{`"changeType"`, `"forwardChange"`, `"reverseChange"`, `"ipAddress"`, `"dhcid"`, `"leaseExpiresOn"`, `"leaseLength"`, `"status"`, `"ABCDEF01"`} {
		if !strings.Contains(got, field) {
			t.Errorf("Encode() = %s, missing %s", got, field)
		}
	}
}

func TestQueuePopEncodedDrainsInOrder(t *testing.T) {
	q := NewQueue()
	req, err := newRequest(ChangeAdd, true, false, netip.MustParseAddr("2001:db8::1"), "DHCID", 3600)
	if err != nil {
		t.Fatalf("newRequest() error: %v", err)
	}
	q.Enqueue(req)

	b, ok, err := q.PopEncoded()
	if err != nil || !ok {
		t.Fatalf("PopEncoded() = (%s, %v, %v), want data, true, nil", b, ok, err)
	}
	if _, ok, err := q.PopEncoded(); err != nil || ok {
		t.Errorf("PopEncoded() on empty queue = (%v, %v), want false, nil", ok, err)
	}
}
