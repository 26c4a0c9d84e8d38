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

package process

import (
	"net/netip"
	"testing"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/insomniacslk/dhcp/iana"
	"github.com/sclark007/kea/internal/fqdn"
	"github.com/sclark007/kea/internal/lease"
	"github.com/sclark007/kea/internal/ncr"
	"github.com/sclark007/kea/internal/wire"
)

func clientDUID(tag byte) dhcpv6.DUID {
	return &dhcpv6.DUIDLL{HWType: iana.HWTypeEthernet, LinkLayerAddr: []byte{tag, tag, tag, tag, tag, tag}}
}

var basePolicy = fqdn.PolicyConfig{AllowClientUpdate: true, GenerateNameWhenEmpty: true, DefaultSuffix: "example.com."}

// S1 — Solicit never mutates the lease view or enqueues an NCR.
func TestProcessSolicitNeverMutatesOrEnqueues(t *testing.T) {
	view := lease.NewMemLeaseView()
	queue := ncr.NewQueue()
	addr := netip.MustParseAddr("2001:db8::1")

	result := ProcessSolicit(basePolicy, Request{
		DUID:       clientDUID(1),
		Address:    addr,
		ClientFQDN: &wire.FQDNOption{Flags: wire.FlagS, DomainName: "myhost.example.com.", Classification: wire.Full},
		Now:        time.Unix(1000, 0),
	})

	if result.ReplyFQDN == nil || result.ReplyFQDN.Flags != wire.FlagS || result.ReplyFQDN.DomainName != "myhost.example.com." {
		t.Errorf("ProcessSolicit() reply = %+v, want S flag with echoed name", result.ReplyFQDN)
	}
	if _, ok := view.Lookup(addr); ok {
		t.Error("ProcessSolicit() created a lease, want no mutation")
	}
	if queue.Len() != 0 {
		t.Errorf("ProcessSolicit() enqueued %d NCRs, want 0", queue.Len())
	}
}

func TestProcessSolicitNoFQDNOption(t *testing.T) {
	result := ProcessSolicit(basePolicy, Request{Address: netip.MustParseAddr("2001:db8::1")})
	if result.ReplyFQDN != nil {
		t.Errorf("ProcessSolicit() with no client FQDN = %+v, want nil reply", result.ReplyFQDN)
	}
}

// Invariant 1 / case 1 — new lease enqueues exactly one CHG_ADD.
func TestProcessRequestNewLeaseEnqueuesAdd(t *testing.T) {
	view := lease.NewMemLeaseView()
	queue := ncr.NewQueue()
	addr := netip.MustParseAddr("2001:db8::1")

	_, err := ProcessRequest(view, queue, basePolicy, Request{
		DUID:          clientDUID(1),
		IAID:          [4]byte{0, 0, 0, 1},
		Address:       addr,
		ValidLifetime: 7200,
		ClientFQDN:    &wire.FQDNOption{Flags: wire.FlagS, DomainName: "myhost.example.com.", Classification: wire.Full},
		Now:           time.Unix(1000, 0),
	})
	if err != nil {
		t.Fatalf("ProcessRequest() error: %v", err)
	}
	if queue.Len() != 1 {
		t.Fatalf("queue.Len() = %d, want 1", queue.Len())
	}
	req, _ := queue.Pop()
	if req.ChangeType != ncr.ChangeAdd || req.IPAddress != addr {
		t.Errorf("enqueued request = %+v, want CHG_ADD at %v", req, addr)
	}

	l, ok := view.Lookup(addr)
	if !ok || l.Hostname != "myhost.example.com." || !l.FQDNForward || !l.FQDNReverse {
		t.Errorf("lease after Request = %+v, want hostname persisted with fwd+rev", l)
	}
}

// Case 2 — same client, same address, same name: no NCR.
func TestProcessRequestUnchangedNameNoop(t *testing.T) {
	view := lease.NewMemLeaseView()
	queue := ncr.NewQueue()
	addr := netip.MustParseAddr("2001:db8::1")
	duid := clientDUID(1)
	clientOpt := &wire.FQDNOption{Flags: wire.FlagS, DomainName: "myhost.example.com.", Classification: wire.Full}

	reqInput := Request{DUID: duid, IAID: [4]byte{0, 0, 0, 1}, Address: addr, ValidLifetime: 7200, ClientFQDN: clientOpt, Now: time.Unix(1000, 0)}
	if _, err := ProcessRequest(view, queue, basePolicy, reqInput); err != nil {
		t.Fatalf("ProcessRequest() error: %v", err)
	}
	queue.Pop() // drain the initial CHG_ADD

	reqInput.Now = time.Unix(2000, 0)
	if _, err := ProcessRenew(view, queue, basePolicy, reqInput); err != nil {
		t.Fatalf("ProcessRenew() error: %v", err)
	}
	if queue.Len() != 0 {
		t.Errorf("queue.Len() after unchanged renew = %d, want 0", queue.Len())
	}
}

// Case 3 / invariant 3 — changed name produces REMOVE(old) then ADD(new).
func TestProcessRequestChangedNameOrdersRemoveThenAdd(t *testing.T) {
	view := lease.NewMemLeaseView()
	queue := ncr.NewQueue()
	addr := netip.MustParseAddr("2001:db8::1")
	duid := clientDUID(1)

	if _, err := ProcessRequest(view, queue, basePolicy, Request{
		DUID: duid, IAID: [4]byte{0, 0, 0, 1}, Address: addr, ValidLifetime: 7200,
		ClientFQDN: &wire.FQDNOption{Flags: wire.FlagS, DomainName: "myhost.example.com.", Classification: wire.Full},
		Now:        time.Unix(1000, 0),
	}); err != nil {
		t.Fatalf("ProcessRequest() error: %v", err)
	}
	queue.Pop() // drain ADD(myhost)

	if _, err := ProcessRequest(view, queue, basePolicy, Request{
		DUID: duid, IAID: [4]byte{0, 0, 0, 1}, Address: addr, ValidLifetime: 7200,
		ClientFQDN: &wire.FQDNOption{Flags: wire.FlagS, DomainName: "otherhost.example.com.", Classification: wire.Full},
		Now:        time.Unix(2000, 0),
	}); err != nil {
		t.Fatalf("ProcessRequest() (changed name) error: %v", err)
	}

	if queue.Len() != 2 {
		t.Fatalf("queue.Len() = %d, want 2 (REMOVE then ADD)", queue.Len())
	}
	removeReq, _ := queue.Pop()
	addReq, _ := queue.Pop()
	if removeReq.ChangeType != ncr.ChangeRemove {
		t.Errorf("first entry = %s, want CHG_REMOVE", removeReq.ChangeType)
	}
	if addReq.ChangeType != ncr.ChangeAdd {
		t.Errorf("second entry = %s, want CHG_ADD", addReq.ChangeType)
	}
	if removeReq.DHCID == addReq.DHCID {
		t.Error("REMOVE and ADD DHCIDs are equal, want distinct names to hash differently")
	}
}

// S3 — empty name synthesized from the leased address after allocation.
func TestProcessRequestSynthesizesNameFromAddress(t *testing.T) {
	view := lease.NewMemLeaseView()
	queue := ncr.NewQueue()
	addr := netip.MustParseAddr("2001:db8:1:1::dead:beef")

	if _, err := ProcessRequest(view, queue, basePolicy, Request{
		DUID: clientDUID(1), IAID: [4]byte{0, 0, 0, 1}, Address: addr, ValidLifetime: 7200,
		ClientFQDN: &wire.FQDNOption{Flags: wire.FlagS, DomainName: "", Classification: wire.Empty},
		Now:        time.Unix(1000, 0),
	}); err != nil {
		t.Fatalf("ProcessRequest() error: %v", err)
	}

	l, ok := view.Lookup(addr)
	if !ok {
		t.Fatal("lease not found after Request")
	}
	want := "host-2001-db8-1-1--dead-beef.example.com."
	if l.Hostname != want {
		t.Errorf("l.Hostname = %q, want %q", l.Hostname, want)
	}
	if queue.Len() != 1 {
		t.Fatalf("queue.Len() = %d, want 1", queue.Len())
	}
}

// Case 4 / S6 — expired lease reused by a new tenant: REMOVE(previous
// tenant) then ADD(new tenant).
func TestProcessRequestExpiredLeaseReuse(t *testing.T) {
	view := lease.NewMemLeaseView()
	queue := ncr.NewQueue()
	addr := netip.MustParseAddr("2001:db8::1")

	if _, err := ProcessRequest(view, queue, basePolicy, Request{
		DUID: clientDUID(1), IAID: [4]byte{0, 0, 0, 1}, Address: addr, ValidLifetime: 10,
		ClientFQDN: &wire.FQDNOption{Flags: wire.FlagS, DomainName: "otherhost.example.com.", Classification: wire.Full},
		Now:        time.Unix(1000, 0),
	}); err != nil {
		t.Fatalf("ProcessRequest() (first tenant) error: %v", err)
	}
	queue.Pop() // drain ADD(otherhost)

	if _, err := ProcessRequest(view, queue, basePolicy, Request{
		DUID: clientDUID(2), IAID: [4]byte{0, 0, 0, 2}, Address: addr, ValidLifetime: 7200,
		ClientFQDN: &wire.FQDNOption{Flags: wire.FlagS, DomainName: "myhost.example.com.", Classification: wire.Full},
		Now:        time.Unix(2000, 0), // well past the first lease's 10s valid lifetime
	}); err != nil {
		t.Fatalf("ProcessRequest() (reuse) error: %v", err)
	}

	if queue.Len() != 2 {
		t.Fatalf("queue.Len() = %d, want 2", queue.Len())
	}
	removeReq, _ := queue.Pop()
	addReq, _ := queue.Pop()
	if removeReq.ChangeType != ncr.ChangeRemove || addReq.ChangeType != ncr.ChangeAdd {
		t.Errorf("order = %s, %s, want CHG_REMOVE, CHG_ADD", removeReq.ChangeType, addReq.ChangeType)
	}

	l, _ := view.Lookup(addr)
	if l.Hostname != "myhost.example.com." {
		t.Errorf("final lease hostname = %q, want %q", l.Hostname, "myhost.example.com.")
	}
}

// Invariant 2 / Release rules.
func TestProcessReleaseEnqueuesRemoveWhenDNSHeld(t *testing.T) {
	view := lease.NewMemLeaseView()
	queue := ncr.NewQueue()
	addr := netip.MustParseAddr("2001:db8::1")

	if _, err := ProcessRequest(view, queue, basePolicy, Request{
		DUID: clientDUID(1), IAID: [4]byte{0, 0, 0, 1}, Address: addr, ValidLifetime: 7200,
		ClientFQDN: &wire.FQDNOption{Flags: wire.FlagS, DomainName: "myhost.example.com.", Classification: wire.Full},
		Now:        time.Unix(1000, 0),
	}); err != nil {
		t.Fatalf("ProcessRequest() error: %v", err)
	}
	queue.Pop() // drain ADD

	if err := ProcessRelease(view, queue, addr); err != nil {
		t.Fatalf("ProcessRelease() error: %v", err)
	}
	if queue.Len() != 1 {
		t.Fatalf("queue.Len() = %d, want 1", queue.Len())
	}
	req, _ := queue.Pop()
	if req.ChangeType != ncr.ChangeRemove {
		t.Errorf("ChangeType = %s, want CHG_REMOVE", req.ChangeType)
	}
	if _, ok := view.Lookup(addr); ok {
		t.Error("lease still present after ProcessRelease()")
	}
}

func TestProcessReleaseNoDNSHeldIsNoop(t *testing.T) {
	view := lease.NewMemLeaseView()
	queue := ncr.NewQueue()
	addr := netip.MustParseAddr("2001:db8::1")

	if _, err := ProcessRequest(view, queue, basePolicy, Request{
		DUID: clientDUID(1), IAID: [4]byte{0, 0, 0, 1}, Address: addr, ValidLifetime: 7200,
		Now: time.Unix(1000, 0),
	}); err != nil {
		t.Fatalf("ProcessRequest() (no FQDN option) error: %v", err)
	}

	if err := ProcessRelease(view, queue, addr); err != nil {
		t.Fatalf("ProcessRelease() error: %v", err)
	}
	if queue.Len() != 0 {
		t.Errorf("queue.Len() = %d, want 0", queue.Len())
	}
}

// Invariant 5 — reply always carries the FQDN option when the request did.
func TestProcessRequestAlwaysRepliesWithFQDNOption(t *testing.T) {
	view := lease.NewMemLeaseView()
	queue := ncr.NewQueue()

	result, err := ProcessRequest(view, queue, basePolicy, Request{
		DUID: clientDUID(1), IAID: [4]byte{0, 0, 0, 1}, Address: netip.MustParseAddr("2001:db8::1"), ValidLifetime: 7200,
		ClientFQDN: &wire.FQDNOption{Flags: wire.FlagS, DomainName: "myhost.example.com.", Classification: wire.Full},
		Now:        time.Unix(1000, 0),
	})
	if err != nil {
		t.Fatalf("ProcessRequest() error: %v", err)
	}
	if result.ReplyFQDN == nil {
		t.Fatal("ProcessRequest() reply has no FQDN option, want one")
	}
}
