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

// Package process implements the DHCPv6 message handlers that drive the
// wire codec, FQDN negotiator, lease view, and NCR emitter in the order
// each message type dictates: Solicit never mutates state, Request/Renew
// negotiate-then-allocate-then-enqueue (a deferred name is synthesized
// once the address is allocated), Release tears down.
package process

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv6"
	"github.com/sclark007/kea/internal/fqdn"
	"github.com/sclark007/kea/internal/lease"
	"github.com/sclark007/kea/internal/nameutil"
	"github.com/sclark007/kea/internal/ncr"
	"github.com/sclark007/kea/internal/wire"
)

// Request describes the caller-supplied inputs a single Solicit/Request
// /Renew/Release needs: the client's identity, the address being
// requested (already chosen by the allocation engine; this core does not
// pick addresses), and its decoded FQDN option, if any.
type Request struct {
	DUID              dhcpv6.DUID
	IAID              [4]byte
	Address           netip.Addr
	SubnetID          string
	PreferredLifetime uint32
	ValidLifetime     uint32
	ClientFQDN        *wire.FQDNOption // nil if the client sent no FQDN option
	Now               time.Time
}

// Result is returned to the caller so it can build the outgoing
// ADVERTISE/REPLY: the reply FQDN option (present whenever the request
// carried one, per the answer-option-inclusion rule) and, for
// convenience, the negotiated decision.
type Result struct {
	ReplyFQDN *wire.FQDNOption
	Decision  *fqdn.Decision
}

// ProcessSolicit runs FQDN negotiation for an inbound Solicit and returns
// the reply option to attach to the ADVERTISE. It never touches the
// lease view and never enqueues an NCR, even though negotiation alone
// would otherwise produce one.
func ProcessSolicit(policy fqdn.PolicyConfig, req Request) Result {
	if req.ClientFQDN == nil {
		return Result{}
	}
	d := fqdn.Negotiate(req.ClientFQDN, policy)
	if d.DeferNameSynthesis {
		name := nameutil.SynthesizeFromAddress(req.Address, policy.DefaultSuffix)
		d.ReplyName = name
		d.ReplyClassification = wire.Full
	}
	reply := d.EncodeReply()
	return Result{ReplyFQDN: reply, Decision: &d}
}

// ProcessRequest implements §4.F's Request handling: negotiate the FQDN,
// allocate/reuse the lease, and enqueue the CHG_ADD/CHG_REMOVE pair the
// resulting state transition calls for.
func ProcessRequest(view lease.LeaseView, queue *ncr.Queue, policy fqdn.PolicyConfig, req Request) (Result, error) {
	return processAllocating(view, queue, policy, req)
}

// ProcessRenew implements §4.F's Renew handling. The rules are identical
// to Request: negotiation runs again, so a changed client FQDN produces
// the same CHG_REMOVE/CHG_ADD pair.
func ProcessRenew(view lease.LeaseView, queue *ncr.Queue, policy fqdn.PolicyConfig, req Request) (Result, error) {
	return processAllocating(view, queue, policy, req)
}

func processAllocating(view lease.LeaseView, queue *ncr.Queue, policy fqdn.PolicyConfig, req Request) (Result, error) {
	if req.ClientFQDN == nil {
		_, _, err := view.Allocate(req.Address, req.DUID, req.IAID, req.SubnetID, req.PreferredLifetime, req.ValidLifetime, req.Now)
		if err != nil {
			return Result{}, err
		}
		return Result{}, nil
	}

	d := fqdn.Negotiate(req.ClientFQDN, policy)

	current, prior, err := view.Allocate(req.Address, req.DUID, req.IAID, req.SubnetID, req.PreferredLifetime, req.ValidLifetime, req.Now)
	if err != nil {
		return Result{}, err
	}

	finalName := d.ReplyName
	if d.DeferNameSynthesis {
		finalName = nameutil.SynthesizeFromAddress(req.Address, policy.DefaultSuffix)
		d.ReplyName = finalName
		d.ReplyClassification = wire.Full
	}

	changed := current.Hostname != finalName || current.FQDNForward != d.DoForward || current.FQDNReverse != d.DoReverse

	// Case 4: expired lease reused by a different tenant — remove the
	// previous tenant's records (from the prior lease snapshot) before
	// adding the new tenant's.
	if prior != nil && prior.HoldsDNS() {
		removeReq, err := ncr.CreateRemovalNameChangeRequest(prior)
		if err != nil {
			return Result{}, err
		}
		if removeReq != nil {
			queue.Enqueue(*removeReq)
		}
	} else if prior == nil && changed && hadDNSBeforeUpdate(current) {
		// Case 3: same client, changed name/flags — remove the prior
		// (name, flags) before updating and adding the new one. We must
		// snapshot the lease's previous DNS state before UpdateFQDN
		// overwrites it.
		previous := &lease.Lease6{
			Address:       current.Address,
			DUID:          current.DUID,
			Hostname:      current.Hostname,
			FQDNForward:   current.FQDNForward,
			FQDNReverse:   current.FQDNReverse,
			ValidLifetime: current.ValidLifetime,
		}
		removeReq, err := ncr.CreateRemovalNameChangeRequest(previous)
		if err != nil {
			return Result{}, err
		}
		if removeReq != nil {
			queue.Enqueue(*removeReq)
		}
	}

	if err := view.UpdateFQDN(req.Address, finalName, d.DoForward, d.DoReverse); err != nil {
		return Result{}, err
	}

	if changed && (d.DoForward || d.DoReverse) {
		addReqs, err := ncr.CreateNameChangeRequests(&ncr.Answer{
			DUID:          req.DUID,
			DoForward:     d.DoForward,
			DoReverse:     d.DoReverse,
			CanonicalName: finalName,
			IANAs: []ncr.AnswerIA{
				{Addrs: []netip.Addr{req.Address}, ValidLifetime: req.ValidLifetime},
			},
		})
		if err != nil {
			return Result{}, err
		}
		queue.EnqueueAll(addReqs...)
	}

	return Result{ReplyFQDN: d.EncodeReply(), Decision: &d}, nil
}

func hadDNSBeforeUpdate(l *lease.Lease6) bool {
	return l.Hostname != "" && (l.FQDNForward || l.FQDNReverse)
}

// ProcessRelease implements §4.F's Release handling: if the lease holds
// any DNS records, enqueue a single CHG_REMOVE; then delete the lease.
func ProcessRelease(view lease.LeaseView, queue *ncr.Queue, addr netip.Addr) error {
	l, ok := view.Lookup(addr)
	if !ok {
		return fmt.Errorf("process: no lease for address %s", addr)
	}

	if l.HoldsDNS() {
		removeReq, err := ncr.CreateRemovalNameChangeRequest(l)
		if err != nil {
			return err
		}
		if removeReq != nil {
			queue.Enqueue(*removeReq)
		}
	}

	return view.Delete(addr)
}
