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

// Package fqdn negotiates which party (client or server) performs forward
// and reverse DNS updates for a DHCPv6 lease, per RFC 4704's N/S/O flag
// rules, and produces the reply Client FQDN option to attach to the
// ADVERTISE/REPLY.
package fqdn

import (
	"github.com/sclark007/kea/internal/nameutil"
	"github.com/sclark007/kea/internal/wire"
)

// PolicyConfig carries the server's configured DDNS update policy, read by
// Negotiate.
type PolicyConfig struct {
	AllowClientUpdate bool
	// OverrideClientUpdate is carried for data-model parity with Kea's
	// "override-client-update" setting but is not independently consulted
	// by Negotiate: the negotiation rules key entirely off
	// AllowClientUpdate, matching the decision table as specified.
	OverrideClientUpdate  bool
	GenerateNameWhenEmpty bool
	DefaultSuffix         string
}

// Decision is the negotiated outcome for a single client message: which
// updates the server will perform, and the FQDN option to echo back.
type Decision struct {
	DoForward            bool
	DoReverse            bool
	ReplyFlags           uint8
	ReplyName            string
	ReplyClassification  wire.Classification
	// DeferNameSynthesis is set when the input name was EMPTY and the
	// policy's GenerateNameWhenEmpty is on; the final name can only be
	// computed once an address has been assigned, so the caller
	// synthesizes it (nameutil.SynthesizeFromAddress) after allocation.
	// A non-empty client name is never replaced by a synthesized one.
	DeferNameSynthesis bool
}

// Negotiate applies the five ordered rules of the FQDN negotiation
// algorithm to a decoded Client FQDN option and the server's policy.
func Negotiate(client *wire.FQDNOption, policy PolicyConfig) Decision {
	// Rule 1: N=1 — no updates performed, echo the canonicalized name back.
	if client.Flags&wire.FlagN != 0 {
		name := canonicalizeIfPresent(client, policy)
		return Decision{
			ReplyFlags:          wire.FlagN,
			ReplyName:           name,
			ReplyClassification: classificationFor(name),
		}
	}

	// Rule 2: client asked the server to perform the forward update.
	if client.Flags&wire.FlagS != 0 {
		name := canonicalizeIfPresent(client, policy)
		d := Decision{
			DoForward:           true,
			DoReverse:           true,
			ReplyFlags:          wire.FlagS,
			ReplyName:           name,
			ReplyClassification: classificationFor(name),
		}
		applyDeferredSynthesis(&d, client, policy)
		return d
	}

	// Rule 3: client wants to perform the forward update itself (S=0,
	// N=0).
	var d Decision
	if !policy.AllowClientUpdate {
		name := canonicalizeIfPresent(client, policy)
		d = Decision{
			DoForward:           true,
			DoReverse:           true,
			ReplyFlags:          wire.FlagS | wire.FlagO,
			ReplyName:           name,
			ReplyClassification: classificationFor(name),
		}
	} else {
		name := canonicalizeIfPresent(client, policy)
		d = Decision{
			DoForward:           false,
			DoReverse:           true,
			ReplyFlags:          0,
			ReplyName:           name,
			ReplyClassification: classificationFor(name),
		}
	}
	applyDeferredSynthesis(&d, client, policy)
	return d
}

// canonicalizeIfPresent canonicalizes the client's name for echoing back,
// completing a PARTIAL name against the policy's default suffix per
// §4.B's PARTIAL→FULL completion rule; an EMPTY name stays the empty
// string (rule 4 handles synthesis separately).
func canonicalizeIfPresent(client *wire.FQDNOption, policy PolicyConfig) string {
	if client.Classification == wire.Empty || client.DomainName == "" {
		return ""
	}
	if client.Classification == wire.Partial {
		return nameutil.CompletePartial(client.DomainName, policy.DefaultSuffix)
	}
	return nameutil.Canonicalize(client.DomainName)
}

// classificationFor implements rule 5: the reply option's classification is
// FULL if its name is non-empty, PARTIAL if empty (ServerFqdnDecision never
// carries EMPTY — only the client-side option does).
func classificationFor(name string) wire.Classification {
	if name == "" {
		return wire.Partial
	}
	return wire.Full
}

// applyDeferredSynthesis implements rule 4: when the input name was EMPTY
// and the policy's GenerateNameWhenEmpty is on, the reply carries an empty
// PARTIAL name and the decision is flagged for deferred synthesis after
// address assignment (nameutil.SynthesizeFromAddress). There is no policy
// setting that replaces a non-empty client name with a generated one.
func applyDeferredSynthesis(d *Decision, client *wire.FQDNOption, policy PolicyConfig) {
	if client.Classification != wire.Empty && client.DomainName != "" {
		return
	}
	if !policy.GenerateNameWhenEmpty {
		return
	}
	d.ReplyName = ""
	d.ReplyClassification = wire.Partial
	d.DeferNameSynthesis = true
}

// EncodeReply renders a Decision's reply fields as the Client FQDN option
// to attach to the outgoing packet.
func (d Decision) EncodeReply() *wire.FQDNOption {
	return &wire.FQDNOption{
		Flags:          d.ReplyFlags,
		DomainName:     d.ReplyName,
		Classification: d.ReplyClassification,
	}
}
