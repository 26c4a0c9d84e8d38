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

// Command dhcp6fqdnd negotiates Client FQDN options on incoming DHCPv6
// Solicit/Request/Renew/Release messages, tracks the resulting hostname
// per lease, and emits DNS Name Change Requests downstream whenever a
// lease's forward or reverse DNS ownership changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/insomniacslk/dhcp/dhcpv6"
	"go.uber.org/zap"

	"github.com/sclark007/kea/internal/fqdn"
	"github.com/sclark007/kea/internal/ifacemgr"
	"github.com/sclark007/kea/internal/lease"
	"github.com/sclark007/kea/internal/ncr"
	"github.com/sclark007/kea/internal/process"
	"github.com/sclark007/kea/internal/wire"
)

// clientFQDNOptionCode is RFC 4704's option 39, requested via the
// library's generic option lookup since dhcpv6 predates the option and
// has no named constant for it.
const clientFQDNOptionCode = dhcpv6.OptionCode(39)

func main() {
	var (
		port              = flag.Int("port", 547, "UDP port to listen on")
		defaultSuffix     = flag.String("default-suffix", "example.com.", "suffix appended to partial or synthesized hostnames")
		allowClientUpdate = flag.Bool("allow-client-update", true, "honor S=0 client-does-forward-updates requests")
		generateOnEmpty   = flag.Bool("generate-name-when-empty", true, "synthesize a hostname from the leased address when the client sends none")
		development       = flag.Bool("development", false, "use zap's development logging config instead of production")
		delegatedPrefix   = flag.String("delegated-prefix", "2001:db8::/48", "delegated prefix the single demo subnet is carved from")
		subnetPrefixLen   = flag.Int("subnet-prefix-length", 64, "prefix length of the subnet carved out of -delegated-prefix")
		poolStartSuffix   = flag.String("pool-start", "::1:0:0:0", "pool start offset suffix within the subnet")
		poolEndSuffix     = flag.String("pool-end", "::ffff:ffff:ffff:ffff", "pool end offset suffix within the subnet")
	)
	flag.Parse()

	zapLog, err := newZapLogger(*development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dhcp6fqdnd: build logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()
	log := zapr.NewLogger(zapLog)

	subnetID, err := describeSubnet(log, *delegatedPrefix, *subnetPrefixLen, *poolStartSuffix, *poolEndSuffix)
	if err != nil {
		log.Error(err, "dhcp6fqdnd exited")
		os.Exit(1)
	}

	if err := run(*port, subnetID, fqdn.PolicyConfig{
		AllowClientUpdate:     *allowClientUpdate,
		GenerateNameWhenEmpty: *generateOnEmpty,
		DefaultSuffix:         *defaultSuffix,
	}, log); err != nil {
		log.Error(err, "dhcp6fqdnd exited")
		os.Exit(1)
	}
}

// describeSubnet carves the single demo subnet and lease pool this daemon
// serves out of -delegated-prefix, logging both so an operator can confirm
// the layout at startup; the resulting subnet name tags every lease this
// process hands out.
func describeSubnet(log logr.Logger, delegatedPrefix string, prefixLen int, poolStart, poolEnd string) (string, error) {
	base, err := lease.ParsePrefix(delegatedPrefix)
	if err != nil {
		return "", fmt.Errorf("dhcp6fqdnd: %w", err)
	}

	subnet, err := lease.CalculateSubnet(base, lease.SubnetConfig{Name: "subnet-0", Offset: 0, PrefixLength: prefixLen})
	if err != nil {
		return "", fmt.Errorf("dhcp6fqdnd: calculate subnet: %w", err)
	}

	pool, err := lease.CalculatePoolRange(subnet.CIDR, lease.PoolRangeConfig{Name: "pool-0", Start: poolStart, End: poolEnd})
	if err != nil {
		return "", fmt.Errorf("dhcp6fqdnd: calculate pool range: %w", err)
	}

	log.Info("subnet configured", "name", subnet.Name, "cidr", subnet.CIDR, "poolStart", pool.Start, "poolEnd", pool.End, "poolSize", pool.Size())
	return subnet.Name, nil
}

func newZapLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(port int, subnetID string, policy fqdn.PolicyConfig, log logr.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mgr, err := ifacemgr.New()
	if err != nil {
		return fmt.Errorf("dhcp6fqdnd: construct interface manager: %w", err)
	}
	defer mgr.Close()

	if opened, err := mgr.OpenSockets6(port); err != nil {
		return fmt.Errorf("dhcp6fqdnd: open sockets: %w", err)
	} else if !opened {
		return fmt.Errorf("dhcp6fqdnd: no usable interfaces found on port %d", port)
	}

	view := lease.NewMemLeaseView()
	queue := ncr.NewQueue()

	log.Info("listening", "port", port, "defaultSuffix", policy.DefaultSuffix)

	go drainQueue(ctx, queue, log)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		default:
		}

		pkt, err := mgr.Receive6()
		if err != nil {
			log.Error(err, "receive failed")
			continue
		}
		if pkt == nil {
			continue // datagram without PKTINFO ancillary data, discarded per the interface manager's contract.
		}

		reply, err := handlePacket(view, queue, policy, subnetID, pkt)
		if err != nil {
			log.Error(err, "dropping packet", "from", pkt.RemoteAddr, "iface", pkt.IfName)
			continue
		}
		if reply == nil {
			continue
		}

		if err := mgr.Send(reply); err != nil {
			log.Error(err, "send failed", "to", reply.RemoteAddr)
		}
	}
}

// handlePacket decodes one inbound DHCPv6 message, dispatches it to the
// matching processor, and encodes the reply. A Release produces no reply.
// Confirm/Rebind/Decline and any other message type outside
// Solicit/Request/Renew/Release is rejected with an error, so the caller
// drops the packet without a reply and without NCR side effects.
func handlePacket(view *lease.MemLeaseView, queue *ncr.Queue, policy fqdn.PolicyConfig, subnetID string, pkt *ifacemgr.Packet) (*ifacemgr.Packet, error) {
	outer, err := dhcpv6.FromBytes(pkt.Data)
	if err != nil {
		return nil, fmt.Errorf("dhcp6fqdnd: parse message: %w", err)
	}
	msg, err := outer.GetInnerMessage()
	if err != nil {
		return nil, fmt.Errorf("dhcp6fqdnd: unwrap relay envelope: %w", err)
	}

	clientID := msg.Options.ClientID()
	if clientID == nil {
		return nil, fmt.Errorf("dhcp6fqdnd: message carries no ClientID option")
	}

	ia := msg.Options.OneIANA()
	if ia == nil {
		return nil, fmt.Errorf("dhcp6fqdnd: message carries no IA_NA option")
	}

	req := process.Request{
		DUID:     clientID.Duid,
		IAID:     ia.IaId,
		SubnetID: subnetID,
	}
	if addrs := ia.Options.Addresses(); len(addrs) > 0 {
		req.Address, _ = netip.AddrFromSlice(addrs[0].IPv6Addr)
		req.PreferredLifetime = uint32(addrs[0].PreferredLifetime.Seconds())
		req.ValidLifetime = uint32(addrs[0].ValidLifetime.Seconds())
	}

	if raw := msg.GetOneOption(clientFQDNOptionCode); raw != nil {
		decoded, err := wire.DecodeFQDN(raw.ToBytes())
		if err != nil {
			return nil, fmt.Errorf("dhcp6fqdnd: decode Client FQDN option: %w", err)
		}
		req.ClientFQDN = decoded
	}

	var result process.Result
	switch msg.Type() {
	case dhcpv6.MessageTypeSolicit:
		result = process.ProcessSolicit(policy, req)
	case dhcpv6.MessageTypeRequest:
		result, err = process.ProcessRequest(view, queue, policy, req)
	case dhcpv6.MessageTypeRenew:
		result, err = process.ProcessRenew(view, queue, policy, req)
	case dhcpv6.MessageTypeRelease:
		if req.Address.IsValid() {
			err = process.ProcessRelease(view, queue, req.Address)
		}
		return nil, err
	default:
		return nil, fmt.Errorf("dhcp6fqdnd: message type %s is not handled", msg.Type())
	}
	if err != nil {
		return nil, err
	}

	var resp dhcpv6.DHCPv6
	if msg.Type() == dhcpv6.MessageTypeSolicit {
		resp, err = dhcpv6.NewAdvertiseFromSolicit(msg)
	} else {
		resp, err = dhcpv6.NewReplyFromMessage(msg)
	}
	if err != nil {
		return nil, fmt.Errorf("dhcp6fqdnd: build reply: %w", err)
	}

	replyMsg, ok := resp.(*dhcpv6.Message)
	if !ok {
		return nil, fmt.Errorf("dhcp6fqdnd: reply is not a plain message")
	}
	if result.ReplyFQDN != nil {
		replyMsg.Options.Add(&dhcpv6.OptionGeneric{
			OptionCode: clientFQDNOptionCode,
			OptionData: result.ReplyFQDN.ToBytes(),
		})
	}

	return &ifacemgr.Packet{
		Data:       replyMsg.ToBytes(),
		LocalAddr:  pkt.LocalAddr,
		RemoteAddr: pkt.RemoteAddr,
		RemotePort: pkt.RemotePort,
		IfIndex:    pkt.IfIndex,
		IfName:     pkt.IfName,
	}, nil
}

// drainQueue pops every pending NCR and logs its wire encoding. A real
// deployment would instead forward these over the TCP/TLS channel Kea's
// D2 daemon listens on; this daemon's job ends at producing a correctly
// ordered, correctly encoded queue.
func drainQueue(ctx context.Context, queue *ncr.Queue, log logr.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		encoded, ok, err := queue.PopEncoded()
		if err != nil {
			log.Error(err, "encode NCR failed")
			continue
		}
		if !ok {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		log.Info("ncr", "payload", string(encoded))
	}
}
