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

// Package ifacemgr enumerates local network interfaces and owns the
// UDPv4/UDPv6 sockets opened on them, including link-scoped multicast
// membership and the ancillary control data needed to pin egress/ingress
// interfaces on a datagram.
package ifacemgr

import (
	"fmt"
	"net"
	"net/netip"
	"sync"

	"github.com/sclark007/kea/internal/dhcperr"
)

// AllDHCPRelayAgentsAndServers is the RFC 8415 link-scoped multicast group
// DHCPv6 servers and relays listen on.
const AllDHCPRelayAgentsAndServers = "ff02::1:2"

// BoundAddr is one address bound to an Iface, carrying its family.
type BoundAddr struct {
	Addr   netip.Addr
	Family int // unix.AF_INET or unix.AF_INET6
}

// Iface is a single network interface along with the sockets opened on it.
// Matches the spec's data model: name, OS ifindex, flags, bound addresses,
// and the list of open sockets (at most one per (address, port, family)).
type Iface struct {
	Name         string
	Index        int
	HardwareAddr net.HardwareAddr
	Loopback     bool
	Up           bool
	Running      bool
	Multicast    bool
	Broadcast    bool
	Addrs        []BoundAddr

	mu      sync.Mutex
	sockets []*SocketInfo
}

// Usable reports whether OpenSockets4/6 should consider this interface:
// neither loopback, down, nor not-running.
func (i *Iface) Usable() bool {
	return !i.Loopback && i.Up && i.Running
}

func (i *Iface) addSocket(s *SocketInfo) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.sockets = append(i.sockets, s)
}

func (i *Iface) findSocket(addr netip.Addr, port int, family int, allowMulticastBound bool) *SocketInfo {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, s := range i.sockets {
		if s.Family != family {
			continue
		}
		if !allowMulticastBound && s.MulticastBound {
			continue
		}
		if port != 0 && s.Port != port {
			continue
		}
		if addr.IsValid() && s.BoundAddr != addr {
			continue
		}
		return s
	}
	return nil
}

func (i *Iface) socketsSnapshot() []*SocketInfo {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]*SocketInfo, len(i.sockets))
	copy(out, i.sockets)
	return out
}

// closeAllSockets closes and removes every socket owned by this interface,
// per the Iface-destruction lifecycle rule.
func (i *Iface) closeAllSockets() error {
	i.mu.Lock()
	sockets := i.sockets
	i.sockets = nil
	i.mu.Unlock()

	var firstErr error
	for _, s := range sockets {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SocketInfo is one open UDP socket, owned by exactly one Iface and closed
// when that Iface's sockets are torn down (Mgr.Close). There is no
// operation that removes a single socket from its Iface.
type SocketInfo struct {
	BoundAddr      netip.Addr
	Port           int
	Family         int
	MulticastBound bool

	conn net.PacketConn
}

// Close releases the underlying file descriptor.
func (s *SocketInfo) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Packet is a single datagram plus the out-of-band addressing information
// §4.G's send/receive contract carries: local (destination) address,
// remote (source) address/port, and the ingress/egress interface.
type Packet struct {
	Data       []byte
	LocalAddr  netip.Addr
	RemoteAddr netip.Addr
	RemotePort int
	IfIndex    int
	IfName     string
}

// Mgr is the process-wide interface/socket manager: a single instance
// constructed at startup and passed by reference to handlers (per the
// spec's design note preferring explicit ownership over a singleton).
type Mgr struct {
	mu     sync.RWMutex
	ifaces []*Iface
}

// New constructs an IfaceMgr, populating its interface list via
// detectInterfaces (OS-specific: netlink on Linux, net.Interfaces()
// elsewhere with a POSIX backend, or the interfaces.txt stub on anything
// else).
func New() (*Mgr, error) {
	ifaces, err := detectInterfaces()
	if err != nil {
		return nil, fmt.Errorf("ifacemgr: detect interfaces: %w", err)
	}
	return &Mgr{ifaces: ifaces}, nil
}

// Interfaces returns the currently known interfaces.
func (m *Mgr) Interfaces() []*Iface {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Iface, len(m.ifaces))
	copy(out, m.ifaces)
	return out
}

// ByName returns the interface with the given name, or BadValue if none
// exists.
func (m *Mgr) ByName(name string) (*Iface, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, i := range m.ifaces {
		if i.Name == name {
			return i, nil
		}
	}
	return nil, fmt.Errorf("ifacemgr: unknown interface %q: %w", name, dhcperr.ErrBadValue)
}

// ByIndex returns the interface with the given OS ifindex.
func (m *Mgr) ByIndex(index int) (*Iface, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, i := range m.ifaces {
		if i.Index == index {
			return i, nil
		}
	}
	return nil, fmt.Errorf("ifacemgr: unknown ifindex %d: %w", index, dhcperr.ErrBadValue)
}

// Close tears down every open socket on every interface.
func (m *Mgr) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	for _, i := range m.ifaces {
		if err := i.closeAllSockets(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
