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

package ifacemgr

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"syscall"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"golang.org/x/sys/unix"

	"github.com/sclark007/kea/internal/dhcperr"
)

// listenConfig sets SO_REUSEADDR on every socket this package opens,
// before bind, so a restarted daemon doesn't fail to rebind a port still
// draining from the previous process — the same reason §4.G's openSocket
// requires it.
var listenConfig = net.ListenConfig{
	Control: func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		if err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		}); err != nil {
			return err
		}
		return sockErr
	},
}

func listenUDP(network string, laddr *net.UDPAddr) (*net.UDPConn, error) {
	pc, err := listenConfig.ListenPacket(context.Background(), network, laddr.String())
	if err != nil {
		return nil, err
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("ifacemgr: listen %s %s did not yield a UDP socket", network, laddr)
	}
	return conn, nil
}

// OpenSockets4 opens one UDP4 socket per address of every usable interface,
// bound to (addr, port). Returns true iff at least one socket was opened.
func (m *Mgr) OpenSockets4(port int) (bool, error) {
	opened := false
	for _, iface := range m.Interfaces() {
		if !iface.Usable() {
			continue
		}
		for _, ba := range iface.Addrs {
			if ba.Family != unix.AF_INET {
				continue
			}
			if _, err := m.OpenSocket(iface.Name, ba.Addr, port); err != nil {
				return opened, err
			}
			opened = true
		}
	}
	return opened, nil
}

// OpenSockets6 opens one UDP6 socket per address of every usable
// interface, bound to (addr, port), and joins the
// All_DHCP_Relay_Agents_and_Servers multicast group on that interface. On
// Linux, a second socket bound to the multicast address itself is also
// opened; BSD omits this second socket (Open Question 3: the asymmetry is
// retained as-is). Returns true iff at least one socket was opened.
func (m *Mgr) OpenSockets6(port int) (bool, error) {
	opened := false
	for _, iface := range m.Interfaces() {
		if !iface.Usable() {
			continue
		}
		for _, ba := range iface.Addrs {
			if ba.Family != unix.AF_INET6 {
				continue
			}
			sock, err := m.OpenSocket(iface.Name, ba.Addr, port)
			if err != nil {
				return opened, err
			}
			opened = true

			if err := joinMulticast6(sock, iface); err != nil {
				return opened, err
			}
			if multicastBoundSocketSupported() {
				if _, err := m.openMulticastBoundSocket6(iface, port); err != nil {
					return opened, err
				}
			}
		}
	}
	return opened, nil
}

// OpenSocket opens and binds a single UDP socket on ifname's address,
// enabling the ancillary-data options each family needs.
func (m *Mgr) OpenSocket(ifname string, addr netip.Addr, port int) (*SocketInfo, error) {
	iface, err := m.ByName(ifname)
	if err != nil {
		return nil, err
	}

	var family int
	switch {
	case addr.Is4() || addr.Is4In6():
		family = unix.AF_INET
	case addr.Is6():
		family = unix.AF_INET6
	default:
		return nil, fmt.Errorf("ifacemgr: address %s is neither IPv4 nor IPv6: %w", addr, dhcperr.ErrBadValue)
	}

	network := "udp6"
	laddr := &net.UDPAddr{IP: net.IP(addr.AsSlice()), Port: port}
	if family == unix.AF_INET {
		network = "udp4"
	} else if addr.Is6() && addr.IsLinkLocalUnicast() && !iface.Loopback {
		laddr.Zone = iface.Name
	}

	conn, err := listenUDP(network, laddr)
	if err != nil {
		return nil, fmt.Errorf("ifacemgr: listen %s %s: %w", network, laddr, dhcperr.ErrUnexpected)
	}

	if err := enableAncillaryData(conn, family); err != nil {
		conn.Close()
		return nil, err
	}

	sock := &SocketInfo{BoundAddr: addr, Port: port, Family: family, conn: conn}
	iface.addSocket(sock)
	return sock, nil
}

// enableAncillaryData sets the per-packet control-data options §4.G
// requires: IP_PKTINFO for IPv4; IPV6_RECVPKTINFO (falling back to
// IPV6_PKTINFO on platforms without it) for IPv6. SO_REUSEADDR is set
// separately, by listenConfig, before the socket is bound.
func enableAncillaryData(conn *net.UDPConn, family int) error {
	if family == unix.AF_INET {
		p := ipv4.NewPacketConn(conn)
		if err := p.SetControlMessage(ipv4.FlagDst|ipv4.FlagInterface, true); err != nil {
			return fmt.Errorf("ifacemgr: set IPv4 control message flags: %w", dhcperr.ErrUnexpected)
		}
		return nil
	}

	p := ipv6.NewPacketConn(conn)
	if err := p.SetControlMessage(ipv6.FlagDst|ipv6.FlagInterface, true); err != nil {
		return fmt.Errorf("ifacemgr: set IPv6 control message flags (RECVPKTINFO, falling back to PKTINFO): %w", dhcperr.ErrUnexpected)
	}
	return nil
}

// joinMulticast6 joins the All_DHCP_Relay_Agents_and_Servers group on the
// interface the socket was opened on, via a raw IPV6_JOIN_GROUP
// setsockopt — the same call the DHCPv6 reference implementation makes
// (ipv6_mreq{multiaddr, interface}).
func joinMulticast6(sock *SocketInfo, iface *Iface) error {
	rawConn, ok := sock.conn.(syscall.Conn)
	if !ok {
		sock.Close()
		return fmt.Errorf("ifacemgr: socket on %s does not support raw control: %w", iface.Name, dhcperr.ErrUnexpected)
	}
	sc, err := rawConn.SyscallConn()
	if err != nil {
		sock.Close()
		return fmt.Errorf("ifacemgr: raw control on %s: %w", iface.Name, dhcperr.ErrUnexpected)
	}

	group := netip.MustParseAddr(AllDHCPRelayAgentsAndServers).As16()
	mreq := &unix.IPv6Mreq{Multiaddr: group, Interface: uint32(iface.Index)}

	var sockErr error
	if err := sc.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptIPv6Mreq(int(fd), unix.IPPROTO_IPV6, unix.IPV6_JOIN_GROUP, mreq)
	}); err != nil {
		sock.Close()
		return fmt.Errorf("ifacemgr: control on %s: %w", iface.Name, dhcperr.ErrUnexpected)
	}
	if sockErr != nil {
		sock.Close()
		return fmt.Errorf("ifacemgr: join multicast group %s on %s: %w", AllDHCPRelayAgentsAndServers, iface.Name, dhcperr.ErrUnexpected)
	}
	return nil
}

// openMulticastBoundSocket6 opens the second, Linux-only socket bound
// directly to the multicast address, per §4.G's openSockets6 contract. An
// interface already holding such a socket on port keeps its existing one.
func (m *Mgr) openMulticastBoundSocket6(iface *Iface, port int) (*SocketInfo, error) {
	group, err := netip.ParseAddr(AllDHCPRelayAgentsAndServers)
	if err != nil {
		return nil, fmt.Errorf("ifacemgr: parse multicast group: %w", dhcperr.ErrUnexpected)
	}
	if existing := iface.findSocket(group, port, unix.AF_INET6, true); existing != nil {
		return existing, nil
	}
	conn, err := listenUDP("udp6", &net.UDPAddr{IP: net.IP(group.AsSlice()), Port: port, Zone: iface.Name})
	if err != nil {
		return nil, fmt.Errorf("ifacemgr: listen multicast udp6 on %s: %w", iface.Name, dhcperr.ErrUnexpected)
	}
	if err := enableAncillaryData(conn, unix.AF_INET6); err != nil {
		conn.Close()
		return nil, err
	}
	sock := &SocketInfo{BoundAddr: group, Port: port, Family: unix.AF_INET6, MulticastBound: true, conn: conn}
	iface.addSocket(sock)
	return sock, nil
}

// Send transmits pkt, pinning the egress interface via an IPV6_PKTINFO
// (or IP_PKTINFO) ancillary control message.
func (m *Mgr) Send(pkt *Packet) error {
	sock, err := m.GetSocket(pkt)
	if err != nil {
		return err
	}

	dst := &net.UDPAddr{IP: net.IP(pkt.RemoteAddr.AsSlice()), Port: pkt.RemotePort}

	if pkt.RemoteAddr.Is6() {
		p := ipv6.NewPacketConn(sock.conn)
		cm := &ipv6.ControlMessage{IfIndex: pkt.IfIndex}
		if pkt.LocalAddr.IsValid() {
			cm.Src = net.IP(pkt.LocalAddr.AsSlice())
		}
		if _, err := p.WriteTo(pkt.Data, cm, dst); err != nil {
			return fmt.Errorf("ifacemgr: sendmsg to %s: %w", dst, dhcperr.ErrUnexpected)
		}
		return nil
	}

	p := ipv4.NewPacketConn(sock.conn)
	cm := &ipv4.ControlMessage{IfIndex: pkt.IfIndex}
	if pkt.LocalAddr.IsValid() {
		cm.Src = net.IP(pkt.LocalAddr.AsSlice())
	}
	if _, err := p.WriteTo(pkt.Data, cm, dst); err != nil {
		return fmt.Errorf("ifacemgr: sendmsg to %s: %w", dst, dhcperr.ErrUnexpected)
	}
	return nil
}

// GetSocket selects an open socket on pkt's named interface by family,
// rejecting multicast-bound sockets for unicast sends.
func (m *Mgr) GetSocket(pkt *Packet) (*SocketInfo, error) {
	iface, err := m.ByName(pkt.IfName)
	if err != nil {
		return nil, err
	}
	family := unix.AF_INET6
	if pkt.RemoteAddr.Is4() {
		family = unix.AF_INET
	}
	sock := iface.findSocket(netip.Addr{}, 0, family, false)
	if sock == nil {
		return nil, fmt.Errorf("ifacemgr: no usable socket on %s for family %d: %w", pkt.IfName, family, dhcperr.ErrUnexpected)
	}
	return sock, nil
}

// Receive6 performs a blocking read on a chosen bound IPv6 socket,
// preferring a multicast-bound socket if one is open, otherwise the first
// non-multicast IPv6 socket found; discards datagrams lacking PKTINFO
// ancillary data.
func (m *Mgr) Receive6() (*Packet, error) {
	sock, iface := m.chooseReceiveSocket(unix.AF_INET6)
	if sock == nil {
		return nil, fmt.Errorf("ifacemgr: no open IPv6 socket: %w", dhcperr.ErrUnexpected)
	}

	p := ipv6.NewPacketConn(sock.conn)
	buf := make([]byte, 65536)
	n, cm, src, err := p.ReadFrom(buf)
	if err != nil {
		return nil, fmt.Errorf("ifacemgr: recvmsg: %w", dhcperr.ErrUnexpected)
	}
	if cm == nil {
		return nil, nil // no PKTINFO ancillary data: discard per §4.G.
	}

	udpSrc := src.(*net.UDPAddr)
	remote, _ := netip.AddrFromSlice(udpSrc.IP)
	local, _ := netip.AddrFromSlice(cm.Dst)

	ifName := iface.Name
	if owner, err := m.ByIndex(cm.IfIndex); err == nil {
		ifName = owner.Name
	}

	return &Packet{
		Data:       buf[:n],
		LocalAddr:  local.Unmap(),
		RemoteAddr: remote.Unmap(),
		RemotePort: udpSrc.Port,
		IfIndex:    cm.IfIndex,
		IfName:     ifName,
	}, nil
}

// Receive4 is Receive6's IPv4 counterpart.
func (m *Mgr) Receive4() (*Packet, error) {
	sock, iface := m.chooseReceiveSocket(unix.AF_INET)
	if sock == nil {
		return nil, fmt.Errorf("ifacemgr: no open IPv4 socket: %w", dhcperr.ErrUnexpected)
	}

	p := ipv4.NewPacketConn(sock.conn)
	buf := make([]byte, 65536)
	n, cm, src, err := p.ReadFrom(buf)
	if err != nil {
		return nil, fmt.Errorf("ifacemgr: recvmsg: %w", dhcperr.ErrUnexpected)
	}
	if cm == nil {
		return nil, nil
	}

	udpSrc := src.(*net.UDPAddr)
	remote, _ := netip.AddrFromSlice(udpSrc.IP)
	local, _ := netip.AddrFromSlice(cm.Dst)

	ifName := iface.Name
	if owner, err := m.ByIndex(cm.IfIndex); err == nil {
		ifName = owner.Name
	}

	return &Packet{
		Data:       buf[:n],
		LocalAddr:  local.Unmap(),
		RemoteAddr: remote.Unmap(),
		RemotePort: udpSrc.Port,
		IfIndex:    cm.IfIndex,
		IfName:     ifName,
	}, nil
}

func (m *Mgr) chooseReceiveSocket(family int) (*SocketInfo, *Iface) {
	var fallback *SocketInfo
	var fallbackIface *Iface
	for _, iface := range m.Interfaces() {
		for _, sock := range iface.socketsSnapshot() {
			if sock.Family != family {
				continue
			}
			if sock.MulticastBound {
				return sock, iface
			}
			if fallback == nil {
				fallback = sock
				fallbackIface = iface
			}
		}
	}
	return fallback, fallbackIface
}

// multicastBoundSocketSupported reports whether the second, multicast-
// address-bound socket OpenSockets6 opens on Linux should be attempted on
// this platform.
func multicastBoundSocketSupported() bool {
	return runtimeIsLinux
}
