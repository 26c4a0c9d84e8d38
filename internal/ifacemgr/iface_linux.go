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

//go:build linux

package ifacemgr

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// detectInterfaces enumerates interfaces via netlink, the style the pack's
// own driver code (vishvananda/netlink's LinkList/AddrList) uses for
// accurate up/running/multicast flags and ifindex, rather than the
// coarser stdlib net.Interfaces().
func detectInterfaces() ([]*Iface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("ifacemgr: netlink.LinkList: %w", err)
	}

	ifaces := make([]*Iface, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		iface := &Iface{
			Name:         attrs.Name,
			Index:        attrs.Index,
			HardwareAddr: attrs.HardwareAddr,
			Loopback:     attrs.Flags&net.FlagLoopback != 0,
			Up:           attrs.OperState == netlink.OperUp || attrs.Flags&net.FlagUp != 0,
			Running:      attrs.Flags&net.FlagRunning != 0,
			Multicast:    attrs.Flags&net.FlagMulticast != 0,
			Broadcast:    attrs.Flags&net.FlagBroadcast != 0,
		}

		for _, family := range []int{unix.AF_INET, unix.AF_INET6} {
			addrs, err := netlink.AddrList(link, family)
			if err != nil {
				continue
			}
			for _, a := range addrs {
				addr, ok := netip.AddrFromSlice(a.IP)
				if !ok {
					continue
				}
				iface.Addrs = append(iface.Addrs, BoundAddr{Addr: addr.Unmap(), Family: family})
			}
		}

		ifaces = append(ifaces, iface)
	}
	return ifaces, nil
}
