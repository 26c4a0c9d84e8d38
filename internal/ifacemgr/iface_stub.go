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

//go:build !linux && !darwin && !freebsd

package ifacemgr

import (
	"bufio"
	"fmt"
	"net/netip"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// interfacesStubFile is read at IfaceMgr construction on operating
// systems with neither a netlink nor a getifaddrs backend available. Each
// line is "<ifname> <link-local-addr>"; the stub exists only to keep
// tests portable, per §4.G/§6.
const interfacesStubFile = "interfaces.txt"

// detectInterfaces reads interfacesStubFile from the working directory.
func detectInterfaces() ([]*Iface, error) {
	f, err := os.Open(interfacesStubFile)
	if err != nil {
		return nil, fmt.Errorf("ifacemgr: open %s: %w", interfacesStubFile, err)
	}
	defer f.Close()

	var ifaces []*Iface
	index := 1
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("ifacemgr: malformed line %q in %s", line, interfacesStubFile)
		}
		addr, err := netip.ParseAddr(fields[1])
		if err != nil {
			return nil, fmt.Errorf("ifacemgr: invalid address %q in %s: %w", fields[1], interfacesStubFile, err)
		}
		family := unix.AF_INET6
		if addr.Is4() {
			family = unix.AF_INET
		}
		ifaces = append(ifaces, &Iface{
			Name:      fields[0],
			Index:     index,
			Up:        true,
			Running:   true,
			Multicast: true,
			Addrs:     []BoundAddr{{Addr: addr, Family: family}},
		})
		index++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ifacemgr: read %s: %w", interfacesStubFile, err)
	}
	return ifaces, nil
}
