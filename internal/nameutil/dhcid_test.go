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

package nameutil

import (
	"bytes"
	"testing"
)

var testDUID = []byte{0x00, 0x01, 0x00, 0x01, 0x2a, 0x2b, 0x2c, 0x2d, 0x00, 0x0c, 0x01, 0x02, 0x03, 0x04}

func TestDHCID_CaseInvariant(t *testing.T) {
	lower := DHCID(testDUID, "myhost.example.com.")
	upper := DHCID(testDUID, "MYHOST.EXAMPLE.COM.")
	if !bytes.Equal(lower, upper) {
		t.Fatalf("DHCID differs by input case: %x vs %x", lower, upper)
	}
}

func TestDHCID_Layout(t *testing.T) {
	d := DHCID(testDUID, "myhost.example.com.")
	if len(d) != 35 {
		t.Fatalf("DHCID length = %d, want 35 (2 type + 1 digest-type + 32 digest)", len(d))
	}
	if d[0] != 0x00 || d[1] != 0x02 {
		t.Errorf("identifier-type-code = %x %x, want 00 02", d[0], d[1])
	}
	if d[2] != 0x01 {
		t.Errorf("digest-type-code = %x, want 01 (SHA-256)", d[2])
	}
}

func TestDHCID_DifferentNamesDiffer(t *testing.T) {
	a := DHCID(testDUID, "myhost.example.com.")
	b := DHCID(testDUID, "otherhost.example.com.")
	if bytes.Equal(a, b) {
		t.Fatalf("DHCID for distinct names collided: %x", a)
	}
}

func TestDHCID_SameInputsDeterministic(t *testing.T) {
	a := DHCIDHex(testDUID, "myhost.example.com.")
	b := DHCIDHex(testDUID, "myhost.example.com.")
	if a != b {
		t.Fatalf("DHCIDHex not deterministic: %s vs %s", a, b)
	}
	if len(a) != 70 {
		t.Fatalf("DHCIDHex length = %d, want 70 hex chars", len(a))
	}
}
