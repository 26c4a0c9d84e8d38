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

package wire

import (
	"fmt"
	"strings"

	"github.com/sclark007/kea/internal/dhcperr"
)

// Classification describes how a domain name appeared on the wire, per
// RFC 4704 §3: a non-empty canonical-wire-format name terminated by the
// zero length label is FULL; a non-empty sequence of labels with no
// terminating zero label is PARTIAL; an empty name is EMPTY.
type Classification string

const (
	Full    Classification = "FULL"
	Partial Classification = "PARTIAL"
	Empty   Classification = "EMPTY"
)

const (
	maxLabelLength = 63
	maxNameLength  = 255
)

// decodeDomainName parses the label sequence that follows the Client FQDN
// option's flag byte, returning the dotted name (no trailing dot for
// PARTIAL, trailing dot for FULL) and its classification.
func decodeDomainName(data []byte) (string, Classification, error) {
	if len(data) == 0 {
		return "", Empty, nil
	}

	var labels []string
	total := 0
	i := 0
	terminated := false
	for i < len(data) {
		n := int(data[i])
		i++
		if n == 0 {
			terminated = true
			break
		}
		if n > maxLabelLength {
			return "", "", fmt.Errorf("wire: label of %d octets exceeds 63: %w", n, dhcperr.ErrInvalidOption)
		}
		if i+n > len(data) {
			return "", "", fmt.Errorf("wire: truncated label: %w", dhcperr.ErrInvalidOption)
		}
		label := data[i : i+n]
		if err := validateLabel(label); err != nil {
			return "", "", err
		}
		labels = append(labels, string(label))
		total += n + 1
		i += n
	}

	if total > maxNameLength {
		return "", "", fmt.Errorf("wire: name of %d octets exceeds 255: %w", total, dhcperr.ErrInvalidOption)
	}
	if len(labels) == 0 {
		// A lone zero-length label (or nothing consumed) with no content
		// is the empty name, not a malformed one.
		return "", Empty, nil
	}

	name := strings.Join(labels, ".")
	if terminated {
		return name + ".", Full, nil
	}
	return name, Partial, nil
}

// validateLabel rejects control characters and embedded NUL bytes; DHCPv6
// FQDN labels otherwise follow the liberal "any octet" grammar of RFC 1035
// compressed labels, not the stricter LDH hostname grammar.
func validateLabel(label []byte) error {
	if len(label) == 0 {
		return fmt.Errorf("wire: empty label: %w", dhcperr.ErrInvalidOption)
	}
	for _, b := range label {
		if b < 0x20 || b == 0x7f {
			return fmt.Errorf("wire: illegal character 0x%02x in label: %w", b, dhcperr.ErrInvalidOption)
		}
	}
	return nil
}

// encodeDomainName renders name in the wire format dictated by want: FULL
// emits length-prefixed labels terminated by the zero label, PARTIAL emits
// the labels without a terminator, EMPTY emits nothing. name is expected to
// already be canonicalized (internal/nameutil) before reaching the codec.
func encodeDomainName(name string, want Classification) []byte {
	if want == Empty || name == "" {
		return nil
	}

	trimmed := strings.TrimSuffix(name, ".")
	var labels []string
	if trimmed != "" {
		labels = strings.Split(trimmed, ".")
	}

	var out []byte
	for _, label := range labels {
		out = append(out, byte(len(label)))
		out = append(out, label...)
	}
	if want == Full {
		out = append(out, 0)
	}
	return out
}
