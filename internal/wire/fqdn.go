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

	"github.com/sclark007/kea/internal/dhcperr"
)

// Flag bits of the Client FQDN option's single flags octet (RFC 4704 §4.1).
// The remaining five bits are reserved, must be sent zero, and are ignored
// on receipt.
const (
	FlagS uint8 = 1 << 0 // server performs forward updates
	FlagO uint8 = 1 << 1 // server overrode the client's S bit
	FlagN uint8 = 1 << 2 // no DNS updates should be performed
)

const reservedFlagMask = ^(FlagS | FlagO | FlagN)

// FQDNOption is the decoded Client FQDN option (RFC 4704).
type FQDNOption struct {
	Flags          uint8
	DomainName     string
	Classification Classification
}

func (o *FQDNOption) Code() OptionCode { return OptionClientFQDN }

func (o *FQDNOption) ToBytes() []byte {
	buf := make([]byte, 0, 1+len(o.DomainName)+1)
	buf = append(buf, o.Flags&^reservedFlagMask)
	buf = append(buf, encodeDomainName(o.DomainName, o.Classification)...)
	return buf
}

// DecodeFQDN parses the payload of a Client FQDN option (the flags octet
// followed by the domain name). It enforces the data-model invariant that
// N=1 implies S=0.
func DecodeFQDN(data []byte) (*FQDNOption, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("wire: FQDN option missing flags octet: %w", dhcperr.ErrInvalidOption)
	}
	flags := data[0] &^ reservedFlagMask

	name, class, err := decodeDomainName(data[1:])
	if err != nil {
		return nil, err
	}

	if flags&FlagN != 0 && flags&FlagS != 0 {
		return nil, fmt.Errorf("wire: FQDN option has N=1 and S=1: %w", dhcperr.ErrInvalidOption)
	}

	return &FQDNOption{Flags: flags, DomainName: name, Classification: class}, nil
}
