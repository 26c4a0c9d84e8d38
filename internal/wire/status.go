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

	"github.com/insomniacslk/dhcp/iana"
	"github.com/sclark007/kea/internal/dhcperr"
)

// StatusCodeOption is the Status Code option (RFC 8415 §21.13). Its status
// constants are reused directly from the DHCPv6 status registry carried by
// github.com/insomniacslk/dhcp/iana, rather than re-declaring them.
type StatusCodeOption struct {
	StatusCode iana.StatusCode
	Message    string
}

func (o *StatusCodeOption) Code() OptionCode { return OptionStatusCode }

func (o *StatusCodeOption) ToBytes() []byte {
	buf := make([]byte, 0, 2+len(o.Message))
	buf = appendUint16(buf, uint16(o.StatusCode))
	buf = append(buf, o.Message...)
	return buf
}

// DecodeStatusCode parses a Status Code option payload.
func DecodeStatusCode(data []byte) (*StatusCodeOption, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("wire: Status Code option too short (%d bytes): %w", len(data), dhcperr.ErrInvalidOption)
	}
	return &StatusCodeOption{
		StatusCode: iana.StatusCode(decodeUint16(data[0:2])),
		Message:    string(data[2:]),
	}, nil
}
