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

// Package dhcperr defines the error taxonomy shared by the wire codec, FQDN
// negotiator, NCR emitter, and interface manager, so callers can distinguish
// categories with errors.Is regardless of which package produced the error.
package dhcperr

import "errors"

var (
	// ErrInvalidOption marks a malformed option on the wire (FQDN, IA_NA,
	// IA_ADDR, Status Code). The packet carrying it should be dropped; it
	// is never fatal to the process.
	ErrInvalidOption = errors.New("dhcperr: invalid option")

	// ErrBadValue marks API misuse: an unknown interface name, or an
	// address family that is neither IPv4 nor IPv6.
	ErrBadValue = errors.New("dhcperr: bad value")

	// ErrUnexpected marks an OS-level failure (socket/bind/setsockopt/
	// sendmsg/recvmsg) or a violated NCR construction precondition
	// (missing answer, missing DUID). Surfaced to the caller, who decides
	// whether to continue.
	ErrUnexpected = errors.New("dhcperr: unexpected failure")
)
