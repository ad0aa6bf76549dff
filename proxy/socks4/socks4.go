// Copyright 2026 The Corridor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package socks4 implements the client side of the SOCKS4 and SOCKS4a
// protocols, as described in https://www.openssh.com/txt/socks4.protocol and
// https://www.openssh.com/txt/socks4a.protocol.
package socks4

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
)

const (
	version    = 4
	cmdConnect = 1

	// The reply frame carries version 0, not 4.
	replyVersion = 0
	replyLen     = 8
)

// ReplyCode is the result code in the CD field of a SOCKS4 server reply.
type ReplyCode byte

const (
	// ReplyGranted means the request was granted and the tunnel is open.
	ReplyGranted = ReplyCode(90)
	// ErrRejected means the request was rejected or the server failed to
	// reach the destination.
	ErrRejected = ReplyCode(91)
	// ErrNoIdentd means the server could not reach the client's identd.
	ErrNoIdentd = ReplyCode(92)
	// ErrIdentdMismatch means identd reported a different user id.
	ErrIdentdMismatch = ReplyCode(93)
)

var _ error = ReplyCode(0)

// Error returns a human-readable description of the reply code.
func (e ReplyCode) Error() string {
	switch e {
	case ReplyGranted:
		return "request granted"
	case ErrRejected:
		return "request rejected or failed"
	case ErrNoIdentd:
		return "identd not reachable"
	case ErrIdentdMismatch:
		return "identd reported a different user id"
	default:
		return "reply code " + strconv.Itoa(int(e))
	}
}

// appendConnectRequest adds a SOCKS4 CONNECT request for address to b.
// Domain-name hosts use the SOCKS4a extension: the IP field is set to
// 0.0.0.1 and the hostname follows the user id, NUL-terminated.
//
//	+----+----+---------+-------+----------+----+[----------+----]
//	| VN | CD | DSTPORT | DSTIP |  USERID  | 00 [ HOSTNAME | 00 ]
//	+----+----+---------+-------+----------+----+[----------+----]
func appendConnectRequest(b []byte, address, userID string) ([]byte, error) {
	host, portText, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	port, err := strconv.ParseUint(portText, 10, 16)
	if err != nil {
		return nil, err
	}
	b = append(b, version, cmdConnect)
	b = binary.BigEndian.AppendUint16(b, uint16(port))
	hostname := ""
	if ip := net.ParseIP(host); ip != nil {
		ip4 := ip.To4()
		if ip4 == nil {
			return nil, errors.New("SOCKS4 supports IPv4 addresses only")
		}
		b = append(b, ip4...)
	} else {
		if len(host) > 255 {
			return nil, fmt.Errorf("domain name length = %v is over 255", len(host))
		}
		b = append(b, 0, 0, 0, 1)
		hostname = host
	}
	b = append(b, userID...)
	b = append(b, 0)
	if hostname != "" {
		b = append(b, hostname...)
		b = append(b, 0)
	}
	return b, nil
}
