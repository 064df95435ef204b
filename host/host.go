// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package host implements the ADB host-service dialogue: dialing the
// server, selecting a transport, and the human-readable device-list
// format returned by "host:devices-l".
package host

import (
	"bytes"
	"context"
	"encoding/binary"
	"log"
	"strconv"

	"github.com/google/uuid"

	"go.adbhost.dev/adb/adberr"
	"go.adbhost.dev/adb/internal/wire"
	"go.adbhost.dev/adb/socketspec"
)

// TransportId identifies one transport on the server. It is assigned
// by the server and stable only for the transport's lifetime.
type TransportId uint64

// CriteriaKind discriminates the DeviceCriteria variants.
type CriteriaKind int

const (
	// CriteriaAny selects any attached transport.
	CriteriaAny CriteriaKind = iota
	// CriteriaUsb selects a USB-attached transport.
	CriteriaUsb
	// CriteriaTcp selects a TCP-attached transport.
	CriteriaTcp
	// CriteriaSerial selects a transport by serial number.
	CriteriaSerial
	// CriteriaTransportId selects a transport by its server-assigned id.
	CriteriaTransportId
)

// DeviceCriteria selects which transport a device-scoped request
// targets; resolved by the server to a concrete transport.
type DeviceCriteria struct {
	kind   CriteriaKind
	serial string
	id     TransportId
}

// AnyDevice selects any attached transport.
func AnyDevice() DeviceCriteria { return DeviceCriteria{kind: CriteriaAny} }

// UsbDevice selects a USB-attached transport.
func UsbDevice() DeviceCriteria { return DeviceCriteria{kind: CriteriaUsb} }

// TcpDevice selects a TCP-attached transport.
func TcpDevice() DeviceCriteria { return DeviceCriteria{kind: CriteriaTcp} }

// SerialDevice selects a transport by serial number.
func SerialDevice(serial string) DeviceCriteria {
	return DeviceCriteria{kind: CriteriaSerial, serial: serial}
}

// TransportIdDevice selects a transport by its server-assigned id.
func TransportIdDevice(id TransportId) DeviceCriteria {
	return DeviceCriteria{kind: CriteriaTransportId, id: id}
}

// Kind reports which variant c holds.
func (c DeviceCriteria) Kind() CriteriaKind { return c.kind }

// selector returns the host:tport:... or host:transport-id:... string
// used to request transport selection.
func (c DeviceCriteria) selector() string {
	switch c.kind {
	case CriteriaAny:
		return "host:tport:any"
	case CriteriaUsb:
		return "host:tport:usb"
	case CriteriaTcp:
		return "host:tport:tcp"
	case CriteriaSerial:
		return "host:tport:serial:" + c.serial
	case CriteriaTransportId:
		return "host:transport-id:" + strconv.FormatUint(uint64(c.id), 10)
	default:
		return "host:tport:any"
	}
}

// Remote holds one SocketSpec. Every operation dials a fresh socket,
// so a Remote is cheap to clone and safe to use concurrently: each
// call owns its socket from creation to return.
type Remote struct {
	Spec socketspec.SocketSpec

	// Logger receives dial and protocol diagnostics. Defaults to
	// log.Default() if nil.
	Logger *log.Logger

	// dial is overridable in tests, the same seam
	// tools/net/dev_finder/cmd/common.go uses (newMDNSFunc,
	// newNetbootFunc) to substitute a fake transport.
	dial func(context.Context, socketspec.SocketSpec) (socketspec.Socket, error)
}

// New returns a Remote dialing spec on every call.
func New(spec socketspec.SocketSpec) *Remote {
	return &Remote{Spec: spec}
}

func (r *Remote) dialFunc() func(context.Context, socketspec.SocketSpec) (socketspec.Socket, error) {
	if r.dial != nil {
		return r.dial
	}
	return socketspec.Dial
}

func (r *Remote) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

// traceID returns a short correlation id for a single call's log lines.
func traceID() string {
	return uuid.New().String()[:8]
}

// OpenChannel dials a fresh socket, writes one hex-prefixed service
// name, reads the status, and returns the socket positioned
// immediately after the OKAY, ready for service-specific bytes.
func (r *Remote) OpenChannel(ctx context.Context, service string) (socketspec.Socket, error) {
	id := traceID()
	r.logger().Printf("[%s] dial %s service=%s", id, r.Spec, service)
	sock, err := r.dialFunc()(ctx, r.Spec)
	if err != nil {
		r.logger().Printf("[%s] dial failed: %v", id, err)
		return nil, err
	}
	if err := wire.WriteHexPrefixed(sock, []byte(service)); err != nil {
		sock.Close()
		return nil, err
	}
	if err := wire.ReadStatus(sock); err != nil {
		sock.Close()
		r.logger().Printf("[%s] %s failed: %v", id, service, err)
		return nil, err
	}
	return sock, nil
}

// Version requests "host:version" and returns the server's protocol
// version.
func (r *Remote) Version(ctx context.Context) (uint32, error) {
	sock, err := r.OpenChannel(ctx, "host:version")
	if err != nil {
		return 0, err
	}
	defer sock.Close()

	payload, err := wire.ReadHexPrefixed(sock)
	if err != nil {
		return 0, err
	}
	v, err := parseHexU32(payload)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func parseHexU32(payload []byte) (uint32, error) {
	if !isASCIIHex(payload) {
		return 0, adberr.UnexpectedData("version payload %q is not hex", payload)
	}
	v, err := strconv.ParseUint(string(payload), 16, 32)
	if err != nil {
		return 0, adberr.UnexpectedData("version payload %q: %v", payload, err)
	}
	return uint32(v), nil
}

func isASCIIHex(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Devices requests "host:devices-l" and parses the resulting device
// list.
func (r *Remote) Devices(ctx context.Context) ([]DeviceDescription, error) {
	sock, err := r.OpenChannel(ctx, "host:devices-l")
	if err != nil {
		return nil, err
	}
	defer sock.Close()

	payload, err := wire.ReadHexPrefixed(sock)
	if err != nil {
		return nil, err
	}
	text := string(bytes.ToValidUTF8(payload, []byte("�")))
	return ParseDevices(text)
}

// OpenDeviceChannel performs the two-stage handshake: select a
// transport via criteria, then open service on it. Returns the
// resolved TransportId and the channel positioned after the device
// service's OKAY.
func (r *Remote) OpenDeviceChannel(ctx context.Context, criteria DeviceCriteria, service string) (TransportId, socketspec.Socket, error) {
	sock, err := r.OpenChannel(ctx, criteria.selector())
	if err != nil {
		return 0, nil, err
	}

	var id TransportId
	if criteria.kind == CriteriaTransportId {
		id = criteria.id
	} else {
		var idBuf [8]byte
		if err := wire.ReadFull(sock, idBuf[:]); err != nil {
			sock.Close()
			return 0, nil, err
		}
		id = TransportId(binary.LittleEndian.Uint64(idBuf[:]))
	}

	if err := wire.WriteHexPrefixed(sock, []byte(service)); err != nil {
		sock.Close()
		return 0, nil, err
	}
	if err := wire.ReadStatus(sock); err != nil {
		sock.Close()
		return 0, nil, err
	}
	return id, sock, nil
}
