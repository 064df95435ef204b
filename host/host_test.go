// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package host

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"go.adbhost.dev/adb/adberr"
	"go.adbhost.dev/adb/socketspec"
)

// pipeSocket adapts a net.Pipe half into socketspec.Socket for tests;
// net.Pipe conns can't half-close, so CloseWrite just closes fully,
// which is sufficient for the host-package scenarios below.
type pipeSocket struct {
	net.Conn
}

func (p pipeSocket) CloseWrite() error { return p.Close() }

// newPipeRemote returns a Remote whose dial function hands out one end
// of a net.Pipe per call, plus a channel delivering the server end of
// each dial so the test can script responses.
func newPipeRemote() (*Remote, chan net.Conn) {
	conns := make(chan net.Conn, 16)
	r := &Remote{
		dial: func(ctx context.Context, spec socketspec.SocketSpec) (socketspec.Socket, error) {
			client, server := net.Pipe()
			conns <- server
			return pipeSocket{client}, nil
		},
	}
	return r, conns
}

func hexPrefixed(payload string) string {
	return fmt.Sprintf("%04x%s", len(payload), payload)
}

func readExactly(t *testing.T, conn net.Conn, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	if _, err := readFullT(conn, buf); err != nil {
		t.Fatalf("server read: %v", err)
	}
	return buf
}

func readFullT(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestRemoteVersion(t *testing.T) {
	r, conns := newPipeRemote()

	done := make(chan struct{})
	go func() {
		defer close(done)
		server := <-conns
		defer server.Close()

		req := readExactly(t, server, len("000chost:version"))
		if string(req) != "000chost:version" {
			t.Errorf("server got request %q", req)
		}
		server.Write([]byte("OKAY" + hexPrefixed("0029")))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := r.Version(ctx)
	<-done
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != 0x29 {
		t.Errorf("Version() = %#x, want 0x29", v)
	}
}

func TestRemoteDevicesHappyPath(t *testing.T) {
	r, conns := newPipeRemote()

	body := "emulator-5554        device product:sdk_gphone_x86 model:Android_SDK_built_for_x86 device:generic_x86 transport_id:1\n" +
		"01234567             unauthorized transport_id:2\n"

	done := make(chan struct{})
	go func() {
		defer close(done)
		server := <-conns
		defer server.Close()

		req := readExactly(t, server, len("000ehost:devices-l"))
		if string(req) != "000ehost:devices-l" {
			t.Errorf("server got request %q", req)
		}
		server.Write([]byte("OKAY" + hexPrefixed(body)))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := r.Devices(ctx)
	<-done
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Devices() returned %d records, want 2", len(got))
	}
	if got[0].Id != 1 || got[0].TransportType.Kind != TransportOnline || got[0].TransportType.DeviceType != DeviceTypeDevice {
		t.Errorf("first record = %+v", got[0])
	}
	if got[1].Id != 2 || got[1].TransportType.Kind != TransportUnauthorized {
		t.Errorf("second record = %+v", got[1])
	}
}

func TestRemoteOpenDeviceChannelTport(t *testing.T) {
	r, conns := newPipeRemote()

	done := make(chan struct{})
	go func() {
		defer close(done)
		server := <-conns
		defer server.Close()

		req := readExactly(t, server, len("000ehost:tport:usb"))
		if string(req) != "000ehost:tport:usb" {
			t.Errorf("server got request %q", req)
		}
		server.Write([]byte("OKAY"))

		var idBuf [8]byte
		binary.LittleEndian.PutUint64(idBuf[:], 1)
		server.Write(idBuf[:])

		req2 := readExactly(t, server, len("0005shell"))
		if string(req2) != "0005shell" {
			t.Errorf("server got second request %q", req2)
		}
		server.Write([]byte("OKAY"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	id, sock, err := r.OpenDeviceChannel(ctx, UsbDevice(), "shell")
	<-done
	if err != nil {
		t.Fatalf("OpenDeviceChannel: %v", err)
	}
	defer sock.Close()
	if id != TransportId(1) {
		t.Errorf("OpenDeviceChannel id = %d, want 1", id)
	}
}

func TestRemoteOpenDeviceChannelTransportID(t *testing.T) {
	r, conns := newPipeRemote()

	done := make(chan struct{})
	go func() {
		defer close(done)
		server := <-conns
		defer server.Close()

		req := readExactly(t, server, len("0014host:transport-id:42"))
		if string(req) != "0014host:transport-id:42" {
			t.Errorf("server got request %q", req)
		}
		server.Write([]byte("OKAY"))

		req2 := readExactly(t, server, len("0005shell"))
		if string(req2) != "0005shell" {
			t.Errorf("server got second request %q", req2)
		}
		server.Write([]byte("OKAY"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	id, sock, err := r.OpenDeviceChannel(ctx, TransportIdDevice(42), "shell")
	<-done
	if err != nil {
		t.Fatalf("OpenDeviceChannel: %v", err)
	}
	defer sock.Close()
	if id != TransportId(42) {
		t.Errorf("OpenDeviceChannel id = %d, want 42", id)
	}
}

func TestRemoteOpenChannelServiceError(t *testing.T) {
	r, conns := newPipeRemote()

	done := make(chan struct{})
	go func() {
		defer close(done)
		server := <-conns
		defer server.Close()
		readExactly(t, server, len("000chost:version"))
		server.Write([]byte("FAIL" + hexPrefixed("no such device")))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.OpenChannel(ctx, "host:version")
	<-done
	var svc *adberr.ServiceError
	if !errors.As(err, &svc) {
		t.Fatalf("OpenChannel = %v, want ServiceError", err)
	}
	if svc.Msg != "no such device" {
		t.Errorf("ServiceError.Msg = %q", svc.Msg)
	}
}

func TestDeviceCriteriaSelector(t *testing.T) {
	cases := []struct {
		c    DeviceCriteria
		want string
	}{
		{AnyDevice(), "host:tport:any"},
		{UsbDevice(), "host:tport:usb"},
		{TcpDevice(), "host:tport:tcp"},
		{SerialDevice("ABC123"), "host:tport:serial:ABC123"},
		{TransportIdDevice(7), "host:transport-id:7"},
	}
	for _, c := range cases {
		if got := c.c.selector(); got != c.want {
			t.Errorf("selector() = %q, want %q", got, c.want)
		}
	}
}
