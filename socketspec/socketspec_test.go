// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package socketspec

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/nettest"

	"go.adbhost.dev/adb/adberr"
)

func TestParseBoundaryTable(t *testing.T) {
	cases := []struct {
		in      string
		want    SocketSpec
		wantErr bool
	}{
		{in: "tcp:5037", want: NewTCP("", 5037)},
		{in: "tcp:", wantErr: true},
		{in: "tcp:-1", wantErr: true},
		{in: "tcp:65536", wantErr: true},
		{in: "tcp:localhost:1234", want: NewTCP("localhost", 1234)},
		{in: "tcp:localhost", wantErr: true},
		{in: "tcp:localhost:", wantErr: true},
		{in: "tcp:[::1]:1234", want: NewTCP("[::1]", 1234)},
		{in: "tcp:[::1]", wantErr: true},
		{in: "tcp:::1:1234", wantErr: true},
		{in: "localabstract:foo", want: NewUnixAbstract("foo")},
		{in: "local:foo", want: NewUnixFilesystem("foo")},
		{in: "localfilesystem:foo", want: NewUnixFilesystem("foo")},
		{in: "bogus:foo", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := Parse(c.in)
			if c.wantErr {
				var invalid *adberr.SocketSpecInvalidError
				if !errors.As(err, &invalid) {
					t.Fatalf("Parse(%q) = %v, want SocketSpecInvalidError", c.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", c.in, err)
			}
			if diff := cmp.Diff(c.want, got, cmp.AllowUnexported(SocketSpec{})); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", c.in, diff)
			}
		})
	}
}

func TestFormatTCPRoundTrip(t *testing.T) {
	cases := []SocketSpec{
		NewTCP("", 5037),
		NewTCP("localhost", 1234),
		NewTCP("[::1]", 1234),
	}
	for _, s := range cases {
		formatted := s.Format()
		parsed, err := Parse(formatted)
		if err != nil {
			t.Fatalf("Parse(Format(%v)) = %v, %v", s, parsed, err)
		}
		if diff := cmp.Diff(s, parsed, cmp.AllowUnexported(SocketSpec{})); diff != "" {
			t.Errorf("round-trip mismatch for %v (-want +got):\n%s", s, diff)
		}
	}
}

func TestFormatVsock(t *testing.T) {
	// Vsock has no "vsock:" case in the Parse grammar (spec.md §4.A), so
	// unlike TCP this doesn't round-trip through Parse; this only pins
	// down the literal Format() output for the empty-host and
	// host-set cases.
	cases := []struct {
		spec SocketSpec
		want string
	}{
		{NewVsock("", 1234), "vsock:1234"},
		{NewVsock("host", 1234), "vsock:host:1234"},
	}
	for _, c := range cases {
		if got := c.spec.Format(); got != c.want {
			t.Errorf("NewVsock(...).Format() = %q, want %q", got, c.want)
		}
	}
}

func TestFormatUnixVariantsDistinct(t *testing.T) {
	if got := NewUnixAbstract("foo").Format(); got != "localabstract:foo" {
		t.Errorf("UnixAbstract.Format() = %q, want localabstract:foo", got)
	}
	if got := NewUnixFilesystem("foo").Format(); got != "localfilesystem:foo" {
		t.Errorf("UnixFilesystem.Format() = %q, want localfilesystem:foo (not localabstract:, that was a reference bug)", got)
	}
}

func TestDialMissingHost(t *testing.T) {
	for _, s := range []SocketSpec{NewTCP("", 1234), NewVsock("", 1234)} {
		_, err := Dial(context.Background(), s)
		var missing *adberr.SocketSpecMissingHostError
		if !errors.As(err, &missing) {
			t.Errorf("Dial(%v) = %v, want SocketSpecMissingHostError", s, err)
		}
	}
}

func TestDialVsockUnsupported(t *testing.T) {
	_, err := Dial(context.Background(), NewVsock("host", 1234))
	var unsupported *adberr.SocketSpecUnsupportedTypeError
	if !errors.As(err, &unsupported) {
		t.Errorf("Dial(vsock) = %v, want SocketSpecUnsupportedTypeError", err)
	}
}

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	spec := NewTCP("127.0.0.1", uint16(addr.Port))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sock, err := Dial(ctx, spec)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer sock.Close()

	server := <-accepted
	defer server.Close()

	if _, err := sock.Write([]byte("hi")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, 2)
	if _, err := server.Read(buf); err != nil {
		t.Fatalf("server Read: %v", err)
	}
	if string(buf) != "hi" {
		t.Errorf("server read %q, want %q", buf, "hi")
	}
}

func TestDialUnixFilesystem(t *testing.T) {
	ln, err := net.Listen("unix", t.TempDir()+"/sock")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	spec := NewUnixFilesystem(ln.Addr().String())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sock, err := Dial(ctx, spec)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer sock.Close()
	server := <-accepted
	defer server.Close()
}

// TestDialConformsToNetConn runs the dialed Socket through x/net/nettest's
// generic net.Conn conformance suite, the same tool mdns.go's neighboring
// packages use for socket-level behavior checks.
func TestDialConformsToNetConn(t *testing.T) {
	nettest.TestConn(t, func() (c1, c2 net.Conn, stop func(), err error) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, nil, nil, err
		}
		addr := ln.Addr().(*net.TCPAddr)
		accepted := make(chan net.Conn, 1)
		acceptErr := make(chan error, 1)
		go func() {
			c, err := ln.Accept()
			if err != nil {
				acceptErr <- err
				return
			}
			accepted <- c
		}()

		spec := NewTCP("127.0.0.1", uint16(addr.Port))
		client, err := Dial(context.Background(), spec)
		if err != nil {
			ln.Close()
			return nil, nil, nil, err
		}

		var server net.Conn
		select {
		case server = <-accepted:
		case err := <-acceptErr:
			ln.Close()
			client.Close()
			return nil, nil, nil, err
		}

		stop = func() {
			client.Close()
			server.Close()
			ln.Close()
		}
		return client, server, stop, nil
	})
}
