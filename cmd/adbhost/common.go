// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command adbhost is the CLI collaborator that drives the
// socketspec/host/shell core end to end: it maps -H/-P/-L onto a
// SocketSpec, -s/-d/-e/-t/$ANDROID_SERIAL onto a DeviceCriteria, and
// translates the core's errors into process exit codes. None of that
// mapping lives in the core packages.
package main

import (
	"flag"
	"os"
	"strconv"

	"go.adbhost.dev/adb/host"
	"go.adbhost.dev/adb/socketspec"
)

// commonCmd holds the flags shared by every subcommand: where the ADB
// server lives and which transport a device-scoped request targets.
type commonCmd struct {
	adbHost     string
	adbPort     int
	socketSpec  string
	serial      string
	usbOnly     bool
	tcpOnly     bool
	transportID uint64
}

// SetCommonFlags registers the shared flags on f. Subcommands call
// this from their own SetFlags before adding flags of their own.
func (c *commonCmd) SetCommonFlags(f *flag.FlagSet) {
	f.StringVar(&c.adbHost, "H", "", "ADB server host (default 127.0.0.1)")
	f.IntVar(&c.adbPort, "P", 5037, "ADB server port")
	f.StringVar(&c.socketSpec, "L", "", "full socket spec (e.g. tcp:127.0.0.1:5037), overrides -H/-P")
	f.StringVar(&c.serial, "s", "", "use device with given serial (default $ANDROID_SERIAL)")
	f.BoolVar(&c.usbOnly, "d", false, "use the single USB-attached device")
	f.BoolVar(&c.tcpOnly, "e", false, "use the single TCP-attached device")
	f.Uint64Var(&c.transportID, "t", 0, "use device with given transport id")
}

// spec resolves the -H/-P/-L flags to a SocketSpec, defaulting to
// TCP 127.0.0.1:5037 per the core's external-interface contract.
func (c *commonCmd) spec() (socketspec.SocketSpec, error) {
	if c.socketSpec != "" {
		return socketspec.Parse(c.socketSpec)
	}
	h := c.adbHost
	if h == "" {
		h = "127.0.0.1"
	}
	return socketspec.NewTCP(h, uint16(c.adbPort)), nil
}

// criteria resolves -s/-d/-e/-t and $ANDROID_SERIAL to a
// DeviceCriteria. -t takes precedence (it names an exact transport),
// then an explicit/environment serial, then -d/-e, defaulting to Any.
func (c *commonCmd) criteria() host.DeviceCriteria {
	if c.transportID != 0 {
		return host.TransportIdDevice(host.TransportId(c.transportID))
	}
	serial := c.serial
	if serial == "" {
		serial = os.Getenv("ANDROID_SERIAL")
	}
	switch {
	case serial != "":
		return host.SerialDevice(serial)
	case c.usbOnly:
		return host.UsbDevice()
	case c.tcpOnly:
		return host.TcpDevice()
	default:
		return host.AnyDevice()
	}
}

func formatTransportID(id host.TransportId) string {
	return strconv.FormatUint(uint64(id), 10)
}
