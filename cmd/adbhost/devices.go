// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/subcommands"

	"go.adbhost.dev/adb/host"
)

type devicesCmd struct {
	commonCmd
	long bool
}

func (*devicesCmd) Name() string     { return "devices" }
func (*devicesCmd) Synopsis() string { return "list attached devices" }
func (*devicesCmd) Usage() string    { return "devices [flags...]\n\nflags:\n" }

func (cmd *devicesCmd) SetFlags(f *flag.FlagSet) {
	cmd.SetCommonFlags(f)
	f.BoolVar(&cmd.long, "l", false, "show product/model/device attributes")
}

func (cmd *devicesCmd) execute(ctx context.Context) ([]host.DeviceDescription, error) {
	spec, err := cmd.spec()
	if err != nil {
		return nil, err
	}
	return host.New(spec).Devices(ctx)
}

func (cmd *devicesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	devices, err := cmd.execute(ctx)
	if err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}
	for _, d := range devices {
		if !cmd.long {
			fmt.Printf("%s\t%s\n", d.Serial, d.TransportType)
			continue
		}
		fmt.Printf("%s\t%s\ttransport_id:%s", d.Serial, d.TransportType, formatTransportID(d.Id))
		if d.Product != "" {
			fmt.Printf(" product:%s", d.Product)
		}
		if d.Model != "" {
			fmt.Printf(" model:%s", d.Model)
		}
		if d.Device != "" {
			fmt.Printf(" device:%s", d.Device)
		}
		fmt.Println()
	}
	return subcommands.ExitSuccess
}
