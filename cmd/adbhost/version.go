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

type versionCmd struct {
	commonCmd
}

func (*versionCmd) Name() string     { return "version" }
func (*versionCmd) Synopsis() string { return "print the ADB server's protocol version" }
func (*versionCmd) Usage() string    { return "version [flags...]\n\nflags:\n" }

func (cmd *versionCmd) SetFlags(f *flag.FlagSet) {
	cmd.SetCommonFlags(f)
}

func (cmd *versionCmd) execute(ctx context.Context) error {
	spec, err := cmd.spec()
	if err != nil {
		return err
	}
	v, err := host.New(spec).Version(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%04x\n", v)
	return nil
}

func (cmd *versionCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := cmd.execute(ctx); err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
