// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	"github.com/google/subcommands"

	"go.adbhost.dev/adb/host"
	"go.adbhost.dev/adb/shell"
)

// shellCmd drives an interactive or one-shot shell over a selected
// device's transport. Raw terminal mode and signal forwarding are the
// terminal-handling collaborator's job, not this library's; this
// subcommand relays stdin/stdout/stderr in whatever mode the calling
// terminal is already in.
type shellCmd struct {
	commonCmd
	legacy bool
	tty    bool
	term   string
}

func (*shellCmd) Name() string     { return "shell" }
func (*shellCmd) Synopsis() string { return "run a command, or an interactive shell, on a device" }
func (*shellCmd) Usage() string    { return "shell [flags...] [command...]\n\nflags:\n" }

func (cmd *shellCmd) SetFlags(f *flag.FlagSet) {
	cmd.SetCommonFlags(f)
	f.BoolVar(&cmd.legacy, "legacy", false, "use the unframed legacy shell service instead of shell-v2")
	f.BoolVar(&cmd.tty, "tty", false, "allocate a pty")
	f.StringVar(&cmd.term, "T", os.Getenv("TERM"), "TERM value to request (shell-v2 + pty only)")
}

func (cmd *shellCmd) execute(ctx context.Context, args []string) (int, error) {
	spec, err := cmd.spec()
	if err != nil {
		return 1, err
	}
	r := host.New(spec)

	b := shell.NewBuilder(!cmd.legacy)
	b.TTY = cmd.tty
	b.Term = cmd.term
	if len(args) > 0 {
		b.Command = args
	}

	sh, err := b.Connect(ctx, r, cmd.criteria())
	if err != nil {
		return 1, err
	}
	readHalf, writeHalf := sh.Split()

	// Stdin forwarding runs independently of the output loop below; a
	// write failure here (the far end already hung up) is expected once
	// the command exits and is not itself a shell error, so it is only
	// logged, not surfaced as the command's exit error.
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				if werr := writeHalf.WriteEvent(shell.StdinInput(append([]byte(nil), buf[:n]...))); werr != nil {
					log.Printf("writing stdin: %v", werr)
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					log.Printf("reading stdin: %v", err)
				} else {
					writeHalf.WriteEvent(shell.CloseStdinInput())
				}
				return
			}
		}
	}()

	for {
		out, err := readHalf.ReadEvent()
		if err != nil {
			return 1, err
		}
		switch out.Kind {
		case shell.OutputStdout:
			os.Stdout.Write(out.Data)
		case shell.OutputStderr:
			os.Stderr.Write(out.Data)
		case shell.OutputExit:
			return int(out.ExitCode), nil
		}
	}
}

func (cmd *shellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	code, err := cmd.execute(ctx, f.Args())
	if err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitStatus(code)
}
