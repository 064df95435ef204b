// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package shell

import (
	"context"
	"log"
	"strings"

	"go.adbhost.dev/adb/adberr"
	"go.adbhost.dev/adb/host"
)

// Builder constructs the service name for a shell request and wraps
// the resulting channel in the raw or protocol (v2) implementation.
// ShellProtocol has no default: feature detection against the server
// is a non-goal, so a caller must say explicitly whether it wants
// shell-v2 framing.
type Builder struct {
	// Command is the argv to run; nil/empty means an interactive shell.
	Command []string

	// ShellProtocol selects shell-v2 framing. There is no default:
	// Connect returns UnimplementedOperationError if this was never
	// set via NewBuilder.
	ShellProtocol bool
	protocolSet   bool

	// Term is included in the service string only when TTY and
	// ShellProtocol both hold.
	Term string

	// TTY requests pty allocation.
	TTY bool

	// Logger receives a diagnostic line when Term is supplied but
	// ignored (non-tty or non-v2 request). Defaults to log.Default().
	Logger *log.Logger
}

// NewBuilder returns a Builder with ShellProtocol explicitly set, as
// the spec requires: there is no server feature-detection fallback.
func NewBuilder(shellProtocol bool) *Builder {
	return &Builder{ShellProtocol: shellProtocol, protocolSet: true}
}

func (b *Builder) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.Default()
}

// serviceName constructs the shell/shell-v2 service string per the
// fixed grammar: "shell,v2[,TERM=term][,pty|,raw]:argv" or
// "shell:argv".
func (b *Builder) serviceName() (string, error) {
	if !b.protocolSet {
		return "", adberr.UnimplementedOperation("shell_protocol must be set explicitly; server feature detection is not implemented")
	}

	argv := strings.Join(b.Command, " ")

	if !b.ShellProtocol {
		if b.Term != "" {
			b.logger().Printf("term %q ignored: shell_protocol is false", b.Term)
		}
		return "shell:" + argv, nil
	}

	var sb strings.Builder
	sb.WriteString("shell,v2")
	if b.TTY && b.Term != "" {
		sb.WriteString(",TERM=")
		sb.WriteString(b.Term)
	} else if b.Term != "" {
		b.logger().Printf("term %q ignored: tty is false", b.Term)
	}
	if b.TTY {
		sb.WriteString(",pty")
	} else {
		sb.WriteString(",raw")
	}
	sb.WriteString(":")
	sb.WriteString(argv)
	return sb.String(), nil
}

// Connect performs the service-name construction, opens the device
// channel via r for criteria, and wraps the result in the appropriate
// shell implementation.
func (b *Builder) Connect(ctx context.Context, r *host.Remote, criteria host.DeviceCriteria) (Shell, error) {
	service, err := b.serviceName()
	if err != nil {
		return nil, err
	}

	_, sock, err := r.OpenDeviceChannel(ctx, criteria, service)
	if err != nil {
		return nil, err
	}

	if b.ShellProtocol {
		return newProtocolShell(sock), nil
	}
	return newRawShell(sock), nil
}
