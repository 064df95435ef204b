// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package shell

import (
	"sync"

	"go.adbhost.dev/adb/adberr"
	"go.adbhost.dev/adb/internal/wire"
)

// rawReadBufSize is the chunk size used for unframed reads, per the
// legacy shell service's lack of any length prefix.
const rawReadBufSize = 2048

// rawReadHalf is the read side of a legacy (non-v2) shell. The server
// never sends a real exit code over this service, so EOF or any read
// error produces a single synthetic Exit(1); a following read yields
// UnexpectedData.
type rawReadHalf struct {
	sock   socket
	exited bool
}

func (h *rawReadHalf) ReadEvent() (Output, error) {
	if h.exited {
		return Output{}, adberr.UnexpectedData("raw shell stream already ended")
	}
	buf := make([]byte, rawReadBufSize)
	n, err := h.sock.Read(buf)
	if err != nil {
		h.exited = true
		return Output{Kind: OutputExit, ExitCode: 1}, nil
	}
	return Output{Kind: OutputStdout, Data: buf[:n]}, nil
}

// rawWriteHalf is the write side of a legacy shell. Stdin passes
// through unframed; CloseStdin half-closes the write direction;
// WindowSizeChange is silently dropped (the legacy service has no
// control-event channel to carry it on).
type rawWriteHalf struct {
	sock socket
	mu   sync.Mutex
}

func (h *rawWriteHalf) WriteEvent(in Input) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch in.Kind {
	case InputStdin:
		return wire.WriteFull(h.sock, in.Stdin)
	case InputCloseStdin:
		return adberr.Io(h.sock.CloseWrite())
	case InputWindowSizeChange:
		return nil
	default:
		return adberr.UnexpectedData("unknown shell input kind %d", in.Kind)
	}
}

// rawShell is the legacy shell, used when the server lacks shell-v2.
type rawShell struct {
	*rawReadHalf
	*rawWriteHalf
}

func newRawShell(sock socket) Shell {
	return &rawShell{
		rawReadHalf:  &rawReadHalf{sock: sock},
		rawWriteHalf: &rawWriteHalf{sock: sock},
	}
}

func (s *rawShell) Split() (ReadHalf, WriteHalf) {
	return s.rawReadHalf, s.rawWriteHalf
}
