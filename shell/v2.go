// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package shell

import (
	"encoding/binary"
	"sync"

	"go.adbhost.dev/adb/adberr"
	"go.adbhost.dev/adb/internal/wire"
)

// Shell v2 packet ids, wire values.
const (
	packetStdin      = 0
	packetStdout     = 1
	packetStderr     = 2
	packetExit       = 3
	packetCloseStdin = 4
	packetWindowSize = 5 // reserved, see WriteEvent
)

// protocolReadHalf is the read side of a shell-v2 channel. Each read
// atomically consumes one packet header and body; a failure at any
// step surfaces as UnexpectedData rather than a partial event, and an
// Exit event is terminal.
type protocolReadHalf struct {
	sock socket
	done bool
}

func (h *protocolReadHalf) ReadEvent() (Output, error) {
	if h.done {
		return Output{}, adberr.UnexpectedData("shell v2 stream already ended")
	}

	var header [5]byte
	if err := wire.ReadFull(h.sock, header[:]); err != nil {
		h.done = true
		return Output{}, adberr.UnexpectedData("reading shell v2 packet header: %v", err)
	}
	id := header[0]
	length := binary.LittleEndian.Uint32(header[1:])

	payload := make([]byte, length)
	if length > 0 {
		if err := wire.ReadFull(h.sock, payload); err != nil {
			h.done = true
			return Output{}, adberr.UnexpectedData("reading shell v2 packet payload: %v", err)
		}
	}

	switch id {
	case packetStdout:
		return Output{Kind: OutputStdout, Data: payload}, nil
	case packetStderr:
		return Output{Kind: OutputStderr, Data: payload}, nil
	case packetExit:
		if length != 1 {
			h.done = true
			return Output{}, adberr.UnexpectedData("received exit packet with incorrect size: %d", length)
		}
		h.done = true
		return Output{Kind: OutputExit, ExitCode: payload[0]}, nil
	case packetStdin, packetCloseStdin:
		h.done = true
		return Output{}, adberr.UnexpectedData("received client-to-server packet id %d from server", id)
	default:
		h.done = true
		return Output{}, adberr.UnexpectedData("received unknown shell v2 packet id %d", id)
	}
}

// protocolWriteHalf is the write side of a shell-v2 channel. Each
// WriteEvent call emits one packet (header and body in one logical
// write, guarded by mu so concurrent writers never interleave).
type protocolWriteHalf struct {
	sock socket
	mu   sync.Mutex
}

func (h *protocolWriteHalf) WriteEvent(in Input) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch in.Kind {
	case InputStdin:
		return h.writePacket(packetStdin, in.Stdin)
	case InputCloseStdin:
		// The reference implementation this is ported from half-closes
		// the socket without first emitting the id=4 frame; the
		// canonical server expects the frame before the half-close, so
		// this sends it and then closes the write half.
		if err := h.writePacket(packetCloseStdin, nil); err != nil {
			return err
		}
		return adberr.Io(h.sock.CloseWrite())
	case InputWindowSizeChange:
		// Reserved: an id=5 frame carrying "rows cols xpixels ypixels"
		// would go here. The source this is ported from never emits it;
		// this implementation keeps that as a documented no-op rather
		// than fabricating a frame no caller has exercised against a
		// real server.
		return nil
	default:
		return adberr.UnexpectedData("unknown shell input kind %d", in.Kind)
	}
}

func (h *protocolWriteHalf) writePacket(id byte, payload []byte) error {
	header := make([]byte, 5+len(payload))
	header[0] = id
	binary.LittleEndian.PutUint32(header[1:5], uint32(len(payload)))
	copy(header[5:], payload)
	return wire.WriteFull(h.sock, header)
}

// protocolShell is the shell-v2 multiplexer: a framed, byte-oriented
// protocol demultiplexing stdout/stderr/exit and muxing
// stdin/close-stdin/window-size events over one socket.
type protocolShell struct {
	*protocolReadHalf
	*protocolWriteHalf
}

func newProtocolShell(sock socket) Shell {
	return &protocolShell{
		protocolReadHalf:  &protocolReadHalf{sock: sock},
		protocolWriteHalf: &protocolWriteHalf{sock: sock},
	}
}

func (s *protocolShell) Split() (ReadHalf, WriteHalf) {
	return s.protocolReadHalf, s.protocolWriteHalf
}
