// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shell implements the raw and shell-v2 bidirectional
// multiplexers layered on a device channel selected through the host
// package, plus the service-name builder that selects between them.
package shell

import "go.adbhost.dev/adb/socketspec"

// InputKind discriminates the Input variants.
type InputKind int

const (
	// InputStdin carries a chunk of stdin bytes.
	InputStdin InputKind = iota
	// InputCloseStdin signals that no more stdin will be sent.
	InputCloseStdin
	// InputWindowSizeChange reports a terminal resize.
	InputWindowSizeChange
)

// Input is the tagged set of events a caller can write to a shell's
// write half: a chunk of stdin, an end-of-stdin signal, or a terminal
// resize.
type Input struct {
	Kind InputKind

	// Stdin holds the bytes for InputStdin.
	Stdin []byte

	// Rows, Cols, XPixels, YPixels hold the new terminal dimensions
	// for InputWindowSizeChange.
	Rows, Cols, XPixels, YPixels uint32
}

// StdinInput returns an Input carrying a stdin chunk.
func StdinInput(b []byte) Input { return Input{Kind: InputStdin, Stdin: b} }

// CloseStdinInput returns an Input signaling end-of-stdin.
func CloseStdinInput() Input { return Input{Kind: InputCloseStdin} }

// WindowSizeChangeInput returns an Input reporting a terminal resize.
func WindowSizeChangeInput(rows, cols, xpixels, ypixels uint32) Input {
	return Input{Kind: InputWindowSizeChange, Rows: rows, Cols: cols, XPixels: xpixels, YPixels: ypixels}
}

// OutputKind discriminates the Output variants.
type OutputKind int

const (
	// OutputStdout carries a chunk of stdout bytes.
	OutputStdout OutputKind = iota
	// OutputStderr carries a chunk of stderr bytes.
	OutputStderr
	// OutputExit is the terminal event carrying the process exit code.
	OutputExit
)

// Output is the tagged set of events a caller reads from a shell's
// read half: stdout, stderr, or the terminal exit event.
type Output struct {
	Kind OutputKind

	// Data holds the bytes for OutputStdout/OutputStderr.
	Data []byte

	// ExitCode holds the process exit status for OutputExit.
	ExitCode uint8
}

// ReadHalf is the read-only capability of a split Shell. Successive
// calls deliver Stdout/Stderr/Exit events in the order the server
// framed them; Exit is terminal, and reads after it return
// UnexpectedData.
type ReadHalf interface {
	ReadEvent() (Output, error)
}

// WriteHalf is the write-only capability of a split Shell.
type WriteHalf interface {
	WriteEvent(Input) error
}

// Shell is the capability shared by the raw and protocol (v2)
// implementations: read one event, write one event, split into two
// independently owned halves whose read and write paths share no
// mutable state.
type Shell interface {
	ReadHalf
	WriteHalf

	// Split decomposes the Shell into independently usable halves.
	// After Split, callers should use the halves rather than the
	// original Shell value.
	Split() (ReadHalf, WriteHalf)
}

// socket is socketspec.Socket, aliased so raw.go/v2.go read clearly.
type socket = socketspec.Socket
