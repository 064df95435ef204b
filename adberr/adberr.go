// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package adberr defines the closed set of error kinds surfaced by the
// socketspec, host, and shell packages.
package adberr

import "fmt"

// UnexpectedDataError reports a framing violation: non-UTF-8 where text
// was required, a parse failure of a structured payload, an unexpected
// wire id, or a frame whose payload size contradicts its kind.
type UnexpectedDataError struct {
	Msg string
}

func (e *UnexpectedDataError) Error() string {
	return fmt.Sprintf("unexpected data: %s", e.Msg)
}

// UnexpectedData constructs an UnexpectedDataError with a formatted message.
func UnexpectedData(format string, args ...interface{}) error {
	return &UnexpectedDataError{Msg: fmt.Sprintf(format, args...)}
}

// ServiceError reports that the server replied FAIL with an explanatory
// message, carried verbatim.
type ServiceError struct {
	Msg string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error: %s", e.Msg)
}

// NewServiceError wraps a server-provided FAIL message.
func NewServiceError(msg string) error {
	return &ServiceError{Msg: msg}
}

// UnimplementedOperationError reports a feature path not yet implemented,
// notably auto-detection of shell-v2 support.
type UnimplementedOperationError struct {
	Msg string
}

func (e *UnimplementedOperationError) Error() string {
	return fmt.Sprintf("unimplemented: %s", e.Msg)
}

// UnimplementedOperation constructs an UnimplementedOperationError.
func UnimplementedOperation(format string, args ...interface{}) error {
	return &UnimplementedOperationError{Msg: fmt.Sprintf(format, args...)}
}

// SocketSpecInvalidError reports an address grammar violation.
type SocketSpecInvalidError struct {
	Input string
}

func (e *SocketSpecInvalidError) Error() string {
	return fmt.Sprintf("invalid socket spec: %q", e.Input)
}

// SocketSpecInvalid constructs a SocketSpecInvalidError for the given input.
func SocketSpecInvalid(input string) error {
	return &SocketSpecInvalidError{Input: input}
}

// SocketSpecMissingHostError reports a dial attempt on a TCP/vsock spec
// with no host.
type SocketSpecMissingHostError struct{}

func (e *SocketSpecMissingHostError) Error() string {
	return "socket spec has no host to dial"
}

// SocketSpecMissingHost constructs a SocketSpecMissingHostError.
func SocketSpecMissingHost() error {
	return &SocketSpecMissingHostError{}
}

// SocketSpecUnsupportedTypeError reports a variant that cannot be dialed
// on the current platform.
type SocketSpecUnsupportedTypeError struct {
	Msg string
}

func (e *SocketSpecUnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported socket spec type: %s", e.Msg)
}

// SocketSpecUnsupportedType constructs a SocketSpecUnsupportedTypeError.
func SocketSpecUnsupportedType(format string, args ...interface{}) error {
	return &SocketSpecUnsupportedTypeError{Msg: fmt.Sprintf(format, args...)}
}

// IoError wraps an underlying transport failure.
type IoError struct {
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error: %v", e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

// Io wraps err as an IoError. Returns nil if err is nil, so callers can
// write `return adberr.Io(err)` unconditionally.
func Io(err error) error {
	if err == nil {
		return nil
	}
	return &IoError{Err: err}
}
