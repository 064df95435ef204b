// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package wire implements the ASCII-hex length-prefixed framing every
// ADB host service request and response uses, plus the OKAY/FAIL
// status decoder built on top of it.
package wire

import (
	"fmt"
	"io"
	"unicode/utf8"

	"go.adbhost.dev/adb/adberr"
)

// MaxPayloadLen is the largest payload WriteHexPrefixed/ReadHexPrefixed
// can represent: the length prefix is 4 ASCII hex digits.
const MaxPayloadLen = 0xFFFF

// WriteFull writes all of p to w, retrying partial writes until p is
// fully written or a hard error occurs.
func WriteFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return adberr.Io(err)
		}
		p = p[n:]
	}
	return nil
}

// ReadFull reads exactly len(p) bytes into p, retrying partial reads
// until satisfied or a hard error occurs.
func ReadFull(r io.Reader, p []byte) error {
	_, err := io.ReadFull(r, p)
	if err != nil {
		return adberr.Io(err)
	}
	return nil
}

// WriteHexPrefixed emits "%04x" % len(payload) followed by payload.
// Callers must not exceed MaxPayloadLen; this is not checked
// server-side.
func WriteHexPrefixed(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayloadLen {
		return adberr.UnexpectedData("payload of %d bytes exceeds max hex-prefixed length %d", len(payload), MaxPayloadLen)
	}
	header := fmt.Sprintf("%04x", len(payload))
	if err := WriteFull(w, []byte(header)); err != nil {
		return err
	}
	return WriteFull(w, payload)
}

// ReadHexPrefixed reads exactly 4 bytes, parses them as a lowercase hex
// length, then reads that many payload bytes.
func ReadHexPrefixed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if err := ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n, err := parseHexLen(lenBuf[:])
	if err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if err := ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func parseHexLen(b []byte) (int, error) {
	if !utf8.Valid(b) {
		return 0, adberr.UnexpectedData("length prefix %x is not valid UTF-8", b)
	}
	n := 0
	for _, c := range b {
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'f':
			d = int(c-'a') + 10
		default:
			return 0, adberr.UnexpectedData("length prefix %q is not lowercase hex", b)
		}
		n = n*16 + d
	}
	return n, nil
}

// ReadStatus reads the 4-byte OKAY/FAIL status word. On FAIL it reads
// the following hex-prefixed message and returns it as a ServiceError.
// Any other 4 bytes yield UnexpectedData citing what was observed.
func ReadStatus(r io.Reader) error {
	var status [4]byte
	if err := ReadFull(r, status[:]); err != nil {
		return err
	}
	switch string(status[:]) {
	case "OKAY":
		return nil
	case "FAIL":
		msg, err := ReadHexPrefixed(r)
		if err != nil {
			return err
		}
		return adberr.NewServiceError(string(msg))
	default:
		return adberr.UnexpectedData("expected OKAY or FAIL, got %q", status[:])
	}
}
