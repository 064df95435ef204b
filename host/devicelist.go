// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package host

import (
	"regexp"
	"strconv"
	"strings"

	"go.adbhost.dev/adb/adberr"
)

// DeviceType is the closed set of device personalities a transport can
// be running. Lowercase names are the canonical wire spelling.
type DeviceType int

const (
	DeviceTypeBootloader DeviceType = iota
	DeviceTypeDevice
	DeviceTypeHost
	DeviceTypeRecovery
	DeviceTypeRescue
	DeviceTypeSideload
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeBootloader:
		return "bootloader"
	case DeviceTypeDevice:
		return "device"
	case DeviceTypeHost:
		return "host"
	case DeviceTypeRecovery:
		return "recovery"
	case DeviceTypeRescue:
		return "rescue"
	case DeviceTypeSideload:
		return "sideload"
	default:
		return "unknown"
	}
}

var deviceTypeByWord = map[string]DeviceType{
	"bootloader": DeviceTypeBootloader,
	"device":     DeviceTypeDevice,
	"host":       DeviceTypeHost,
	"recovery":   DeviceTypeRecovery,
	"rescue":     DeviceTypeRescue,
	"sideload":   DeviceTypeSideload,
}

// TransportKind is the closed set of transport states a device-list
// line can report.
type TransportKind int

const (
	TransportOffline TransportKind = iota
	TransportNoPermissions
	TransportUnauthorized
	TransportAuthorizing
	TransportConnecting
	TransportOnline
)

// transportStateWords lists the non-Online state prefixes in the order
// they must be tested, matching the first-match classification the
// device-list grammar requires.
var transportStateWords = []struct {
	prefix string
	kind   TransportKind
}{
	{"offline", TransportOffline},
	{"no permissions", TransportNoPermissions},
	{"unauthorized", TransportUnauthorized},
	{"authorizing", TransportAuthorizing},
	{"connecting", TransportConnecting},
}

// TransportType is Offline | NoPermissions | Unauthorized | Authorizing
// | Connecting | Online(DeviceType).
type TransportType struct {
	Kind       TransportKind
	DeviceType DeviceType // valid only when Kind == TransportOnline
}

func (t TransportType) String() string {
	switch t.Kind {
	case TransportOffline:
		return "offline"
	case TransportNoPermissions:
		return "no permissions"
	case TransportUnauthorized:
		return "unauthorized"
	case TransportAuthorizing:
		return "authorizing"
	case TransportConnecting:
		return "connecting"
	case TransportOnline:
		return t.DeviceType.String()
	default:
		return "unknown"
	}
}

// DeviceDescription is one parsed line of a "host:devices-l" response.
// The four attribute fields are empty when their key:value token was
// absent from the line.
type DeviceDescription struct {
	Serial        string
	Id            TransportId
	TransportType TransportType
	DevicePath    string
	Product       string
	Model         string
	Device        string
}

// attrTailPattern extracts the fixed-order optional attribute tokens
// from the remainder of a device-type line. The first group is
// intentionally unconstrained (\S+): if the tail begins directly with
// "product:", that whole token is captured as DevicePath rather than
// Product, matching the reference grammar's known quirk verbatim
// rather than special-casing it away.
var attrTailPattern = regexp.MustCompile(`^(\S+)(?: product:(\S+))?(?: model:(\S+))?(?: device:(\S+))?`)

const transportIDMarker = " transport_id:"

// ParseDevices parses the LF-separated body returned by
// "host:devices-l". Empty lines are skipped. Any parse failure aborts
// the whole list with UnexpectedData citing the offending line.
func ParseDevices(body string) ([]DeviceDescription, error) {
	var out []DeviceDescription
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		desc, err := parseDeviceLine(line)
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}

func parseDeviceLine(line string) (DeviceDescription, error) {
	spaceIdx := strings.IndexByte(line, ' ')
	if spaceIdx < 0 {
		return DeviceDescription{}, adberr.UnexpectedData("device line has no serial/state separator: %q", line)
	}
	serial := line[:spaceIdx]
	rest := line[spaceIdx+1:]

	markerIdx := strings.LastIndex(rest, transportIDMarker)
	if markerIdx < 0 {
		return DeviceDescription{}, adberr.UnexpectedData("device line has no transport_id: %q", line)
	}
	middle := rest[:markerIdx]
	idSuffix := rest[markerIdx+len(transportIDMarker):]

	id, err := strconv.ParseUint(idSuffix, 10, 64)
	if err != nil {
		return DeviceDescription{}, adberr.UnexpectedData("device line has invalid transport_id %q: %q", idSuffix, line)
	}

	middle = strings.TrimLeft(middle, " ")

	desc := DeviceDescription{
		Serial: serial,
		Id:     TransportId(id),
	}

	for _, state := range transportStateWords {
		if strings.HasPrefix(middle, state.prefix) {
			desc.TransportType = TransportType{Kind: state.kind}
			return desc, nil
		}
	}

	for word, dt := range deviceTypeByWord {
		var tail string
		switch {
		case middle == word:
			// Bare keyword: empty attribute tail.
		case strings.HasPrefix(middle, word+" "):
			tail = middle[len(word)+1:]
		default:
			continue
		}
		desc.TransportType = TransportType{Kind: TransportOnline, DeviceType: dt}
		applyAttrTail(&desc, tail)
		return desc, nil
	}

	return DeviceDescription{}, adberr.UnexpectedData("device line has unrecognized state/type keyword: %q", line)
}

func applyAttrTail(desc *DeviceDescription, tail string) {
	if tail == "" {
		return
	}
	m := attrTailPattern.FindStringSubmatch(tail)
	if m == nil {
		return
	}
	desc.DevicePath = m[1]
	desc.Product = m[2]
	desc.Model = m[3]
	desc.Device = m[4]
}
