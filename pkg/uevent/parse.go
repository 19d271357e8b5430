package uevent

import (
	"bytes"
	"strconv"
)

// MaxMessageLen is the largest uevent message this parser accepts. The
// kernel documents that a multicast uevent message never exceeds this size;
// anything at or above it is the overflow case and must be dropped by the
// caller before Parse is ever invoked.
const MaxMessageLen = 1024

// Parse decodes a NUL-delimited kernel uevent message into an Event. The
// first token ("add@/devices/...") is the action@devpath header and is not
// itself a KEY=value pair; it is skipped when present, since DEVPATH and
// ACTION are always repeated as proper key/value tokens later in the
// message. SEQNUM is recognized and silently ignored; any other unknown key
// is skipped. Absent numeric fields default to -1, absent strings to "".
func Parse(buf []byte) Event {
	ev := Event{PartitionNum: -1, Major: -1, Minor: -1}

	tokens := bytes.Split(buf, []byte{0})
	for i, tok := range tokens {
		if len(tok) == 0 {
			continue
		}
		if i == 0 && !bytes.ContainsRune(tok, '=') {
			// action@devpath header; the real ACTION/DEVPATH tokens below
			// are authoritative.
			continue
		}

		eq := bytes.IndexByte(tok, '=')
		if eq < 0 {
			continue
		}
		key := string(tok[:eq])
		value := string(tok[eq+1:])

		switch key {
		case "ACTION":
			ev.Action = Action(value)
		case "DEVPATH":
			ev.Path = value
		case "SUBSYSTEM":
			ev.Subsystem = value
		case "FIRMWARE":
			ev.Firmware = value
		case "MAJOR":
			ev.Major = atoiOr(value, -1)
		case "MINOR":
			ev.Minor = atoiOr(value, -1)
		case "PARTN":
			ev.PartitionNum = atoiOr(value, -1)
		case "PARTNAME":
			ev.PartitionName = value
		case "DEVNAME":
			ev.DeviceName = value
		case "TYPE":
			ev.Type = value
		case "MODALIAS":
			ev.Modalias = value
		case "PRODUCT":
			ev.Product = value
		case "SEQNUM":
			// ignored
		default:
			// unknown key, skipped
		}
	}

	return ev
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
