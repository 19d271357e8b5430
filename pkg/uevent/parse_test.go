package uevent

import "testing"

func msg(tokens ...string) []byte {
	var buf []byte
	for _, t := range tokens {
		buf = append(buf, []byte(t)...)
		buf = append(buf, 0)
	}
	return buf
}

func TestParse_BlockAddWithPartition(t *testing.T) {
	buf := msg(
		"add@/devices/platform/sdhci/mmcblk0p1",
		"ACTION=add",
		"DEVPATH=/devices/platform/sdhci/mmcblk0p1",
		"SUBSYSTEM=block",
		"MAJOR=179",
		"MINOR=1",
		"PARTN=1",
		"PARTNAME=system",
	)

	ev := Parse(buf)

	if ev.Action != ActionAdd {
		t.Fatalf("action = %q, want add", ev.Action)
	}
	if ev.Path != "/devices/platform/sdhci/mmcblk0p1" {
		t.Fatalf("path = %q", ev.Path)
	}
	if ev.Subsystem != "block" {
		t.Fatalf("subsystem = %q", ev.Subsystem)
	}
	if ev.Major != 179 || ev.Minor != 1 {
		t.Fatalf("major/minor = %d/%d", ev.Major, ev.Minor)
	}
	if ev.PartitionNum != 1 {
		t.Fatalf("partition num = %d", ev.PartitionNum)
	}
	if ev.PartitionName != "system" {
		t.Fatalf("partition name = %q", ev.PartitionName)
	}
}

func TestParse_DefaultsWhenAbsent(t *testing.T) {
	ev := Parse(msg("add@/devices/x", "ACTION=add", "DEVPATH=/devices/x"))

	if ev.Major != -1 || ev.Minor != -1 || ev.PartitionNum != -1 {
		t.Fatalf("expected -1 defaults, got major=%d minor=%d partn=%d", ev.Major, ev.Minor, ev.PartitionNum)
	}
	if ev.DeviceName != "" || ev.Modalias != "" || ev.Firmware != "" {
		t.Fatalf("expected empty string defaults, got %+v", ev)
	}
}

func TestParse_SeqnumAndUnknownKeysIgnored(t *testing.T) {
	ev := Parse(msg(
		"add@/devices/x",
		"ACTION=add",
		"DEVPATH=/devices/x",
		"SEQNUM=12345",
		"SOME_FUTURE_KEY=wat",
	))

	if ev.Action != ActionAdd || ev.Path != "/devices/x" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestParse_USBSyntheticBusNumbering(t *testing.T) {
	ev := Parse(msg(
		"add@/devices/pci0000:00/0000:00:14.0/usb1",
		"ACTION=add",
		"DEVPATH=/devices/pci0000:00/0000:00:14.0/usb1",
		"SUBSYSTEM=usb",
		"MAJOR=189",
		"MINOR=130",
	))

	bus := ev.Minor/128 + 1
	dev := ev.Minor%128 + 1
	if bus != 2 || dev != 3 {
		t.Fatalf("bus/dev = %d/%d, want 2/3", bus, dev)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	original := Event{
		Action:        ActionAdd,
		Path:          "/devices/foo",
		Subsystem:     "input",
		Firmware:      "",
		PartitionName: "",
		DeviceName:    "event3",
		Modalias:      "of:Nfoo",
		Product:       "abcd/1234/0100",
		Type:          "",
		PartitionNum:  -1,
		Major:         13,
		Minor:         67,
	}

	buf := msg(
		"add@"+original.Path,
		"ACTION="+string(original.Action),
		"DEVPATH="+original.Path,
		"SUBSYSTEM="+original.Subsystem,
		"DEVNAME="+original.DeviceName,
		"MODALIAS="+original.Modalias,
		"PRODUCT="+original.Product,
		"MAJOR=13",
		"MINOR=67",
	)

	got := Parse(buf)
	if got != original {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, original)
	}
}

func TestParse_OverflowIsCallerResponsibility(t *testing.T) {
	// Parse itself has no length guard; MaxMessageLen documents the
	// contract enforced by the netlink receiver before Parse is called.
	if MaxMessageLen != 1024 {
		t.Fatalf("MaxMessageLen = %d, want 1024", MaxMessageLen)
	}
}
