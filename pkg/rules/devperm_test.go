package rules

import "testing"

func TestDeviceTable_DefaultWhenEmpty(t *testing.T) {
	tbl := NewDeviceTable()

	mode, uid, gid := tbl.Lookup("/dev/anything")
	if mode != 0600 || uid != 0 || gid != 0 {
		t.Fatalf("default = %o/%d/%d, want 0600/0/0", mode, uid, gid)
	}
}

func TestDeviceTable_ReverseOrderOverride(t *testing.T) {
	tbl := NewDeviceTable()
	tbl.Add("/dev/null", 0666, 0, 0, false)
	tbl.Add("/dev/null", 0660, 0, 5, false)

	mode, _, gid := tbl.Lookup("/dev/null")
	if mode != 0660 || gid != 5 {
		t.Fatalf("expected later rule to win, got mode=%o gid=%d", mode, gid)
	}
}

func TestDeviceTable_WildcardMatch(t *testing.T) {
	tbl := NewDeviceTable()
	tbl.Add("/dev/tty*", 0620, 0, 5, true)

	mode, _, gid := tbl.Lookup("/dev/tty3")
	if mode != 0620 || gid != 5 {
		t.Fatalf("expected glob match, got mode=%o gid=%d", mode, gid)
	}

	if _, _, gid := tbl.Lookup("/dev/random"); gid != 0 {
		t.Fatalf("expected no match to fall through to default")
	}
}
