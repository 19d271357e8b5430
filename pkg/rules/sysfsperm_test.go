package rules

import "testing"

func TestSysfsTable_ForwardOrderAndPathConstruction(t *testing.T) {
	tbl := NewSysfsTable()
	tbl.Add("/devices/platform/*/power/wakeup", "wakeup", 0660, 0, 6, true)
	tbl.Add("/devices/platform/*/power/wakeup", "wakeup", 0600, 0, 0, true)

	matches := tbl.Match("/devices/platform/sdhci/power/wakeup")
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].GID != 6 {
		t.Fatalf("expected forward order, first match gid=%d", matches[0].GID)
	}
	want := "/sys/devices/platform/sdhci/power/wakeup/wakeup"
	if matches[0].Path != want {
		t.Fatalf("path = %q, want %q", matches[0].Path, want)
	}
}

func TestSysfsTable_WildcardSpansSegments(t *testing.T) {
	tbl := NewSysfsTable()
	tbl.Add("/devices/platform/*", "enable", 0660, 0, 1000, true)

	matches := tbl.Match("/devices/platform/soc/qcom,camera/video0")
	if len(matches) != 1 {
		t.Fatalf("expected a match across path segments, got %v", matches)
	}
}

func TestSysfsTable_NoMatch(t *testing.T) {
	tbl := NewSysfsTable()
	tbl.Add("/devices/platform/specific", "attr", 0640, 0, 0, false)

	if got := tbl.Match("/devices/platform/other"); len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}
