package rules

import "testing"

func TestMatches_ExactWhenNotWildcard(t *testing.T) {
	if !matches("/dev/null", "/dev/null", false) {
		t.Fatal("expected exact match")
	}
	if matches("/dev/*", "/dev/null", false) {
		t.Fatal("literal comparison must not glob")
	}
}

func TestFnmatch_StarCrossesSlash(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"/devices/platform/*/power/wakeup", "/devices/platform/sdhci/power/wakeup", true},
		// Multi-segment: '*' must cross '/' boundaries, unlike path.Match.
		{"/devices/platform/*", "/devices/platform/soc/i2c-0/status", true},
		{"/devices/*/usb[0-9]*", "/devices/platform/msm_hsusb_host.0/usb1", true},
		{"/dev/bus/usb/*", "/dev/bus/usb/002/003", true},
		{"/dev/tty*", "/dev/ttyACM0", true},
		{"/dev/tty*", "/dev/random", false},
		{"*/mmcblk?p[0-9]", "/devices/platform/sdhci/mmcblk0p1", true},
		{"[!a]*", "bcd", true},
		{"[!a]*", "abc", false},
		{"?", "", false},
		{"*", "", true},
	}
	for _, tt := range tests {
		if got := fnmatch(tt.pattern, tt.name); got != tt.want {
			t.Errorf("fnmatch(%q, %q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
		}
	}
}

func TestFnmatch_UnterminatedClassIsLiteral(t *testing.T) {
	if !fnmatch("a[b", "a[b") {
		t.Fatal("unterminated class should match itself literally")
	}
	if fnmatch("a[b", "ax") {
		t.Fatal("unterminated class should not match arbitrary input")
	}
}
