package firmware

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenFirmware_SearchesDirsInOrder(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir2, "radio.bin"), []byte("blob"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	p := NewPump([]string{dir1, dir2})
	f, err := p.openFirmware("radio.bin")
	if err != nil {
		t.Fatalf("openFirmware: %v", err)
	}
	defer f.Close()

	got := make([]byte, 4)
	if _, err := f.Read(got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "blob" {
		t.Fatalf("content = %q, want blob", got)
	}
}

func TestOpenFirmware_NotFoundAnywhere(t *testing.T) {
	p := NewPump([]string{t.TempDir()})
	if _, err := p.openFirmware("missing.bin"); err == nil {
		t.Fatal("expected an error when firmware is nowhere to be found")
	}
}

func TestCopy_WritesStartAndSuccessMarkers(t *testing.T) {
	p := NewPump(nil)
	var loading, data bytes.Buffer

	content := bytes.Repeat([]byte("x"), copyChunkSize*2+17)
	if err := p.copy(bytes.NewReader(content), &loading, &data); err != nil {
		t.Fatalf("copy: %v", err)
	}

	if loading.String() != "10" {
		t.Fatalf("loading markers = %q, want \"10\"", loading.String())
	}
	if !bytes.Equal(data.Bytes(), content) {
		t.Fatalf("data length = %d, want %d", data.Len(), len(content))
	}
}

func TestCopy_AbortsOnWriteFailure(t *testing.T) {
	p := NewPump(nil)
	var loading bytes.Buffer

	err := p.copy(bytes.NewReader([]byte("data")), &loading, failingWriter{})
	if err == nil {
		t.Fatal("expected an error from a failing data writer")
	}
	if loading.String() != "1-1" {
		t.Fatalf("loading markers = %q, want \"1-1\"", loading.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, os.ErrClosed
}

func TestHandle_RetriesWhileBootingThenSucceeds(t *testing.T) {
	sysRoot := t.TempDir()
	devPath := "/devices/virtual/firmware/foo"
	attrDir := filepath.Join(sysRoot, devPath)
	if err := os.MkdirAll(attrDir, 0755); err != nil {
		t.Fatalf("mkdir attr dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(attrDir, "loading"), nil, 0644); err != nil {
		t.Fatalf("write loading: %v", err)
	}
	if err := os.WriteFile(filepath.Join(attrDir, "data"), nil, 0644); err != nil {
		t.Fatalf("write data: %v", err)
	}

	fwDir := t.TempDir()
	// Firmware only appears after two "not booted yet" retries.
	p := NewPump([]string{fwDir})
	p.sysfsPrefix = sysRoot
	sleeps := 0
	attempts := 0
	p.sleep = func(time.Duration) {
		sleeps++
		if sleeps == 2 {
			if err := os.WriteFile(filepath.Join(fwDir, "foo.bin"), []byte("firmware-bytes"), 0644); err != nil {
				t.Fatalf("write firmware: %v", err)
			}
		}
	}
	p.isBooting = func() bool {
		attempts++
		return attempts <= 2
	}

	p.Handle(devPath, "foo.bin")

	if sleeps != 2 {
		t.Fatalf("expected 2 retries, got %d", sleeps)
	}

	gotData, err := os.ReadFile(filepath.Join(attrDir, "data"))
	if err != nil {
		t.Fatalf("read data attr: %v", err)
	}
	if string(gotData) != "firmware-bytes" {
		t.Fatalf("data attr = %q, want firmware-bytes", gotData)
	}

	gotLoading, err := os.ReadFile(filepath.Join(attrDir, "loading"))
	if err != nil {
		t.Fatalf("read loading attr: %v", err)
	}
	if string(gotLoading) != "10" {
		t.Fatalf("loading attr = %q, want \"10\"", gotLoading)
	}
}

func TestHandle_GivesUpWhenNotBooting(t *testing.T) {
	sysRoot := t.TempDir()
	devPath := "/devices/virtual/firmware/foo"
	attrDir := filepath.Join(sysRoot, devPath)
	if err := os.MkdirAll(attrDir, 0755); err != nil {
		t.Fatalf("mkdir attr dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(attrDir, "loading"), nil, 0644); err != nil {
		t.Fatalf("write loading: %v", err)
	}
	if err := os.WriteFile(filepath.Join(attrDir, "data"), nil, 0644); err != nil {
		t.Fatalf("write data: %v", err)
	}

	p := NewPump([]string{t.TempDir()})
	p.sysfsPrefix = sysRoot
	p.isBooting = func() bool { return false }
	p.sleep = func(time.Duration) { t.Fatal("should not sleep when not booting") }

	p.Handle(devPath, "missing.bin")

	gotLoading, err := os.ReadFile(filepath.Join(attrDir, "loading"))
	if err != nil {
		t.Fatalf("read loading attr: %v", err)
	}
	if string(gotLoading) != "-1" {
		t.Fatalf("loading attr = %q, want -1", gotLoading)
	}
}
