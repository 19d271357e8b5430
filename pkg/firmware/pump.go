// Package firmware streams firmware blobs found on disk into the kernel
// via a device's sysfs loading/data handshake, as spec section 4.7
// describes.
package firmware

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ueventd/ueventd/pkg/logging"
	"github.com/ueventd/ueventd/pkg/metrics"
)

// DefaultSearchDirs mirrors the donor's FIRMWARE_DIR1/2/3 constants.
var DefaultSearchDirs = []string{"/etc/firmware", "/vendor/firmware", "/firmware/image"}

// BootingSentinel is the file whose presence means the system has not
// finished booting yet; process_firmware_event's retry loop is gated on it.
const BootingSentinel = "/dev/.booting"

// retryInterval mirrors the donor's 100ms usleep between firmware file
// open attempts while the system is still booting.
const retryInterval = 100 * time.Millisecond

// copyChunkSize matches the donor's PAGE_SIZE-sized stack buffer for the
// fw_fd -> data_fd copy loop.
const copyChunkSize = 4096

// Pump searches SearchDirs for a requested firmware blob and streams it
// into the kernel through a device's sysfs loading/data attributes.
type Pump struct {
	SearchDirs []string

	// BootingSentinel is the file whose presence keeps the retry loop
	// alive while the system is still booting.
	BootingSentinel string

	logger *zap.Logger

	// sysfsPrefix replaces the hardcoded "/sys" root; tests point it at a
	// temp directory so Handle never touches the real sysfs tree.
	sysfsPrefix string

	// isBooting and sleep are overridable for tests; production callers
	// leave them nil and get the real filesystem check and time.Sleep.
	isBooting func() bool
	sleep     func(time.Duration)
}

// NewPump returns a Pump searching searchDirs, or DefaultSearchDirs if
// searchDirs is empty.
func NewPump(searchDirs []string) *Pump {
	if len(searchDirs) == 0 {
		searchDirs = DefaultSearchDirs
	}
	logger := logging.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pump{
		SearchDirs:      searchDirs,
		BootingSentinel: BootingSentinel,
		logger:          logger,
		sysfsPrefix:     "/sys",
		sleep:           time.Sleep,
	}
	p.isBooting = p.sentinelPresent
	return p
}

func (p *Pump) sentinelPresent() bool {
	_, err := os.Stat(p.BootingSentinel)
	return err == nil
}

// Handle implements process_firmware_event: open the device's sysfs
// loading/data attributes, locate the requested firmware under
// SearchDirs (retrying while still booting), and stream it across.
func (p *Pump) Handle(devPath, firmwareName string) {
	root := p.sysfsPrefix + devPath + "/"
	loadingPath := root + "loading"
	dataPath := root + "data"

	loadingFile, err := os.OpenFile(loadingPath, os.O_WRONLY, 0)
	if err != nil {
		p.logger.Debug("firmware loading attribute unavailable", zap.String("path", loadingPath), zap.Error(err))
		return
	}
	defer loadingFile.Close()

	dataFile, err := os.OpenFile(dataPath, os.O_WRONLY, 0)
	if err != nil {
		p.logger.Debug("firmware data attribute unavailable", zap.String("path", dataPath), zap.Error(err))
		return
	}
	defer dataFile.Close()

	booting := p.isBooting()
	var fwFile *os.File
	for {
		fwFile, err = p.openFirmware(firmwareName)
		if err == nil {
			break
		}
		if !booting {
			p.logger.Info("firmware not found", zap.String("firmware", firmwareName))
			_, _ = loadingFile.Write([]byte("-1"))
			metrics.RecordFirmwareTransfer("not_found")
			return
		}
		p.sleep(retryInterval)
		booting = p.isBooting()
	}
	defer fwFile.Close()

	if err := p.copy(fwFile, loadingFile, dataFile); err != nil {
		p.logger.Warn("firmware copy failed", zap.String("firmware", firmwareName), zap.Error(err))
		metrics.RecordFirmwareTransfer("failure")
		return
	}
	metrics.RecordFirmwareTransfer("success")
	p.logger.Info("firmware copy succeeded", zap.String("firmware", firmwareName), zap.String("device", devPath))
}

func (p *Pump) openFirmware(name string) (*os.File, error) {
	var lastErr error
	for _, dir := range p.SearchDirs {
		f, err := os.Open(filepath.Join(dir, name))
		if err == nil {
			return f, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// copy implements load_firmware: write "1" to start the transfer, stream
// the blob in fixed-size chunks tolerating short writes, and write "0" or
// "-1" to loading to signal success or abort.
func (p *Pump) copy(fw io.Reader, loading, data io.Writer) error {
	if _, err := loading.Write([]byte("1")); err != nil {
		return err
	}

	buf := make([]byte, copyChunkSize)
	var copyErr error
	for {
		n, err := fw.Read(buf)
		if n > 0 {
			if werr := writeAll(data, buf[:n]); werr != nil {
				copyErr = werr
				break
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			copyErr = err
			break
		}
	}

	if copyErr == nil {
		_, _ = loading.Write([]byte("0"))
		return nil
	}
	_, _ = loading.Write([]byte("-1"))
	return copyErr
}

func writeAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		if n <= 0 {
			return io.ErrShortWrite
		}
		buf = buf[n:]
	}
	return nil
}
