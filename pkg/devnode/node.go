package devnode

import (
	"os"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/ueventd/ueventd/pkg/logging"
	"github.com/ueventd/ueventd/pkg/rules"
)

// seLabelAttr is the xattr Linux stores a file's SELinux context under.
// Setting it directly after mknod is the Go-idiomatic equivalent of the
// donor's setfscreatecon/selabel_lookup pair, which relies on a libselinux
// handle this repo does not link against.
const seLabelAttr = "security.selinux"

// Maker creates device nodes and the symlinks/permissions around them,
// consulting a rules.DeviceTable for the permission triple and a Labeler
// for SELinux context.
type Maker struct {
	Devices *rules.DeviceTable
	Labeler Labeler
	logger  *zap.Logger
	created *registry
}

// NewMaker returns a Maker backed by devices and labeler. A nil labeler
// defaults to NoopLabeler.
func NewMaker(devices *rules.DeviceTable, labeler Labeler) *Maker {
	if labeler == nil {
		labeler = NoopLabeler
	}
	logger := logging.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Maker{Devices: devices, Labeler: labeler, logger: logger, created: newRegistry()}
}

// Created lists every device node this Maker has materialized and not yet
// Forgotten, for status reporting.
func (m *Maker) Created() []CreatedDevice {
	return m.created.list()
}

// Forget removes path from the created-device registry, called once a
// remove uevent has unlinked it.
func (m *Maker) Forget(path string) {
	m.created.remove(path)
}

// MakeDevice implements spec section 4.4's make_device: resolve
// permissions, create the node with the correct type bit, chown it, and
// apply an SELinux label if the labeler has one. The gid is set atomically
// with mknod via a transient process-wide setegid, restored with a second
// setegid right after mknod,
// mirroring the donor's race mitigation for readers that open the node
// before chown completes; the uid assignment remains racy exactly as the
// donor accepts, since flipping the effective uid would block some mknod
// calls.
func (m *Maker) MakeDevice(path, upath string, isBlock bool, major, minor int) error {
	mode, uid, gid := m.Devices.Lookup(path)
	if isBlock {
		mode |= unix.S_IFBLK
	} else {
		mode |= unix.S_IFCHR
	}

	dev := unix.Mkdev(uint32(major), uint32(minor))

	origEGID := unix.Getegid()
	if err := syscall.Setegid(int(gid)); err != nil {
		m.logger.Warn("setegid before mknod failed", zap.String("path", path), zap.Error(err))
	}

	mknodErr := unix.Mknod(path, mode, int(dev))

	if err := syscall.Setegid(origEGID); err != nil {
		m.logger.Error("failed to restore egid after mknod", zap.Error(err))
	}

	if mknodErr != nil {
		return mknodErr
	}

	if err := unix.Chown(path, int(uid), -1); err != nil {
		m.logger.Warn("chown after mknod failed", zap.String("path", path), zap.Error(err))
	}

	if ctx, ok := m.Labeler.Lookup(path, mode); ok {
		if err := unix.Lsetxattr(path, seLabelAttr, []byte(ctx), 0); err != nil {
			m.logger.Warn("selinux label apply failed", zap.String("path", path), zap.Error(err))
		}
	}

	m.created.add(CreatedDevice{Path: path, IsBlock: isBlock, Major: major, Minor: minor})

	return nil
}

// MakeLink implements make_link: mkdir -p the parent directory, then
// symlink target at linkpath, replacing any existing entry there.
func MakeLink(target, linkpath string) error {
	if err := os.MkdirAll(filepath.Dir(linkpath), 0755); err != nil {
		return err
	}

	if err := os.Remove(linkpath); err != nil && !os.IsNotExist(err) {
		return err
	}

	return os.Symlink(target, linkpath)
}

// RemoveLink implements remove_link: unlink linkpath only if it currently
// points at target.
func RemoveLink(target, linkpath string) error {
	current, err := os.Readlink(linkpath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if current != target {
		return nil
	}
	return os.Remove(linkpath)
}

// Unlink removes path on a remove uevent, provided the event carried a
// valid major/minor pair.
func Unlink(path string, major, minor int) error {
	if major < 0 || minor < 0 {
		return nil
	}
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// EnsureDir creates dir (and any missing parents) with mode if it does not
// already exist, matching the donor's make_dir-on-demand pattern used by
// every base-directory table entry.
func EnsureDir(dir string, mode os.FileMode) error {
	return os.MkdirAll(dir, mode)
}
