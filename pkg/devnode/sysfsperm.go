package devnode

import (
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/ueventd/ueventd/pkg/rules"
)

// ApplySysfsPerms implements spec section 4.3's apply_sys_perms: for every
// sysfs rule matching upath, chown/chmod the resolved attribute path and
// apply an SELinux label if one is configured.
func ApplySysfsPerms(sysfs *rules.SysfsTable, labeler Labeler, logger *zap.Logger, upath string) {
	if labeler == nil {
		labeler = NoopLabeler
	}

	for _, m := range sysfs.Match(upath) {
		if err := unix.Chown(m.Path, int(m.UID), int(m.GID)); err != nil {
			logger.Debug("sysfs chown failed", zap.String("path", m.Path), zap.Error(err))
			continue
		}
		if err := unix.Chmod(m.Path, m.Mode); err != nil {
			logger.Debug("sysfs chmod failed", zap.String("path", m.Path), zap.Error(err))
		}
		if ctx, ok := labeler.Lookup(m.Path, m.Mode); ok {
			if err := unix.Lsetxattr(m.Path, seLabelAttr, []byte(ctx), 0); err != nil {
				logger.Debug("sysfs selinux label failed", zap.String("path", m.Path), zap.Error(err))
			}
		}
	}
}
