package dbusapi

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"go.uber.org/zap"

	"github.com/ueventd/ueventd/pkg/devnode"
	"github.com/ueventd/ueventd/pkg/module"
	"github.com/ueventd/ueventd/pkg/rules"
)

const (
	busInterface = "org.ueventd.Manager"
	busPath      = "/org/ueventd/Manager"
)

// DeviceInfo is the D-Bus-serializable shape of a created device node.
type DeviceInfo struct {
	Path    string
	IsBlock bool
	Major   int32
	Minor   int32
}

// PlatformDeviceInfo is the D-Bus-serializable shape of a registered
// platform device.
type PlatformDeviceInfo struct {
	Path string
	Name string
}

// Service exposes ueventd's live state over D-Bus: the devices it has
// created, the platform registry, the module deferral queue depth, and
// rule table sizes, plus one Polkit-gated control method that re-runs
// coldboot.
type Service struct {
	conn            *dbus.Conn
	logger          *zap.Logger
	maker           *devnode.Maker
	platform        *rules.PlatformRegistry
	tables          *rules.Tables
	autoloader      *module.Autoloader
	authorizer      *Authorizer
	triggerColdboot func() error

	busName string
	path    dbus.ObjectPath
	props   *prop.Properties
}

// Deps bundles the collaborators Service reports on.
type Deps struct {
	Maker           *devnode.Maker
	Platform        *rules.PlatformRegistry
	Tables          *rules.Tables
	Autoloader      *module.Autoloader
	TriggerColdboot func() error
}

// New connects to the system bus (falling back to the session bus) and
// returns a Service ready to Start.
func New(deps Deps, busName, objectPath string, logger *zap.Logger) (*Service, error) {
	if busName == "" {
		busName = busInterface
	}
	if objectPath == "" {
		objectPath = busPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		conn, err = dbus.ConnectSessionBus()
		if err != nil {
			return nil, fmt.Errorf("connect to d-bus: %w", err)
		}
	}

	svc := &Service{
		conn:            conn,
		logger:          logger,
		maker:           deps.Maker,
		platform:        deps.Platform,
		tables:          deps.Tables,
		autoloader:      deps.Autoloader,
		triggerColdboot: deps.TriggerColdboot,
		busName:         busName,
		path:            dbus.ObjectPath(objectPath),
	}
	svc.authorizer = NewAuthorizer(conn, logger)

	return svc, nil
}

// Start requests the bus name and exports the object, its introspection,
// and its read-only properties.
func (s *Service) Start() error {
	reply, err := s.conn.RequestName(s.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request d-bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("d-bus name %s already taken", s.busName)
	}

	if err := s.conn.Export(s, s.path, busInterface); err != nil {
		return fmt.Errorf("export d-bus object: %w", err)
	}

	intro := introspect.NewIntrospectable(&introspect.Node{
		Name: string(s.path),
		Interfaces: []introspect.Interface{
			{
				Name: busInterface,
				Methods: []introspect.Method{
					{Name: "ListDevices", Args: []introspect.Arg{{Name: "devices", Type: "a(sbii)", Direction: "out"}}},
					{Name: "ListPlatformDevices", Args: []introspect.Arg{{Name: "devices", Type: "a(ss)", Direction: "out"}}},
					{Name: "DeferredModuleCount", Args: []introspect.Arg{{Name: "count", Type: "i", Direction: "out"}}},
					{Name: "RuleCounts", Args: []introspect.Arg{{Name: "counts", Type: "a{si}", Direction: "out"}}},
					{Name: "TriggerColdboot", Args: []introspect.Arg{{Name: "ok", Type: "b", Direction: "out"}}},
				},
			},
		},
	})
	if err := s.conn.Export(intro, s.path, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("export introspection: %w", err)
	}

	s.props, _ = prop.Export(s.conn, s.path, map[string]map[string]*prop.Prop{
		busInterface: {
			"DeferredModuleCount": {
				Value:    int32(s.autoloader.DeferredCount()),
				Writable: false,
				Emit:     prop.EmitTrue,
			},
		},
	})

	s.logger.Info("ueventd D-Bus status service started", zap.String("bus_name", s.busName), zap.String("path", string(s.path)))
	return nil
}

// ListDevices is a D-Bus method returning every device node ueventd has
// created.
func (s *Service) ListDevices() ([]DeviceInfo, *dbus.Error) {
	created := s.maker.Created()
	out := make([]DeviceInfo, 0, len(created))
	for _, d := range created {
		out = append(out, DeviceInfo{Path: d.Path, IsBlock: d.IsBlock, Major: int32(d.Major), Minor: int32(d.Minor)})
	}
	return out, nil
}

// ListPlatformDevices is a D-Bus method returning the currently registered
// platform devices.
func (s *Service) ListPlatformDevices() ([]PlatformDeviceInfo, *dbus.Error) {
	devices := s.platform.List()
	out := make([]PlatformDeviceInfo, 0, len(devices))
	for _, d := range devices {
		out = append(out, PlatformDeviceInfo{Path: d.Path, Name: d.Name})
	}
	return out, nil
}

// DeferredModuleCount is a D-Bus method returning how many modaliases are
// queued for deferred loading.
func (s *Service) DeferredModuleCount() (int32, *dbus.Error) {
	return int32(s.autoloader.DeferredCount()), nil
}

// RuleCounts is a D-Bus method returning how many rules are loaded in each
// table.
func (s *Service) RuleCounts() (map[string]int32, *dbus.Error) {
	return map[string]int32{
		"device_perms": int32(s.tables.Devices.Len()),
		"sysfs_perms":  int32(s.tables.Sysfs.Len()),
		"usb_classes":  int32(s.tables.USBClasses.Len()),
	}, nil
}

// TriggerColdboot is a D-Bus method that re-runs the coldboot walk,
// gated by Polkit authorization.
func (s *Service) TriggerColdboot(sender dbus.Sender) (bool, *dbus.Error) {
	authorized, err := s.authorizer.CheckTriggerColdboot(string(sender))
	if err != nil {
		return false, dbus.MakeFailedError(err)
	}
	return s.runColdbootIfAuthorized(authorized)
}

// runColdbootIfAuthorized applies the authorization decision: it is split
// out from TriggerColdboot so the gated action can be tested without a
// live Polkit round trip.
func (s *Service) runColdbootIfAuthorized(authorized bool) (bool, *dbus.Error) {
	if !authorized {
		return false, dbus.MakeFailedError(fmt.Errorf("not authorized"))
	}
	if s.triggerColdboot == nil {
		return false, nil
	}
	if err := s.triggerColdboot(); err != nil {
		return false, dbus.MakeFailedError(err)
	}
	return true, nil
}

// Stop closes the underlying D-Bus connection.
func (s *Service) Stop() {
	if s.conn != nil {
		s.conn.Close()
	}
}
