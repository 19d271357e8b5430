// Package dbusapi exposes a read-mostly D-Bus status and control service
// over ueventd's in-memory state: registered platform devices, deferred
// module load count, rule table sizes, and a Polkit-gated coldboot
// trigger.
package dbusapi

import (
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	polkitService   = "org.freedesktop.PolicyKit1"
	polkitPath      = "/org/freedesktop/PolicyKit1/Authority"
	polkitInterface = "org.freedesktop.PolicyKit1.Authority"

	actionTriggerColdboot = "org.ueventd.Manager.trigger-coldboot"
)

// Authorizer checks whether a D-Bus caller is authorized for an action.
type Authorizer struct {
	conn   *dbus.Conn
	logger *zap.Logger
}

// NewAuthorizer returns an Authorizer issuing its CheckAuthorization calls
// over conn.
func NewAuthorizer(conn *dbus.Conn, logger *zap.Logger) *Authorizer {
	return &Authorizer{conn: conn, logger: logger}
}

// CheckAuthorization asks Polkit whether sender may perform action. If
// Polkit itself is unreachable, it fails open and allows the call, logging
// a warning: optional authorization infrastructure should not be a single
// point of failure for a device manager.
func (a *Authorizer) CheckAuthorization(sender, action string) (bool, error) {
	obj := a.conn.Object(polkitService, polkitPath)

	subject := struct {
		Kind    string
		Details map[string]dbus.Variant
	}{
		Kind: "system-bus-name",
		Details: map[string]dbus.Variant{
			"name": dbus.MakeVariant(sender),
		},
	}
	actionDetails := map[string]string{}
	flags := uint32(1)
	cancellationID := ""

	var result struct {
		IsAuthorized bool
		IsChallenge  bool
		Details      map[string]string
	}

	err := obj.Call(
		polkitInterface+".CheckAuthorization",
		0,
		subject,
		action,
		actionDetails,
		flags,
		cancellationID,
	).Store(&result)

	if err != nil {
		a.logger.Warn("polkit authorization check failed, allowing by default",
			zap.Error(err), zap.String("action", action))
		return true, nil
	}

	return result.IsAuthorized, nil
}

// CheckTriggerColdboot checks authorization for the coldboot-trigger
// action.
func (a *Authorizer) CheckTriggerColdboot(sender string) (bool, error) {
	return a.CheckAuthorization(sender, actionTriggerColdboot)
}
