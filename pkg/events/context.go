// Package events implements the top-level uevent router: spec section
// 4.5's dispatch logic plus the block, platform and generic device
// handlers it fans out to.
package events

import (
	"go.uber.org/zap"

	"github.com/ueventd/ueventd/pkg/devnode"
	"github.com/ueventd/ueventd/pkg/rules"
)

// ModuleLoader is the module-autoloader collaborator. Dispatch feeds it
// every "add" event's modalias; it decides on its own whether that
// modalias is worth probing.
type ModuleLoader interface {
	Trigger(modalias string)
}

// FirmwarePump is the firmware collaborator. Dispatch hands it every "add"
// event on the firmware subsystem.
type FirmwarePump interface {
	Handle(devPath, firmware string)
}

// Context bundles everything Dispatch and its handlers need: the rule
// tables, the device-node maker, and the module/firmware collaborators.
type Context struct {
	Maker    *devnode.Maker
	Tables   *rules.Tables
	Platform *rules.PlatformRegistry
	Modules  ModuleLoader
	Firmware FirmwarePump
	Logger   *zap.Logger
}

// NewContext wires a Context from its parts. modules or firmware may be nil
// if that subsystem is disabled; Dispatch treats a nil collaborator as a
// no-op.
func NewContext(maker *devnode.Maker, tables *rules.Tables, platform *rules.PlatformRegistry, modules ModuleLoader, firmware FirmwarePump, logger *zap.Logger) *Context {
	return &Context{
		Maker:    maker,
		Tables:   tables,
		Platform: platform,
		Modules:  modules,
		Firmware: firmware,
		Logger:   logger,
	}
}
