// Package cfg implements functionality to configure an app.
//
// The configuration objects defined here need only be implemented once,
// but can be applied to multiple types.
//
// In order to add support for a new type, the configuration
// need only implement an ApplyX method.
package cfg

import (
	"quiz/internal"
	"quiz/internal/app/apps"
)

// PortCfg is configuration for the quiz server port.
type PortCfg struct {
	port uint16
}

// NewPortCfg creates a new PortCfg from the given config.
func NewPortCfg(port uint16) *PortCfg {
	return &PortCfg{
		port: port,
	}
}

// PortFromEnv creates a new PortCfg from the current environment.
func PortFromEnv() *PortCfg {
	return &PortCfg{
		port: uint16(internal.Port),
	}
}

// ApplyClientApp applies the PortCfg to a ClientApp.
func (cfg PortCfg) ApplyClientApp(app *apps.ClientApp) error {
	app.Port = cfg.port
	return nil
}

// ApplyServerApp applies the PortCfg to a ServerApp.
func (cfg PortCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.Port = cfg.port
	return nil
}

// BankPathCfg is configuration for the question bank file.
type BankPathCfg struct {
	path string
}

// NewBankPathCfg creates a new BankPathCfg from the given config.
func NewBankPathCfg(path string) *BankPathCfg {
	return &BankPathCfg{
		path: path,
	}
}

// ApplyServerApp applies the BankPathCfg to a ServerApp.
func (cfg BankPathCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.BankPath = cfg.path
	return nil
}

// PoolSizeCfg is configuration for the admission pool capacity.
type PoolSizeCfg struct {
	size int
}

// NewPoolSizeCfg creates a new PoolSizeCfg from the given config.
func NewPoolSizeCfg(size int) *PoolSizeCfg {
	return &PoolSizeCfg{
		size: size,
	}
}

// ApplyServerApp applies the PoolSizeCfg to a ServerApp.
func (cfg PoolSizeCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.MaxSessions = cfg.size
	return nil
}
