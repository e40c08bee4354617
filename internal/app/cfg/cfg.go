// Package cfg implements functionaltiy to configure an app.
//
// The configuration objects defined here need only be implemented once,
// but can be applied to multiple types.
//
// In order to add support for a new type, the configuration
// need only implement an ApplyX method.
//
package cfg

import (
	"github.com/cyradotpink/influencer/internal"
	"github.com/cyradotpink/influencer/internal/app/apps"
)

// ConnCfg is configuration for the server connection.
type ConnCfg struct {
	host     string
	port     uint16
	password string
}

// NewConnCfg creates a new ConnCfg from the given values.
func NewConnCfg(host string, port uint16, password string) *ConnCfg {
	return &ConnCfg{
		host:     host,
		port:     port,
		password: password,
	}
}

// ConnFromEnv creates a new ConnCfg from the current environment.
func ConnFromEnv() *ConnCfg {
	return &ConnCfg{
		host:     internal.Host,
		port:     internal.Port,
		password: internal.Password,
	}
}

// ApplyRequestApp applies the ConnCfg to a RequestApp.
func (cfg ConnCfg) ApplyRequestApp(app *apps.RequestApp) error {
	app.Host = cfg.host
	app.Port = cfg.port
	app.Password = cfg.password
	return nil
}

// ApplyBatchApp applies the ConnCfg to a BatchApp.
func (cfg ConnCfg) ApplyBatchApp(app *apps.BatchApp) error {
	app.Host = cfg.host
	app.Port = cfg.port
	app.Password = cfg.password
	return nil
}

// ApplyEventsApp applies the ConnCfg to an EventsApp.
func (cfg ConnCfg) ApplyEventsApp(app *apps.EventsApp) error {
	app.Host = cfg.host
	app.Port = cfg.port
	app.Password = cfg.password
	return nil
}

// CompactCfg is configuration for compact JSON output.
type CompactCfg struct {
	compact bool
}

// NewCompactCfg creates a new CompactCfg.
func NewCompactCfg(compact bool) *CompactCfg {
	return &CompactCfg{compact: compact}
}

// ApplyRequestApp applies the CompactCfg to a RequestApp.
func (cfg CompactCfg) ApplyRequestApp(app *apps.RequestApp) error {
	app.Compact = cfg.compact
	return nil
}

// ApplyBatchApp applies the CompactCfg to a BatchApp.
func (cfg CompactCfg) ApplyBatchApp(app *apps.BatchApp) error {
	app.Compact = cfg.compact
	return nil
}

// ApplyEventsApp applies the CompactCfg to an EventsApp.
func (cfg CompactCfg) ApplyEventsApp(app *apps.EventsApp) error {
	app.Compact = cfg.compact
	return nil
}

// BatchOptionsCfg is configuration for batch execution behaviour.
type BatchOptionsCfg struct {
	haltOnFailure *bool
	executionType *int
}

// NewBatchOptionsCfg creates a new BatchOptionsCfg.
func NewBatchOptionsCfg(haltOnFailure *bool, executionType *int) *BatchOptionsCfg {
	return &BatchOptionsCfg{
		haltOnFailure: haltOnFailure,
		executionType: executionType,
	}
}

// ApplyBatchApp applies the BatchOptionsCfg to a BatchApp.
func (cfg BatchOptionsCfg) ApplyBatchApp(app *apps.BatchApp) error {
	app.HaltOnFailure = cfg.haltOnFailure
	app.ExecutionType = cfg.executionType
	return nil
}

// EventSubsCfg is configuration for the event subscription bitmask.
type EventSubsCfg struct {
	mask *uint32
}

// NewEventSubsCfg creates a new EventSubsCfg.
func NewEventSubsCfg(mask *uint32) *EventSubsCfg {
	return &EventSubsCfg{mask: mask}
}

// ApplyEventsApp applies the EventSubsCfg to an EventsApp.
func (cfg EventSubsCfg) ApplyEventsApp(app *apps.EventsApp) error {
	app.EventSubscriptions = cfg.mask
	return nil
}
