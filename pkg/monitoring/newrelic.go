package monitoring

import (
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Config holds New Relic configuration
type Config struct {
	LicenseKey string
	AppName    string
	Enabled    bool
	LogLevel   string
}

// NewRelicApp wraps the New Relic application
type NewRelicApp struct {
	*newrelic.Application
	enabled bool
}

// New creates a new New Relic application
func New(cfg Config) (*NewRelicApp, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		// Return disabled app
		return &NewRelicApp{nil, false}, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigAppLogForwardingEnabled(true),
		newrelic.ConfigDistributedTracerEnabled(true),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	return &NewRelicApp{app, true}, nil
}

// RecordCustomEvent records a custom event
func (nr *NewRelicApp) RecordCustomEvent(eventType string, params map[string]interface{}) {
	if !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomEvent(eventType, params)
}

// RecordCustomMetric records a custom metric
func (nr *NewRelicApp) RecordCustomMetric(name string, value float64) {
	if !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomMetric(name, value)
}

// Shutdown gracefully shuts down the New Relic application
func (nr *NewRelicApp) Shutdown(timeout time.Duration) {
	if !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.Shutdown(timeout)
}

// IsEnabled returns whether New Relic is enabled
func (nr *NewRelicApp) IsEnabled() bool {
	return nr.enabled
}

// Custom metric helpers

// RecordRideRequested records ride creation
func (nr *NewRelicApp) RecordRideRequested(paymentMethod string) {
	nr.RecordCustomEvent("RideRequested", map[string]interface{}{
		"payment_method": paymentMethod,
		"timestamp":      time.Now().Unix(),
	})
}

// RecordRideAccepted records a driver winning a ride
func (nr *NewRelicApp) RecordRideAccepted(rideID string) {
	nr.RecordCustomEvent("RideAccepted", map[string]interface{}{
		"ride_id":   rideID,
		"timestamp": time.Now().Unix(),
	})
}

// RecordStatusChange records a lifecycle transition
func (nr *NewRelicApp) RecordStatusChange(rideID, status string) {
	nr.RecordCustomEvent("RideStatusChanged", map[string]interface{}{
		"ride_id": rideID,
		"status":  status,
	})
}

// RecordActiveConnections records the live WebSocket session count
func (nr *NewRelicApp) RecordActiveConnections(count int) {
	nr.RecordCustomMetric("custom/realtime/active_connections", float64(count))
}

// RecordOnlineDrivers records the online driver count
func (nr *NewRelicApp) RecordOnlineDrivers(count int64) {
	nr.RecordCustomMetric("custom/presence/online_drivers", float64(count))
}

// RecordEmergencyAlert records a triggered emergency alert
func (nr *NewRelicApp) RecordEmergencyAlert() {
	nr.RecordCustomMetric("custom/alert/emergency_triggered", 1)
}
