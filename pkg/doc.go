// Package pkg provides shared utilities for the USBHS driver packages.
//
// It contains:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors for USB protocol and driver conditions
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component attribute:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentDCD, "bus reset", "speed", hal.SpeedHigh)
//
// Code running in interrupt context should guard expensive attribute
// construction with [LogEnabled].
//
// # Errors
//
// Errors returned across the HAL boundary are sentinel values:
//
//	if errors.Is(err, pkg.ErrReset) {
//	    // restart enumeration
//	}
package pkg
