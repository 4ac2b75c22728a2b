// Package nativemsg provides the native messaging host runtime that a browser
// normally supplies: host manifest lookup, host process launching and the
// length-prefixed JSON framing spoken over the host's stdio.
package nativemsg

import (
	"errors"
	"time"
)

const (
	// DefaultHostName is the host the popup connects to unless configured otherwise.
	DefaultHostName = "com.plode_mass_storage.native"

	// ManifestType is the only supported host manifest "type".
	ManifestType = "stdio"

	// ManifestDirName is the per-browser directory that holds host manifests
	// in user data directories.
	ManifestDirName = "NativeMessagingHosts"

	// MaxInboundMessageSize caps a single message read from a host.
	MaxInboundMessageSize = 1024 * 1024

	// DisconnectGracePeriod is how long a host gets to exit after its stdin
	// is closed before the process group is killed.
	DisconnectGracePeriod = 2 * time.Second
)

// Errors reported to the popup. The texts match what browsers surface to
// extensions so that log output reads the same.
var (
	ErrHostNotFound    = errors.New("Specified native messaging host not found.")
	ErrInvalidHostName = errors.New("Invalid native messaging host name specified.")
	ErrForbidden       = errors.New("Access to the specified native messaging host is forbidden.")
	ErrFailedToStart   = errors.New("Failed to start native messaging host.")
	ErrHostExited      = errors.New("Native host has exited.")
	ErrCommunication   = errors.New("Error when communicating with the native messaging host.")
	ErrPortClosed      = errors.New("Attempting to use a disconnected port object")
)
