// Package ipaggerr defines the error kinds named in the service's error
// handling policy, used as sentinels so callers can classify a failure with
// errors.Is and react per the kind's documented policy.
package ipaggerr

import "errors"

var (
	// ErrConfigParse is returned when a settings file cannot be read or
	// parsed, or when the settings name an unknown transport kind. A file
	// that fails to load is a warning, falling through to the next location
	// and finally to defaults; an unknown transport kind is fatal at startup.
	// It never reaches the coordinator.
	ErrConfigParse = errors.New("config parse failed")

	// ErrBindAddress is returned when a receiver or publisher cannot bind
	// its local socket. Fatal at startup.
	ErrBindAddress = errors.New("bind address failed")

	// ErrSendFailure is returned when an individual outbound datagram or
	// message could not be sent. Logged at warn; the batch continues.
	ErrSendFailure = errors.New("send failure")

	// ErrInputParse is returned when an inbound payload could not be
	// parsed into addresses. Logged at warn; the malformed tokens are
	// skipped and the addresses that did parse are kept.
	ErrInputParse = errors.New("input parse failed")

	// ErrBusConnect is returned when the message-bus transport cannot
	// establish its connection at startup. Fatal.
	ErrBusConnect = errors.New("bus connect failed")

	// ErrInternalInvariant marks a condition the design asserts can never
	// happen (e.g. a BitHeap position out of range, or a closed output
	// queue). Always fatal: it indicates a bug, not bad input.
	ErrInternalInvariant = errors.New("internal invariant violated")
)
