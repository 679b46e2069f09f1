package protocol

import "errors"

// Errors returned directly to the caller from command events. Wire-level
// rejects (malformed RX frames, unsupported opcodes) never reach here;
// those are counted as stats and optionally diagnosed.
var (
	ErrDMXTooLong  = errors.New("protocol: dmx payload exceeds 512 bytes")
	ErrRDMTooShort = errors.New("protocol: rdm payload shorter than 24 bytes")
	ErrRDMBadClass = errors.New("protocol: rdm command class not accepted")
	ErrNoTarget    = errors.New("protocol: command requires a target")
)
