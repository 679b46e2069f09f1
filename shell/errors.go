package shell

import "errors"

// Error taxonomy for the I/O shell. Codec- and protocol-level
// errors live in their own packages; these cover bind/policy/lifecycle
// failures raised by the shell itself.
var (
	// ErrPolicyViolation is raised when a send targets a
	// broadcast-forbidden opcode at the limited broadcast address.
	ErrPolicyViolation = errors.New("shell: broadcast policy violation")

	// ErrNotRunning is returned by lifecycle calls made after Stop.
	ErrNotRunning = errors.New("shell: node is not running")

	// ErrSnapshotTimeout is raised when a Snapshot request exceeds its
	// deadline.
	ErrSnapshotTimeout = errors.New("shell: snapshot request timed out")
)
