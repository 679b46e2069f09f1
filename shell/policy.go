package shell

import "github.com/gopatchy/artnode/codec"

// forbiddenBroadcastOps is the opcode set that may never be broadcast.
var forbiddenBroadcastOps = map[uint16]bool{
	codec.OpDmx:       true,
	codec.OpPollReply: true,
	codec.OpRdm:       true,
	codec.OpTodData:   true,
}

const limitedBroadcastIP = "255.255.255.255"

// checkBroadcastPolicy rejects a send whose target is the IPv4 limited
// broadcast address (or is explicitly flagged broadcast) when the packet's
// opcode is in the forbidden set. Runs before any socket call.
func checkBroadcastPolicy(op uint16, host string, broadcast bool) error {
	if !forbiddenBroadcastOps[op] {
		return nil
	}
	if broadcast || host == limitedBroadcastIP {
		return ErrPolicyViolation
	}
	return nil
}
