package shell

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gopatchy/artnode/codec"
)

func TestBroadcastPolicyRejectsForbiddenOps(t *testing.T) {
	for _, op := range []uint16{codec.OpDmx, codec.OpPollReply, codec.OpRdm, codec.OpTodData} {
		require.ErrorIs(t, checkBroadcastPolicy(op, "255.255.255.255", false), ErrPolicyViolation)
		require.ErrorIs(t, checkBroadcastPolicy(op, "10.0.0.1", true), ErrPolicyViolation)
		require.NoError(t, checkBroadcastPolicy(op, "10.0.0.1", false))
	}
}

func TestBroadcastPolicyAllowsOtherOps(t *testing.T) {
	for _, op := range []uint16{codec.OpPoll, codec.OpSync, codec.OpDiagData, codec.OpTrigger} {
		require.NoError(t, checkBroadcastPolicy(op, "255.255.255.255", true))
	}
}
