package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gopatchy/artnode/codec"
)

// TestOpcodeHandlersAcceptWellFormedFrames is a table-driven smoke test: one
// well-formed frame per remaining opcode should be accepted by Step without
// error and should move the matching "rx-<opcode>" counter.
func TestOpcodeHandlersAcceptWellFormedFrames(t *testing.T) {
	sender := Addr{Host: "10.0.0.5", Port: 6454}

	cases := []struct {
		name    string
		packet  codec.Packet
		counter string
	}{
		{"ArtNzs", &codec.ArtNzsPacket{PortAddress: codec.NewPortAddress(0, 0, 0), StartCode: 1, Length: 3, Data: codec.NewOwnedPayload([]byte{9, 9, 9})}, "rx-artnzs"},
		{"ArtVlc", &codec.ArtVlcPacket{PortAddress: codec.NewPortAddress(0, 0, 0), Data: codec.NewOwnedPayload([]byte{1, 2, 3})}, "rx-artvlc"},
		{"ArtInput", &codec.ArtInputPacket{BindIndex: 1, Input: [4]uint8{0, 0, 0, 0}}, "rx-artinput"},
		{"ArtIpProg", &codec.ArtIpProgPacket{Command: codec.IpProgCmdProgramIP, ProgIP: [4]byte{2, 0, 0, 5}}, "rx-artipprog"},
		{"ArtTodRequest", &codec.ArtTodRequestPacket{Net: 0, Command: 0, Addresses: []uint8{0}}, "rx-arttodrequest"},
		{"ArtTodControl", &codec.ArtTodControlPacket{Net: 0, Command: codec.TodControlFlush, PortAddress: codec.NewPortAddress(0, 0, 0)}, "rx-arttodcontrol"},
		{"ArtCommand", &codec.ArtCommandPacket{Text: codec.NewOwnedPayload([]byte("SwoutText=1\x00"))}, "rx-artcommand"},
		{"ArtTrigger", &codec.ArtTriggerPacket{OemHi: 0xFF, OemLo: 0xFF, Key: 1, SubKey: 0}, "rx-arttrigger"},
		{"ArtDataRequest", &codec.ArtDataRequestPacket{EstaMan: 0, Oem: 0, RequestID: 1}, "rx-artdatarequest"},
		{"ArtFirmwareMaster", &codec.ArtFirmwareMasterPacket{Type: codec.FirmwareTypeFirst, BlockID: 0, Length: 1, Data: codec.NewOwnedPayload([]byte{1, 2})}, "rx-artfirmwaremaster"},
		{"ArtDiagData", &codec.ArtDiagDataPacket{Priority: 0x20, Text: codec.NewOwnedPayload([]byte("hello\x00"))}, "rx-artdiagdata"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestState(1)
			_, _, err := Step(s, Event{Kind: EventRxPacket, Packet: tc.packet, Sender: sender, Timestamp: time.Now()})
			require.NoError(t, err)
			require.Equal(t, uint64(1), s.Stats.Get(tc.counter))
		})
	}
}

// A wire-level reject is counted, never surfaced as an error: the node has
// to keep running whatever a peer throws at it.
func TestHandleArtRdm_CountsShortPayload(t *testing.T) {
	s := newTestState(1)
	_, effects, err := Step(s, Event{Kind: EventRxPacket, Sender: Addr{Host: "10.0.0.1", Port: 6454}, Timestamp: time.Now(), Packet: &codec.ArtRdmPacket{
		PortAddress: codec.NewPortAddress(0, 0, 0),
		RdmData:     codec.NewOwnedPayload([]byte{0x10, 0x01}),
	}})
	require.NoError(t, err)
	require.Equal(t, uint64(1), s.Stats.Get("rdm-invalid-command-class"))
	for _, eff := range effects {
		require.NotEqual(t, EffectCallback, eff.Kind)
	}
}

func TestHandleArtRdm_AcceptsClassAtOffset20(t *testing.T) {
	s := newTestState(1)
	pdu := make([]byte, 26)
	pdu[0] = 0xCC
	pdu[rdmClassOffset] = 0x20 // GET_COMMAND
	copy(pdu[rdmSrcUIDOffset:], []byte{0x12, 0x34, 1, 2, 3, 4})

	_, effects, err := Step(s, Event{Kind: EventRxPacket, Sender: Addr{Host: "10.0.0.1", Port: 6454}, Timestamp: time.Now(), Packet: &codec.ArtRdmPacket{
		PortAddress: codec.NewPortAddress(0, 0, 0),
		RdmData:     codec.NewOwnedPayload(pdu),
	}})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	require.Equal(t, EffectCallback, effects[0].Kind)
	require.Equal(t, "rdm", effects[0].CallbackKey)

	// The source UID is harvested into the port's ToD.
	uids := s.RDM[codec.NewPortAddress(0, 0, 0)].UIDs
	require.True(t, uids[[6]byte{0x12, 0x34, 1, 2, 3, 4}])
}

func TestHandleArtRdmSub_CountsBadClass(t *testing.T) {
	s := newTestState(1)
	_, _, err := Step(s, Event{Kind: EventRxPacket, Sender: Addr{Host: "10.0.0.1", Port: 6454}, Timestamp: time.Now(), Packet: &codec.ArtRdmSubPacket{
		CommandClass: 0x42,
		Values:       codec.NewOwnedPayload(nil),
	}})
	require.NoError(t, err)
	require.Equal(t, uint64(1), s.Stats.Get("rdm-sub-invalid"))
}

func TestHandleArtTodControl_FlushClearsUIDs(t *testing.T) {
	s := newTestState(1)
	pa := codec.NewPortAddress(0, 0, 0)
	s.RDM[pa] = &RDMPortState{UIDs: map[[6]byte]bool{{1, 2, 3, 4, 5, 6}: true}}

	_, _, err := Step(s, Event{Kind: EventRxPacket, Timestamp: time.Now(), Packet: &codec.ArtTodControlPacket{
		Command: codec.TodControlFlush, PortAddress: pa,
	}})
	require.NoError(t, err)
	require.Empty(t, s.RDM[pa].UIDs)
}

func TestHandleArtTodRequest_EmptyToDNaks(t *testing.T) {
	s := newTestState(1)
	sender := Addr{Host: "10.0.0.1", Port: 6454}

	_, effects, err := Step(s, Event{Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(), Packet: &codec.ArtTodRequestPacket{
		Net: 0, Addresses: []uint8{0x00},
	}})
	require.NoError(t, err)
	require.Len(t, effects, 1)

	tod, ok := effects[0].Packet.(*codec.ArtTodDataPacket)
	require.True(t, ok)
	require.Equal(t, uint8(codec.TodDataNak), tod.CommandResponse)
	require.Empty(t, tod.UIDs)
}

func TestCommandSendDMX_RejectsOversizedPayload(t *testing.T) {
	s := newTestState(1)
	_, _, err := Step(s, Event{
		Kind:        EventCommand,
		Command:     CmdSendDMX,
		PortAddress: codec.NewPortAddress(0, 0, 0),
		Data:        make([]byte, 513),
		Timestamp:   time.Now(),
	})
	require.ErrorIs(t, err, ErrDMXTooLong)
}

func TestCommandSendRDM_ValidatesClassAtOffset20(t *testing.T) {
	s := newTestState(1)
	target := Addr{Host: "10.0.0.9", Port: 6454}

	pdu := make([]byte, 26)
	pdu[rdmClassOffset] = 0x42
	_, _, err := Step(s, Event{Kind: EventCommand, Command: CmdSendRDM, Target: target, HasTarget: true, Data: pdu, Timestamp: time.Now()})
	require.ErrorIs(t, err, ErrRDMBadClass)

	pdu[rdmClassOffset] = 0x30 // DISCOVERY_COMMAND
	_, effects, err := Step(s, Event{Kind: EventCommand, Command: CmdSendRDM, Target: target, HasTarget: true, Data: pdu, Timestamp: time.Now()})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	require.Equal(t, uint16(codec.OpRdm), effects[0].Packet.OpCode())

	_, _, err = Step(s, Event{Kind: EventCommand, Command: CmdSendRDM, Data: pdu, Timestamp: time.Now()})
	require.ErrorIs(t, err, ErrNoTarget)
}

func TestFirmwareSessionCompleteAndChecksumFailure(t *testing.T) {
	sender := Addr{Host: "10.0.0.1", Port: 6454}

	// A payload whose ones-complement sum folds to 0xFFFF validates.
	good := []byte{0xFF, 0xFE, 0x00, 0x01}

	s := newTestState(1)
	_, effects, err := Step(s, Event{Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(), Packet: &codec.ArtFirmwareMasterPacket{
		Type: codec.FirmwareTypeFirst, BlockID: 0, Length: 2, Data: codec.NewOwnedPayload(good[:2]),
	}})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	require.Equal(t, uint8(codec.FirmwareReplyBlockGood), effects[0].Packet.(*codec.ArtFirmwareReplyPacket).Status)

	_, effects, err = Step(s, Event{Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(), Packet: &codec.ArtFirmwareMasterPacket{
		Type: codec.FirmwareTypeLast, BlockID: 1, Data: codec.NewOwnedPayload(good[2:]),
	}})
	require.NoError(t, err)

	var reply *codec.ArtFirmwareReplyPacket
	var completeCb bool
	for _, eff := range effects {
		if pkt, ok := eff.Packet.(*codec.ArtFirmwareReplyPacket); ok {
			reply = pkt
		}
		if eff.Kind == EffectCallback && eff.CallbackKey == "firmware" && eff.Payload["event"] == "complete" {
			completeCb = true
		}
	}
	require.NotNil(t, reply)
	require.Equal(t, uint8(codec.FirmwareReplyAllGood), reply.Status)
	require.True(t, completeCb)
	require.Empty(t, s.FirmwareSessions)

	// Same transfer with a corrupted byte fails the checksum.
	s = newTestState(1)
	bad := []byte{0xFF, 0xFE, 0x00, 0x02}
	_, _, err = Step(s, Event{Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(), Packet: &codec.ArtFirmwareMasterPacket{
		Type: codec.FirmwareTypeFirst, BlockID: 0, Length: 2, Data: codec.NewOwnedPayload(bad[:2]),
	}})
	require.NoError(t, err)
	_, effects, err = Step(s, Event{Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(), Packet: &codec.ArtFirmwareMasterPacket{
		Type: codec.FirmwareTypeLast, BlockID: 1, Data: codec.NewOwnedPayload(bad[2:]),
	}})
	require.NoError(t, err)

	var failed bool
	for _, eff := range effects {
		if pkt, ok := eff.Packet.(*codec.ArtFirmwareReplyPacket); ok {
			require.Equal(t, uint8(codec.FirmwareReplyFail), pkt.Status)
		}
		if eff.Kind == EffectCallback && eff.Payload["event"] == "failed" {
			failed = true
		}
	}
	require.True(t, failed)
}

func TestFirmwareOutOfOrderBlockFails(t *testing.T) {
	s := newTestState(1)
	sender := Addr{Host: "10.0.0.1", Port: 6454}

	_, _, err := Step(s, Event{Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(), Packet: &codec.ArtFirmwareMasterPacket{
		Type: codec.FirmwareTypeFirst, BlockID: 0, Length: 4, Data: codec.NewOwnedPayload([]byte{1, 2}),
	}})
	require.NoError(t, err)

	_, effects, err := Step(s, Event{Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(), Packet: &codec.ArtFirmwareMasterPacket{
		Type: codec.FirmwareTypeContinue, BlockID: 5, Data: codec.NewOwnedPayload([]byte{3, 4}),
	}})
	require.NoError(t, err)
	require.Equal(t, uint8(codec.FirmwareReplyFail), effects[0].Packet.(*codec.ArtFirmwareReplyPacket).Status)
	require.Empty(t, s.FirmwareSessions)
}
