package codec

type decodeFunc func([]byte) (Packet, error)
type encodeFunc func(Packet) ([]byte, error)

var decoders = map[uint16]decodeFunc{}
var encoders = map[uint16]encodeFunc{}

func register[T Packet](op uint16, dec func([]byte) (T, error), enc func(T) ([]byte, error)) {
	decoders[op] = func(b []byte) (Packet, error) { return dec(b) }
	encoders[op] = func(p Packet) ([]byte, error) {
		t, ok := p.(T)
		if !ok {
			return nil, ErrMalformedField
		}
		return enc(t)
	}
}

func init() {
	register(OpPoll, decodeArtPoll, encodeArtPoll)
	register(OpPollReply, decodeArtPollReply, encodeArtPollReply)
	register(OpDmx, decodeArtDmx, encodeArtDmx)
	register(OpNzs, decodeArtNzs, encodeArtNzs)
	register(OpVlc, decodeArtVlc, encodeArtVlc)
	register(OpSync, decodeArtSync, encodeArtSync)
	register(OpAddress, decodeArtAddress, encodeArtAddress)
	register(OpInput, decodeArtInput, encodeArtInput)
	register(OpIpProg, decodeArtIpProg, encodeArtIpProg)
	register(OpIpProgReply, decodeArtIpProgReply, encodeArtIpProgReply)
	register(OpTodRequest, decodeArtTodRequest, encodeArtTodRequest)
	register(OpTodData, decodeArtTodData, encodeArtTodData)
	register(OpTodControl, decodeArtTodControl, encodeArtTodControl)
	register(OpRdm, decodeArtRdm, encodeArtRdm)
	register(OpRdmSub, decodeArtRdmSub, encodeArtRdmSub)
	register(OpCommand, decodeArtCommand, encodeArtCommand)
	register(OpDiagData, decodeArtDiagData, encodeArtDiagData)
	register(OpTrigger, decodeArtTrigger, encodeArtTrigger)
	register(OpDataRequest, decodeArtDataRequest, encodeArtDataRequest)
	register(OpDataReply, decodeArtDataReply, encodeArtDataReply)
	register(OpFirmwareMaster, decodeArtFirmwareMaster, encodeArtFirmwareMaster)
	register(OpFirmwareReply, decodeArtFirmwareReply, encodeArtFirmwareReply)
}

// Decode reads bytes 8-9 little-endian, validates the "Art-Net\0" prefix,
// and looks up the decoder in the opcode->decoder table. Frames that don't
// start with the Art-Net identifier are rejected with ErrBadID; frames
// with an unsupported opcode are rejected with ErrUnknownOpCode.
func Decode(buf []byte) (Packet, error) {
	op, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}
	dec, ok := decoders[op]
	if !ok {
		return nil, ErrUnknownOpCode
	}
	return dec(buf)
}

// Encode looks up the encoder by the packet's opcode tag.
func Encode(p Packet) ([]byte, error) {
	enc, ok := encoders[p.OpCode()]
	if !ok {
		return nil, ErrUnknownOpCode
	}
	return enc(p)
}
