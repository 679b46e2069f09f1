package codec

// ArtFirmwareMaster block types.
const (
	FirmwareTypeFirst     uint8 = 0
	FirmwareTypeContinue  uint8 = 1
	FirmwareTypeLast      uint8 = 2
	FirmwareTypeUbeaFirst uint8 = 3
	FirmwareTypeUbeaCont  uint8 = 4
	FirmwareTypeUbeaLast  uint8 = 5
)

// ArtFirmwareReply status codes.
const (
	FirmwareReplyBlockGood uint8 = 0
	FirmwareReplyAllGood   uint8 = 1
	FirmwareReplyFail      uint8 = 2
)

// ArtFirmwareMasterPacket is the ArtFirmwareMaster frame (OpCode 0xF200).
type ArtFirmwareMasterPacket struct {
	Type    uint8
	BlockID uint8
	Length  uint32 // total firmware length in 16-bit words, meaningful on Type==First
	Data    PayloadRef
}

func (p *ArtFirmwareMasterPacket) OpCode() uint16 { return OpFirmwareMaster }

var firmwareMasterSpec = Compile(OpSpec{
	Op: OpFirmwareMaster, Name: "ArtFirmwareMaster", HasProtoVer: true,
	Fields: []Field{
		{Name: "_", Kind: KindReserved, Length: 1}, // Filler
		{Name: "Type", Kind: KindU8},
		{Name: "BlockID", Kind: KindU8},
		{Name: "_", Kind: KindReserved, Length: 1}, // Filler
		{Name: "Length", Kind: KindU32BE},
		{Name: "Data", Kind: KindPayload},
	},
})

func decodeArtFirmwareMaster(buf []byte) (*ArtFirmwareMasterPacket, error) {
	if len(buf) < firmwareMasterSpec.MinSize {
		return nil, &TruncationError{OpCode: OpFirmwareMaster, Required: firmwareMasterSpec.MinSize, Actual: len(buf)}
	}
	o := firmwareMasterSpec.Offsets
	return &ArtFirmwareMasterPacket{
		Type:    getU8(buf, o[1]),
		BlockID: getU8(buf, o[2]),
		Length:  getU32BE(buf, o[4]),
		Data:    newPayloadRef(buf, o[5]),
	}, nil
}

func encodeArtFirmwareMaster(p *ArtFirmwareMasterPacket) ([]byte, error) {
	data := p.Data.Bytes()
	o := firmwareMasterSpec.Offsets
	buf := make([]byte, o[5]+len(data))
	putHeader(buf, OpFirmwareMaster, true)
	putU8(buf, o[1], p.Type)
	putU8(buf, o[2], p.BlockID)
	putU32BE(buf, o[4], p.Length)
	copy(buf[o[5]:], data)
	return buf, nil
}

// ArtFirmwareReplyPacket is the ArtFirmwareReply frame (OpCode 0xF300).
type ArtFirmwareReplyPacket struct {
	Status uint8
}

func (p *ArtFirmwareReplyPacket) OpCode() uint16 { return OpFirmwareReply }

var firmwareReplySpec = Compile(OpSpec{
	Op: OpFirmwareReply, Name: "ArtFirmwareReply", HasProtoVer: true,
	Fields: []Field{
		{Name: "_", Kind: KindReserved, Length: 1},
		{Name: "Status", Kind: KindU8},
		{Name: "_", Kind: KindReserved, Length: 4},
	},
})

func decodeArtFirmwareReply(buf []byte) (*ArtFirmwareReplyPacket, error) {
	if len(buf) < firmwareReplySpec.MinSize {
		return nil, &TruncationError{OpCode: OpFirmwareReply, Required: firmwareReplySpec.MinSize, Actual: len(buf)}
	}
	o := firmwareReplySpec.Offsets
	return &ArtFirmwareReplyPacket{Status: getU8(buf, o[1])}, nil
}

func encodeArtFirmwareReply(p *ArtFirmwareReplyPacket) ([]byte, error) {
	buf := make([]byte, firmwareReplySpec.MinSize)
	putHeader(buf, OpFirmwareReply, true)
	o := firmwareReplySpec.Offsets
	putU8(buf, o[1], p.Status)
	return buf, nil
}
