package codec

// ArtTriggerPacket is the ArtTrigger frame (OpCode 0x9900).
type ArtTriggerPacket struct {
	OemHi  uint8
	OemLo  uint8
	Key    uint8
	SubKey uint8
	Data   PayloadRef
}

func (p *ArtTriggerPacket) OpCode() uint16 { return OpTrigger }

// Oem returns the combined 16-bit OEM code, 0xFFFF meaning "any node".
func (p *ArtTriggerPacket) Oem() uint16 { return uint16(p.OemHi)<<8 | uint16(p.OemLo) }

var triggerSpec = Compile(OpSpec{
	Op: OpTrigger, Name: "ArtTrigger", HasProtoVer: true,
	Fields: []Field{
		{Name: "_", Kind: KindReserved, Length: 2},
		{Name: "OemHi", Kind: KindU8},
		{Name: "OemLo", Kind: KindU8},
		{Name: "Key", Kind: KindU8},
		{Name: "SubKey", Kind: KindU8},
		{Name: "Data", Kind: KindPayload},
	},
})

func decodeArtTrigger(buf []byte) (*ArtTriggerPacket, error) {
	if len(buf) < triggerSpec.MinSize {
		return nil, &TruncationError{OpCode: OpTrigger, Required: triggerSpec.MinSize, Actual: len(buf)}
	}
	o := triggerSpec.Offsets
	return &ArtTriggerPacket{
		OemHi:  getU8(buf, o[1]),
		OemLo:  getU8(buf, o[2]),
		Key:    getU8(buf, o[3]),
		SubKey: getU8(buf, o[4]),
		Data:   newPayloadRef(buf, o[5]),
	}, nil
}

func encodeArtTrigger(p *ArtTriggerPacket) ([]byte, error) {
	data := p.Data.Bytes()
	o := triggerSpec.Offsets
	buf := make([]byte, o[5]+len(data))
	putHeader(buf, OpTrigger, true)
	putU8(buf, o[1], p.OemHi)
	putU8(buf, o[2], p.OemLo)
	putU8(buf, o[3], p.Key)
	putU8(buf, o[4], p.SubKey)
	copy(buf[o[5]:], data)
	return buf, nil
}

// ArtDataRequestPacket is the ArtDataRequest frame (OpCode 0x2700).
type ArtDataRequestPacket struct {
	EstaMan   uint16
	Oem       uint16
	RequestID uint16
}

func (p *ArtDataRequestPacket) OpCode() uint16 { return OpDataRequest }

var dataRequestSpec = Compile(OpSpec{
	Op: OpDataRequest, Name: "ArtDataRequest", HasProtoVer: true,
	Fields: []Field{
		{Name: "EstaMan", Kind: KindU16LE},
		{Name: "Oem", Kind: KindU16LE},
		{Name: "RequestID", Kind: KindU16LE},
	},
})

func decodeArtDataRequest(buf []byte) (*ArtDataRequestPacket, error) {
	if len(buf) < dataRequestSpec.MinSize {
		return nil, &TruncationError{OpCode: OpDataRequest, Required: dataRequestSpec.MinSize, Actual: len(buf)}
	}
	o := dataRequestSpec.Offsets
	return &ArtDataRequestPacket{
		EstaMan:   getU16LE(buf, o[0]),
		Oem:       getU16LE(buf, o[1]),
		RequestID: getU16LE(buf, o[2]),
	}, nil
}

func encodeArtDataRequest(p *ArtDataRequestPacket) ([]byte, error) {
	buf := make([]byte, dataRequestSpec.MinSize)
	putHeader(buf, OpDataRequest, true)
	o := dataRequestSpec.Offsets
	putU16LE(buf, o[0], p.EstaMan)
	putU16LE(buf, o[1], p.Oem)
	putU16LE(buf, o[2], p.RequestID)
	return buf, nil
}

// ArtDataReplyPacket is the ArtDataReply frame (OpCode 0x2800).
type ArtDataReplyPacket struct {
	EstaMan   uint16
	Oem       uint16
	RequestID uint16
	Payload   PayloadRef
}

func (p *ArtDataReplyPacket) OpCode() uint16 { return OpDataReply }

var dataReplySpec = Compile(OpSpec{
	Op: OpDataReply, Name: "ArtDataReply", HasProtoVer: true,
	Fields: []Field{
		{Name: "EstaMan", Kind: KindU16LE},
		{Name: "Oem", Kind: KindU16LE},
		{Name: "RequestID", Kind: KindU16LE},
		{Name: "Payload", Kind: KindPayload},
	},
})

func decodeArtDataReply(buf []byte) (*ArtDataReplyPacket, error) {
	if len(buf) < dataReplySpec.MinSize {
		return nil, &TruncationError{OpCode: OpDataReply, Required: dataReplySpec.MinSize, Actual: len(buf)}
	}
	o := dataReplySpec.Offsets
	return &ArtDataReplyPacket{
		EstaMan:   getU16LE(buf, o[0]),
		Oem:       getU16LE(buf, o[1]),
		RequestID: getU16LE(buf, o[2]),
		Payload:   newPayloadRef(buf, o[3]),
	}, nil
}

func encodeArtDataReply(p *ArtDataReplyPacket) ([]byte, error) {
	payload := p.Payload.Bytes()
	o := dataReplySpec.Offsets
	buf := make([]byte, o[3]+len(payload))
	putHeader(buf, OpDataReply, true)
	putU16LE(buf, o[0], p.EstaMan)
	putU16LE(buf, o[1], p.Oem)
	putU16LE(buf, o[2], p.RequestID)
	copy(buf[o[3]:], payload)
	return buf, nil
}
