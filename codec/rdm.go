package codec

// RDM command-class bytes accepted by ArtRdm: GET/SET/DISCOVERY requests
// and their responses.
var AcceptedRDMCommandClasses = map[uint8]bool{
	0x10: true, 0x11: true,
	0x20: true, 0x21: true,
	0x30: true, 0x31: true,
}

// ArtTodControl commands.
const (
	TodControlFlush = 0x01
)

// ArtTodData command-response codes.
const (
	TodDataFull = 0x00
	TodDataNak  = 0xFF
)

// ArtTodRequestPacket is the ArtTodRequest frame (OpCode 0x8000).
type ArtTodRequestPacket struct {
	Net       uint8
	Command   uint8
	Addresses []uint8 // combined with Net at the protocol layer to form full PortAddresses
}

func (p *ArtTodRequestPacket) OpCode() uint16 { return OpTodRequest }

var todRequestSpec = Compile(OpSpec{
	Op: OpTodRequest, Name: "ArtTodRequest", HasProtoVer: true,
	Fields: []Field{
		{Name: "_", Kind: KindReserved, Length: 1}, // RdmVer
		{Name: "Net", Kind: KindU8},
		{Name: "Command", Kind: KindU8},
		{Name: "AddCount", Kind: KindU8},
		{Name: "Addresses", Kind: KindPayload},
	},
})

func decodeArtTodRequest(buf []byte) (*ArtTodRequestPacket, error) {
	if len(buf) < todRequestSpec.MinSize {
		return nil, &TruncationError{OpCode: OpTodRequest, Required: todRequestSpec.MinSize, Actual: len(buf)}
	}
	o := todRequestSpec.Offsets
	count := int(getU8(buf, o[3]))
	avail := len(buf) - todRequestSpec.MinSize
	if count > avail {
		count = avail
	}
	addrs := make([]uint8, count)
	copy(addrs, buf[o[4]:o[4]+count])
	return &ArtTodRequestPacket{
		Net:       getU8(buf, o[1]),
		Command:   getU8(buf, o[2]),
		Addresses: addrs,
	}, nil
}

func encodeArtTodRequest(p *ArtTodRequestPacket) ([]byte, error) {
	o := todRequestSpec.Offsets
	buf := make([]byte, o[4]+len(p.Addresses))
	putHeader(buf, OpTodRequest, true)
	putU8(buf, o[1], p.Net)
	putU8(buf, o[2], p.Command)
	putU8(buf, o[3], uint8(len(p.Addresses)))
	copy(buf[o[4]:], p.Addresses)
	return buf, nil
}

// ArtTodDataPacket is the ArtTodData frame (OpCode 0x8100).
type ArtTodDataPacket struct {
	Port            uint8
	CommandResponse uint8
	PortAddress     PortAddress
	BlockCount      uint8
	UIDs            [][6]byte
}

func (p *ArtTodDataPacket) OpCode() uint16 { return OpTodData }

// todDataSpec covers the clean sequential prefix only. The tail (UidTotal,
// BlockCount, UidCount) packs a 16-bit UidTotal whose low byte is
// immediately overwritten by BlockCount, so it can't be expressed as
// non-overlapping fields; todDataHeaderLen and the literal offsets below
// preserve that legacy wire layout exactly.
var todDataSpec = Compile(OpSpec{
	Op: OpTodData, Name: "ArtTodData", HasProtoVer: true,
	Fields: []Field{
		{Name: "_", Kind: KindReserved, Length: 1}, // RdmVer
		{Name: "Port", Kind: KindU8},
		{Name: "_", Kind: KindReserved, Length: 1},
		{Name: "CommandResponse", Kind: KindU8},
		{Name: "PortAddress", Kind: KindU16LE},
	},
})

const todDataHeaderLen = 22 // 18 (sequential prefix) + UidTotal(2) + BlockCount(1) + UidCount(2), overlapping per above

func decodeArtTodData(buf []byte) (*ArtTodDataPacket, error) {
	if len(buf) < todDataHeaderLen {
		return nil, &TruncationError{OpCode: OpTodData, Required: todDataHeaderLen, Actual: len(buf)}
	}
	o := todDataSpec.Offsets
	uidCount := int(getU16BE(buf, 20))
	avail := (len(buf) - todDataHeaderLen) / 6
	if uidCount > avail {
		uidCount = avail
	}
	uids := make([][6]byte, uidCount)
	for i := 0; i < uidCount; i++ {
		copy(uids[i][:], buf[todDataHeaderLen+i*6:todDataHeaderLen+i*6+6])
	}
	return &ArtTodDataPacket{
		Port:            getU8(buf, o[1]),
		CommandResponse: getU8(buf, o[3]),
		PortAddress:     PortAddress(getU16LE(buf, o[4])),
		BlockCount:      getU8(buf, 19),
		UIDs:            uids,
	}, nil
}

func encodeArtTodData(p *ArtTodDataPacket) ([]byte, error) {
	buf := make([]byte, todDataHeaderLen+len(p.UIDs)*6)
	putHeader(buf, OpTodData, true)
	o := todDataSpec.Offsets
	putU8(buf, o[1], p.Port)
	putU8(buf, o[3], p.CommandResponse)
	putU16LE(buf, o[4], uint16(p.PortAddress))
	putU16BE(buf, 18, uint16(len(p.UIDs)))
	putU8(buf, 19, p.BlockCount)
	putU16BE(buf, 20, uint16(len(p.UIDs)))
	for i, u := range p.UIDs {
		copy(buf[todDataHeaderLen+i*6:todDataHeaderLen+i*6+6], u[:])
	}
	return buf, nil
}

// ArtTodControlPacket is the ArtTodControl frame (OpCode 0x8200).
type ArtTodControlPacket struct {
	Net         uint8
	Command     uint8
	PortAddress PortAddress
}

func (p *ArtTodControlPacket) OpCode() uint16 { return OpTodControl }

var todControlSpec = Compile(OpSpec{
	Op: OpTodControl, Name: "ArtTodControl", HasProtoVer: true,
	Fields: []Field{
		{Name: "_", Kind: KindReserved, Length: 1}, // RdmVer
		{Name: "Net", Kind: KindU8},
		{Name: "_", Kind: KindReserved, Length: 1},
		{Name: "Command", Kind: KindU8},
		{Name: "PortAddress", Kind: KindU16LE},
	},
})

func decodeArtTodControl(buf []byte) (*ArtTodControlPacket, error) {
	if len(buf) < todControlSpec.MinSize {
		return nil, &TruncationError{OpCode: OpTodControl, Required: todControlSpec.MinSize, Actual: len(buf)}
	}
	o := todControlSpec.Offsets
	return &ArtTodControlPacket{
		Net:         getU8(buf, o[1]),
		Command:     getU8(buf, o[3]),
		PortAddress: PortAddress(getU16LE(buf, o[4])),
	}, nil
}

func encodeArtTodControl(p *ArtTodControlPacket) ([]byte, error) {
	buf := make([]byte, todControlSpec.MinSize)
	putHeader(buf, OpTodControl, true)
	o := todControlSpec.Offsets
	putU8(buf, o[1], p.Net)
	putU8(buf, o[3], p.Command)
	putU16LE(buf, o[4], uint16(p.PortAddress))
	return buf, nil
}

// ArtRdmPacket is the ArtRdm frame (OpCode 0x8300). RdmData carries the
// RDM PDU starting at its 0xCC start code; the command-class byte sits at
// PDU offset 20.
type ArtRdmPacket struct {
	PortAddress PortAddress
	RdmData     PayloadRef
}

func (p *ArtRdmPacket) OpCode() uint16 { return OpRdm }

var rdmSpec = Compile(OpSpec{
	Op: OpRdm, Name: "ArtRdm", HasProtoVer: true,
	Fields: []Field{
		{Name: "_", Kind: KindReserved, Length: 3}, // RdmVer + Filler
		{Name: "PortAddress", Kind: KindU16LE},
		{Name: "_", Kind: KindReserved, Length: 3}, // Filler
		{Name: "RdmData", Kind: KindPayload},
	},
})

func decodeArtRdm(buf []byte) (*ArtRdmPacket, error) {
	if len(buf) < rdmSpec.MinSize {
		return nil, &TruncationError{OpCode: OpRdm, Required: rdmSpec.MinSize, Actual: len(buf)}
	}
	o := rdmSpec.Offsets
	return &ArtRdmPacket{
		PortAddress: PortAddress(getU16LE(buf, o[1])),
		RdmData:     newPayloadRef(buf, o[3]),
	}, nil
}

func encodeArtRdm(p *ArtRdmPacket) ([]byte, error) {
	data := p.RdmData.Bytes()
	o := rdmSpec.Offsets
	buf := make([]byte, o[3]+len(data))
	putHeader(buf, OpRdm, true)
	putU16LE(buf, o[1], uint16(p.PortAddress))
	copy(buf[o[3]:], data)
	return buf, nil
}

// ArtRdmSubPacket is the ArtRdmSub frame (OpCode 0x8400): a batch RDM
// sub-device GET/SET carrying a first sub-device, a count, and values.
type ArtRdmSubPacket struct {
	UID          [6]byte
	CommandClass uint8
	ParamID      uint16
	SubDevice    uint16
	SubCount     uint16
	Values       PayloadRef // SubCount big-endian uint16 values
}

func (p *ArtRdmSubPacket) OpCode() uint16 { return OpRdmSub }

var rdmSubSpec = Compile(OpSpec{
	Op: OpRdmSub, Name: "ArtRdmSub", HasProtoVer: true,
	Fields: []Field{
		{Name: "_", Kind: KindReserved, Length: 1}, // RdmVer
		{Name: "UID", Kind: KindRDMUID},
		{Name: "CommandClass", Kind: KindU8},
		{Name: "ParamID", Kind: KindU16BE},
		{Name: "SubDevice", Kind: KindU16BE},
		{Name: "SubCount", Kind: KindU16BE},
		{Name: "Values", Kind: KindPayload},
	},
})

func decodeArtRdmSub(buf []byte) (*ArtRdmSubPacket, error) {
	if len(buf) < rdmSubSpec.MinSize {
		return nil, &TruncationError{OpCode: OpRdmSub, Required: rdmSubSpec.MinSize, Actual: len(buf)}
	}
	o := rdmSubSpec.Offsets
	p := &ArtRdmSubPacket{
		CommandClass: getU8(buf, o[2]),
		ParamID:      getU16BE(buf, o[3]),
		SubDevice:    getU16BE(buf, o[4]),
		SubCount:     getU16BE(buf, o[5]),
	}
	copy(p.UID[:], buf[o[1]:o[1]+6])
	p.Values = newPayloadRef(buf, o[6])
	return p, nil
}

func encodeArtRdmSub(p *ArtRdmSubPacket) ([]byte, error) {
	values := p.Values.Bytes()
	o := rdmSubSpec.Offsets
	buf := make([]byte, o[6]+len(values))
	putHeader(buf, OpRdmSub, true)
	copy(buf[o[1]:o[1]+6], p.UID[:])
	putU8(buf, o[2], p.CommandClass)
	putU16BE(buf, o[3], p.ParamID)
	putU16BE(buf, o[4], p.SubDevice)
	putU16BE(buf, o[5], p.SubCount)
	copy(buf[o[6]:], values)
	return buf, nil
}
