package codec

// ArtDmxPacket is the ArtDmx frame (OpCode 0x5000): start-code 0 DMX data.
type ArtDmxPacket struct {
	Sequence    uint8
	Physical    uint8
	PortAddress PortAddress
	Length      uint16
	Data        PayloadRef
}

func (p *ArtDmxPacket) OpCode() uint16 { return OpDmx }

var dmxSpec = Compile(OpSpec{
	Op: OpDmx, Name: "ArtDmx", HasProtoVer: true,
	Fields: []Field{
		{Name: "Sequence", Kind: KindU8},
		{Name: "Physical", Kind: KindU8},
		{Name: "PortAddress", Kind: KindU16LE},
		{Name: "Length", Kind: KindU16BE},
		{Name: "Data", Kind: KindPayload},
	},
})

func decodeArtDmx(buf []byte) (*ArtDmxPacket, error) {
	if len(buf) < dmxSpec.MinSize {
		return nil, &TruncationError{OpCode: OpDmx, Required: dmxSpec.MinSize, Actual: len(buf)}
	}
	o := dmxSpec.Offsets
	length := getU16BE(buf, o[3])
	avail := len(buf) - dmxSpec.MinSize
	if int(length) > avail {
		length = uint16(avail)
	}
	return &ArtDmxPacket{
		Sequence:    getU8(buf, o[0]),
		Physical:    getU8(buf, o[1]),
		PortAddress: PortAddress(getU16LE(buf, o[2])),
		Length:      length,
		Data:        PayloadRef{buf: buf, Offset: o[4], Length: int(length)},
	}, nil
}

func encodeArtDmx(p *ArtDmxPacket) ([]byte, error) {
	data := p.Data.Bytes()
	n := len(data)
	if n > 512 {
		n = 512
	}
	padded := n
	if padded%2 != 0 {
		padded++
	}

	o := dmxSpec.Offsets
	buf := make([]byte, o[4]+padded)
	putHeader(buf, OpDmx, true)
	putU8(buf, o[0], p.Sequence)
	putU8(buf, o[1], p.Physical)
	putU16LE(buf, o[2], uint16(p.PortAddress))
	putU16BE(buf, o[3], uint16(padded))
	copy(buf[o[4]:], data[:n])

	return buf, nil
}

// ArtNzsPacket is the ArtNzs frame (OpCode 0x5100): non-zero start-code data.
type ArtNzsPacket struct {
	Sequence    uint8
	StartCode   uint8
	PortAddress PortAddress
	Length      uint16
	Data        PayloadRef
}

func (p *ArtNzsPacket) OpCode() uint16 { return OpNzs }

var nzsSpec = Compile(OpSpec{
	Op: OpNzs, Name: "ArtNzs", HasProtoVer: true,
	Fields: []Field{
		{Name: "Sequence", Kind: KindU8},
		{Name: "StartCode", Kind: KindU8},
		{Name: "PortAddress", Kind: KindU16LE},
		{Name: "Length", Kind: KindU16BE},
		{Name: "Data", Kind: KindPayload},
	},
})

func decodeArtNzs(buf []byte) (*ArtNzsPacket, error) {
	if len(buf) < nzsSpec.MinSize {
		return nil, &TruncationError{OpCode: OpNzs, Required: nzsSpec.MinSize, Actual: len(buf)}
	}
	o := nzsSpec.Offsets
	length := getU16BE(buf, o[3])
	avail := len(buf) - nzsSpec.MinSize
	if int(length) > avail {
		length = uint16(avail)
	}
	return &ArtNzsPacket{
		Sequence:    getU8(buf, o[0]),
		StartCode:   getU8(buf, o[1]),
		PortAddress: PortAddress(getU16LE(buf, o[2])),
		Length:      length,
		Data:        PayloadRef{buf: buf, Offset: o[4], Length: int(length)},
	}, nil
}

func encodeArtNzs(p *ArtNzsPacket) ([]byte, error) {
	data := p.Data.Bytes()
	n := len(data)
	if n > 512 {
		n = 512
	}

	o := nzsSpec.Offsets
	buf := make([]byte, o[4]+n)
	putHeader(buf, OpNzs, true)
	putU8(buf, o[0], p.Sequence)
	putU8(buf, o[1], p.StartCode)
	putU16LE(buf, o[2], uint16(p.PortAddress))
	putU16BE(buf, o[3], uint16(n))
	copy(buf[o[4]:], data[:n])

	return buf, nil
}

// ArtVlcPacket is the ArtVlc frame (OpCode 0x6100): visible light comms data.
type ArtVlcPacket struct {
	Sequence     uint8
	StartCode    uint8
	PortAddress  PortAddress
	Length       uint16
	VlcStartCode uint16 // 0x91
	Flags        uint8
	Data         PayloadRef
}

const (
	VlcFlagIEEE   = 1 << 0
	VlcFlagReply  = 1 << 1
	VlcFlagBeacon = 1 << 2
)

func (p *ArtVlcPacket) OpCode() uint16 { return OpVlc }

var vlcSpec = Compile(OpSpec{
	Op: OpVlc, Name: "ArtVlc", HasProtoVer: true,
	Fields: []Field{
		{Name: "Sequence", Kind: KindU8},
		{Name: "StartCode", Kind: KindU8},
		{Name: "PortAddress", Kind: KindU16LE},
		{Name: "Length", Kind: KindU16BE},
		{Name: "VlcStartCode", Kind: KindU16BE},
		{Name: "Flags", Kind: KindU8},
		{Name: "_", Kind: KindReserved, Length: 2},
		{Name: "Data", Kind: KindPayload},
	},
})

func decodeArtVlc(buf []byte) (*ArtVlcPacket, error) {
	if len(buf) < vlcSpec.MinSize {
		return nil, &TruncationError{OpCode: OpVlc, Required: vlcSpec.MinSize, Actual: len(buf)}
	}
	o := vlcSpec.Offsets
	length := getU16BE(buf, o[3])
	avail := len(buf) - vlcSpec.MinSize
	if int(length) > avail {
		length = uint16(avail)
	}
	return &ArtVlcPacket{
		Sequence:     getU8(buf, o[0]),
		StartCode:    getU8(buf, o[1]),
		PortAddress:  PortAddress(getU16LE(buf, o[2])),
		Length:       length,
		VlcStartCode: getU16BE(buf, o[4]),
		Flags:        getU8(buf, o[5]),
		Data:         PayloadRef{buf: buf, Offset: o[7], Length: int(length)},
	}, nil
}

func encodeArtVlc(p *ArtVlcPacket) ([]byte, error) {
	data := p.Data.Bytes()
	n := len(data)
	if n > 512 {
		n = 512
	}

	o := vlcSpec.Offsets
	buf := make([]byte, o[7]+n)
	putHeader(buf, OpVlc, true)
	putU8(buf, o[0], p.Sequence)
	putU8(buf, o[1], p.StartCode)
	putU16LE(buf, o[2], uint16(p.PortAddress))
	putU16BE(buf, o[3], uint16(n))
	putU16BE(buf, o[4], 0x91)
	putU8(buf, o[5], p.Flags)
	copy(buf[o[7]:], data[:n])

	return buf, nil
}

// ArtSyncPacket is the ArtSync frame (OpCode 0x5200): no variable payload.
type ArtSyncPacket struct {
	Aux uint8
}

func (p *ArtSyncPacket) OpCode() uint16 { return OpSync }

var syncSpec = Compile(OpSpec{
	Op: OpSync, Name: "ArtSync", HasProtoVer: true,
	Fields: []Field{
		{Name: "_", Kind: KindReserved, Length: 1},
		{Name: "Aux", Kind: KindU8},
	},
})

func decodeArtSync(buf []byte) (*ArtSyncPacket, error) {
	if len(buf) < syncSpec.MinSize {
		return nil, &TruncationError{OpCode: OpSync, Required: syncSpec.MinSize, Actual: len(buf)}
	}
	return &ArtSyncPacket{Aux: getU8(buf, syncSpec.Offsets[1])}, nil
}

func encodeArtSync(p *ArtSyncPacket) ([]byte, error) {
	buf := make([]byte, syncSpec.MinSize)
	putHeader(buf, OpSync, true)
	putU8(buf, syncSpec.Offsets[1], p.Aux)
	return buf, nil
}
