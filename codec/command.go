package codec

// ArtCommandPacket is the ArtCommand frame (OpCode 0x2400): ASCII
// "Key=Value&..." directives, NUL terminated (length includes the NUL).
type ArtCommandPacket struct {
	EstaMan uint16
	Text    PayloadRef
}

func (p *ArtCommandPacket) OpCode() uint16 { return OpCommand }

var commandSpec = Compile(OpSpec{
	Op: OpCommand, Name: "ArtCommand", HasProtoVer: true,
	Fields: []Field{
		{Name: "EstaMan", Kind: KindU16LE},
		{Name: "Length", Kind: KindU16BE},
		{Name: "Text", Kind: KindPayload},
	},
})

func decodeArtCommand(buf []byte) (*ArtCommandPacket, error) {
	if len(buf) < commandSpec.MinSize {
		return nil, &TruncationError{OpCode: OpCommand, Required: commandSpec.MinSize, Actual: len(buf)}
	}
	o := commandSpec.Offsets
	length := int(getU16BE(buf, o[1]))
	avail := len(buf) - commandSpec.MinSize
	if length > avail {
		length = avail
	}
	return &ArtCommandPacket{
		EstaMan: getU16LE(buf, o[0]),
		Text:    PayloadRef{buf: buf, Offset: o[2], Length: length},
	}, nil
}

func encodeArtCommand(p *ArtCommandPacket) ([]byte, error) {
	text := p.Text.Bytes()
	o := commandSpec.Offsets
	buf := make([]byte, o[2]+len(text))
	putHeader(buf, OpCommand, true)
	putU16LE(buf, o[0], p.EstaMan)
	putU16BE(buf, o[1], uint16(len(text)))
	copy(buf[o[2]:], text)
	return buf, nil
}

// ArtDiagDataPacket is the ArtDiagData frame (OpCode 0x2300): ASCII
// diagnostic text, NUL terminated.
type ArtDiagDataPacket struct {
	Priority uint8
	Text     PayloadRef
}

func (p *ArtDiagDataPacket) OpCode() uint16 { return OpDiagData }

var diagDataSpec = Compile(OpSpec{
	Op: OpDiagData, Name: "ArtDiagData", HasProtoVer: true,
	Fields: []Field{
		{Name: "_", Kind: KindReserved, Length: 1},
		{Name: "Priority", Kind: KindU8},
		{Name: "Length", Kind: KindU16BE},
		{Name: "Text", Kind: KindPayload},
	},
})

func decodeArtDiagData(buf []byte) (*ArtDiagDataPacket, error) {
	if len(buf) < diagDataSpec.MinSize {
		return nil, &TruncationError{OpCode: OpDiagData, Required: diagDataSpec.MinSize, Actual: len(buf)}
	}
	o := diagDataSpec.Offsets
	length := int(getU16BE(buf, o[2]))
	avail := len(buf) - diagDataSpec.MinSize
	if length > avail {
		length = avail
	}
	return &ArtDiagDataPacket{
		Priority: getU8(buf, o[1]),
		Text:     PayloadRef{buf: buf, Offset: o[3], Length: length},
	}, nil
}

func encodeArtDiagData(p *ArtDiagDataPacket) ([]byte, error) {
	text := p.Text.Bytes()
	o := diagDataSpec.Offsets
	buf := make([]byte, o[3]+len(text))
	putHeader(buf, OpDiagData, true)
	putU8(buf, o[1], p.Priority)
	putU16BE(buf, o[2], uint16(len(text)))
	copy(buf[o[3]:], text)
	return buf, nil
}
