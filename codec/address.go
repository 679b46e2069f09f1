package codec

// ArtAddress command byte values.
const (
	AddrCmdClearMerge        = 0x01
	AddrCmdLedNormal         = 0x02
	AddrCmdLedMute           = 0x03
	AddrCmdLedLocate         = 0x04
	AddrCmdFailsafeHold      = 0x08
	AddrCmdFailsafeZero      = 0x09
	AddrCmdFailsafeFull      = 0x0A
	AddrCmdFailsafeScene     = 0x0B
	AddrCmdFailsafeRecord    = 0x0C
	AddrCmdMergeLTPBase      = 0x10
	AddrCmdMergeLTPMax       = 0x13
	AddrCmdDirInputBase      = 0x20
	AddrCmdDirInputMax       = 0x2F
	AddrCmdDirOutputBase     = 0x30
	AddrCmdDirOutputMax      = 0x3F
	AddrCmdMergeHTPBase      = 0x50
	AddrCmdMergeHTPMax       = 0x53
	AddrCmdBgQueuePolicyBase = 0xE0
	AddrCmdBgQueuePolicyMax  = 0xE4
)

// ArtAddressPacket is the ArtAddress frame (OpCode 0x6000).
type ArtAddressPacket struct {
	NetSwitch uint8
	BindIndex uint8
	ShortName string
	LongName  string
	SwIn      [4]uint8
	SwOut     [4]uint8
	SubSwitch uint8
	SwVideo   uint8
	Command   uint8
}

func (p *ArtAddressPacket) OpCode() uint16 { return OpAddress }

var addressSpec = Compile(OpSpec{
	Op: OpAddress, Name: "ArtAddress", HasProtoVer: true,
	Fields: []Field{
		{Name: "NetSwitch", Kind: KindU8},
		{Name: "BindIndex", Kind: KindU8},
		{Name: "ShortName", Kind: KindASCII, Length: 18},
		{Name: "LongName", Kind: KindASCII, Length: 64},
		{Name: "SwIn", Kind: KindBytes, Length: 4},
		{Name: "SwOut", Kind: KindBytes, Length: 4},
		{Name: "SubSwitch", Kind: KindU8},
		{Name: "SwVideo", Kind: KindU8},
		{Name: "Command", Kind: KindU8},
	},
})

func decodeArtAddress(buf []byte) (*ArtAddressPacket, error) {
	if len(buf) < addressSpec.MinSize {
		return nil, &TruncationError{OpCode: OpAddress, Required: addressSpec.MinSize, Actual: len(buf)}
	}
	o := addressSpec.Offsets
	p := &ArtAddressPacket{
		NetSwitch: getU8(buf, o[0]),
		BindIndex: getU8(buf, o[1]),
		ShortName: getASCII(buf, o[2], 18),
		LongName:  getASCII(buf, o[3], 64),
		SubSwitch: getU8(buf, o[6]),
		SwVideo:   getU8(buf, o[7]),
		Command:   getU8(buf, o[8]),
	}
	copy(p.SwIn[:], buf[o[4]:o[4]+4])
	copy(p.SwOut[:], buf[o[5]:o[5]+4])
	return p, nil
}

func encodeArtAddress(p *ArtAddressPacket) ([]byte, error) {
	buf := make([]byte, addressSpec.MinSize)
	putHeader(buf, OpAddress, true)
	o := addressSpec.Offsets
	putU8(buf, o[0], p.NetSwitch)
	putU8(buf, o[1], p.BindIndex)
	putASCII(buf, o[2], 18, p.ShortName)
	putASCII(buf, o[3], 64, p.LongName)
	copy(buf[o[4]:o[4]+4], p.SwIn[:])
	copy(buf[o[5]:o[5]+4], p.SwOut[:])
	putU8(buf, o[6], p.SubSwitch)
	putU8(buf, o[7], p.SwVideo)
	putU8(buf, o[8], p.Command)
	return buf, nil
}

// ArtInputPacket is the ArtInput frame (OpCode 0x7000).
type ArtInputPacket struct {
	BindIndex uint8
	Input     [4]uint8 // bit 7 of each entry disables that input port
}

func (p *ArtInputPacket) OpCode() uint16 { return OpInput }

var inputSpec = Compile(OpSpec{
	Op: OpInput, Name: "ArtInput", HasProtoVer: true,
	Fields: []Field{
		{Name: "BindIndex", Kind: KindU8},
		{Name: "_", Kind: KindReserved, Length: 1},
		{Name: "Input", Kind: KindBytes, Length: 4},
	},
})

func decodeArtInput(buf []byte) (*ArtInputPacket, error) {
	if len(buf) < inputSpec.MinSize {
		return nil, &TruncationError{OpCode: OpInput, Required: inputSpec.MinSize, Actual: len(buf)}
	}
	o := inputSpec.Offsets
	p := &ArtInputPacket{BindIndex: getU8(buf, o[0])}
	copy(p.Input[:], buf[o[2]:o[2]+4])
	return p, nil
}

func encodeArtInput(p *ArtInputPacket) ([]byte, error) {
	buf := make([]byte, inputSpec.MinSize)
	putHeader(buf, OpInput, true)
	o := inputSpec.Offsets
	putU8(buf, o[0], p.BindIndex)
	copy(buf[o[2]:o[2]+4], p.Input[:])
	return buf, nil
}
