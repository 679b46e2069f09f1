package codec

// ArtIpProg command bits.
const (
	IpProgCmdEnable      = 1 << 7
	IpProgCmdDHCP        = 1 << 6
	IpProgCmdDefault     = 1 << 4
	IpProgCmdProgramIP   = 1 << 3
	IpProgCmdProgramSub  = 1 << 2
	IpProgCmdProgramPort = 1 << 1
	IpProgCmdReset       = 0x88
)

// ArtIpProgPacket is the ArtIpProg frame (OpCode 0xF800).
type ArtIpProgPacket struct {
	Command     uint8
	ProgIP      [4]byte
	ProgSubnet  [4]byte
	ProgPort    uint16
	ProgGateway [4]byte
}

func (p *ArtIpProgPacket) OpCode() uint16 { return OpIpProg }

var ipProgSpec = Compile(OpSpec{
	Op: OpIpProg, Name: "ArtIpProg", HasProtoVer: true,
	Fields: []Field{
		{Name: "_", Kind: KindReserved, Length: 2},
		{Name: "Command", Kind: KindU8},
		{Name: "_", Kind: KindReserved, Length: 1},
		{Name: "ProgIP", Kind: KindIPv4},
		{Name: "ProgSubnet", Kind: KindIPv4},
		{Name: "ProgPort", Kind: KindU16LE},
		{Name: "ProgGateway", Kind: KindIPv4},
	},
})

func decodeArtIpProg(buf []byte) (*ArtIpProgPacket, error) {
	if len(buf) < ipProgSpec.MinSize {
		return nil, &TruncationError{OpCode: OpIpProg, Required: ipProgSpec.MinSize, Actual: len(buf)}
	}
	o := ipProgSpec.Offsets
	p := &ArtIpProgPacket{
		Command:  getU8(buf, o[1]),
		ProgPort: getU16LE(buf, o[4]),
	}
	copy(p.ProgIP[:], buf[o[2]:o[2]+4])
	copy(p.ProgSubnet[:], buf[o[3]:o[3]+4])
	copy(p.ProgGateway[:], buf[o[5]:o[5]+4])
	return p, nil
}

func encodeArtIpProg(p *ArtIpProgPacket) ([]byte, error) {
	buf := make([]byte, ipProgSpec.MinSize)
	putHeader(buf, OpIpProg, true)
	o := ipProgSpec.Offsets
	putU8(buf, o[1], p.Command)
	copy(buf[o[2]:o[2]+4], p.ProgIP[:])
	copy(buf[o[3]:o[3]+4], p.ProgSubnet[:])
	putU16LE(buf, o[4], p.ProgPort)
	copy(buf[o[5]:o[5]+4], p.ProgGateway[:])
	return buf, nil
}

// ArtIpProgReplyPacket is the fixed 34-byte ArtIpProgReply frame (OpCode 0xF900).
type ArtIpProgReplyPacket struct {
	ProgIP      [4]byte
	ProgSubnet  [4]byte
	ProgPort    uint16
	ProgGateway [4]byte
	Status      uint8
}

func (p *ArtIpProgReplyPacket) OpCode() uint16 { return OpIpProgReply }

var ipProgReplySpec = Compile(OpSpec{
	Op: OpIpProgReply, Name: "ArtIpProgReply", HasProtoVer: true,
	Fields: []Field{
		{Name: "_", Kind: KindReserved, Length: 2},
		{Name: "ProgIP", Kind: KindIPv4},
		{Name: "ProgSubnet", Kind: KindIPv4},
		{Name: "ProgPort", Kind: KindU16LE},
		{Name: "ProgGateway", Kind: KindIPv4},
		{Name: "Status", Kind: KindU8},
		{Name: "_", Kind: KindReserved, Length: 5},
	},
})

func decodeArtIpProgReply(buf []byte) (*ArtIpProgReplyPacket, error) {
	if len(buf) < ipProgReplySpec.MinSize {
		return nil, &TruncationError{OpCode: OpIpProgReply, Required: ipProgReplySpec.MinSize, Actual: len(buf)}
	}
	o := ipProgReplySpec.Offsets
	p := &ArtIpProgReplyPacket{
		ProgPort: getU16LE(buf, o[3]),
		Status:   getU8(buf, o[5]),
	}
	copy(p.ProgIP[:], buf[o[1]:o[1]+4])
	copy(p.ProgSubnet[:], buf[o[2]:o[2]+4])
	copy(p.ProgGateway[:], buf[o[4]:o[4]+4])
	return p, nil
}

func encodeArtIpProgReply(p *ArtIpProgReplyPacket) ([]byte, error) {
	buf := make([]byte, ipProgReplySpec.MinSize)
	putHeader(buf, OpIpProgReply, true)
	o := ipProgReplySpec.Offsets
	copy(buf[o[1]:o[1]+4], p.ProgIP[:])
	copy(buf[o[2]:o[2]+4], p.ProgSubnet[:])
	putU16LE(buf, o[3], p.ProgPort)
	copy(buf[o[4]:o[4]+4], p.ProgGateway[:])
	putU8(buf, o[5], p.Status)
	return buf, nil
}
