package codec

// ArtPoll flag bits.
const (
	PollFlagSuppressReplyDelay = 1 << 0
	PollFlagReplyOnChange      = 1 << 1
	PollFlagDiagnostics        = 1 << 2
	PollFlagDiagUnicast        = 1 << 3
	PollFlagTargeted           = 1 << 5
)

// ArtPollPacket is the 22-byte Art-Net 4 ArtPoll frame.
type ArtPollPacket struct {
	Flags        uint8
	DiagPriority uint8
	TargetBottom PortAddress
	TargetTop    PortAddress
	EstaMan      uint16
	Oem          uint16
}

func (p *ArtPollPacket) OpCode() uint16 { return OpPoll }

var pollSpec = Compile(OpSpec{
	Op: OpPoll, Name: "ArtPoll", HasProtoVer: true,
	Fields: []Field{
		{Name: "Flags", Kind: KindU8},
		{Name: "DiagPriority", Kind: KindU8},
		{Name: "TargetBottom", Kind: KindU16LE},
		{Name: "TargetTop", Kind: KindU16LE},
		{Name: "EstaMan", Kind: KindU16LE},
		{Name: "Oem", Kind: KindU16LE},
	},
})

func decodeArtPoll(buf []byte) (*ArtPollPacket, error) {
	if len(buf) < pollSpec.MinSize {
		return nil, &TruncationError{OpCode: OpPoll, Required: pollSpec.MinSize, Actual: len(buf)}
	}
	o := pollSpec.Offsets
	return &ArtPollPacket{
		Flags:        getU8(buf, o[0]),
		DiagPriority: getU8(buf, o[1]),
		TargetBottom: PortAddress(getU16LE(buf, o[2])),
		TargetTop:    PortAddress(getU16LE(buf, o[3])),
		EstaMan:      getU16LE(buf, o[4]),
		Oem:          getU16LE(buf, o[5]),
	}, nil
}

func encodeArtPoll(p *ArtPollPacket) ([]byte, error) {
	buf := make([]byte, pollSpec.MinSize)
	putHeader(buf, OpPoll, true)
	o := pollSpec.Offsets
	putU8(buf, o[0], p.Flags)
	putU8(buf, o[1], p.DiagPriority)
	putU16LE(buf, o[2], uint16(p.TargetBottom))
	putU16LE(buf, o[3], uint16(p.TargetTop))
	putU16LE(buf, o[4], p.EstaMan)
	putU16LE(buf, o[5], p.Oem)
	return buf, nil
}

// ArtPollReplyPacket is the fixed 239-byte Art-Net 4 ArtPollReply frame.
// One page (up to 4 ports) per instance; multi-port nodes encode one
// ArtPollReplyPacket per page at the protocol layer.
type ArtPollReplyPacket struct {
	IP                    [4]byte
	UDPPort               uint16
	VersionInfo           uint16
	NetSwitch             uint8
	SubSwitch             uint8
	OemHi                 uint8
	Oem                   uint8
	UbeaVersion           uint8
	Status1               uint8
	EstaMan               uint16
	ShortName             string
	LongName              string
	NodeReport            string
	NumPorts              uint8
	PortTypes             [4]uint8
	GoodInput             [4]uint8
	GoodOutputA           [4]uint8
	SwIn                  [4]uint8
	SwOut                 [4]uint8
	SwVideo               uint8
	SwMacro               uint8
	SwRemote              uint8
	Style                 uint8
	MAC                   [6]byte
	BindIP                [4]byte
	BindIndex             uint8
	Status2               uint8
	GoodOutputB           [4]uint8
	Status3               uint8
	DefaultResponderUID   [6]byte
	UserHi                uint8
	UserLo                uint8
	RefreshRateHi         uint8
	RefreshRateLo         uint8
	BackgroundQueuePolicy uint8
}

func (p *ArtPollReplyPacket) OpCode() uint16 { return OpPollReply }

// ArtPollReplySize is the fixed wire size of every ArtPollReply.
const ArtPollReplySize = 239

// Status2 bits: DHCPCapable, ExtendedPortAddr and
// OutputStyleSwitch are always set by the protocol layer; RDMViaArtAddress
// is set iff an RDM callback is registered.
const (
	Status2DHCPCapable       = 1 << 0
	Status2ExtendedPortAddr  = 1 << 1
	Status2RDMViaArtAddress  = 1 << 2
	Status2OutputStyleSwitch = 1 << 3
)

// pollReplySpec lays out the full 239-byte frame. ArtPollReply is the one
// opcode with no protocol-version word: fields start right after the
// opcode, and the trailing reserved block pads the frame to its fixed size.
var pollReplySpec = Compile(OpSpec{
	Op: OpPollReply, Name: "ArtPollReply",
	Fields: []Field{
		{Name: "IP", Kind: KindIPv4},
		{Name: "UDPPort", Kind: KindU16LE},
		{Name: "VersionInfo", Kind: KindU16BE},
		{Name: "NetSwitch", Kind: KindU8},
		{Name: "SubSwitch", Kind: KindU8},
		{Name: "OemHi", Kind: KindU8},
		{Name: "Oem", Kind: KindU8},
		{Name: "UbeaVersion", Kind: KindU8},
		{Name: "Status1", Kind: KindU8},
		{Name: "EstaMan", Kind: KindU16LE},
		{Name: "ShortName", Kind: KindASCII, Length: 18},
		{Name: "LongName", Kind: KindASCII, Length: 64},
		{Name: "NodeReport", Kind: KindASCII, Length: 64},
		{Name: "_", Kind: KindReserved, Length: 1}, // NumPortsHi, always 0
		{Name: "NumPorts", Kind: KindU8},
		{Name: "PortTypes", Kind: KindBytes, Length: 4},
		{Name: "GoodInput", Kind: KindBytes, Length: 4},
		{Name: "GoodOutputA", Kind: KindBytes, Length: 4},
		{Name: "SwIn", Kind: KindBytes, Length: 4},
		{Name: "SwOut", Kind: KindBytes, Length: 4},
		{Name: "SwVideo", Kind: KindU8},
		{Name: "SwMacro", Kind: KindU8},
		{Name: "SwRemote", Kind: KindU8},
		{Name: "_", Kind: KindReserved, Length: 3}, // Spare1-3
		{Name: "Style", Kind: KindU8},
		{Name: "MAC", Kind: KindMAC},
		{Name: "BindIP", Kind: KindIPv4},
		{Name: "BindIndex", Kind: KindU8},
		{Name: "Status2", Kind: KindU8},
		{Name: "GoodOutputB", Kind: KindBytes, Length: 4},
		{Name: "Status3", Kind: KindU8},
		{Name: "DefaultResponderUID", Kind: KindRDMUID},
		{Name: "UserHi", Kind: KindU8},
		{Name: "UserLo", Kind: KindU8},
		{Name: "RefreshRateHi", Kind: KindU8},
		{Name: "RefreshRateLo", Kind: KindU8},
		{Name: "BackgroundQueuePolicy", Kind: KindU8},
		{Name: "_", Kind: KindReserved, Length: 10},
	},
})

func decodeArtPollReply(buf []byte) (*ArtPollReplyPacket, error) {
	if len(buf) < pollReplySpec.MinSize {
		return nil, &TruncationError{OpCode: OpPollReply, Required: pollReplySpec.MinSize, Actual: len(buf)}
	}

	o := pollReplySpec.Offsets
	p := &ArtPollReplyPacket{
		UDPPort:               getU16LE(buf, o[1]),
		VersionInfo:           getU16BE(buf, o[2]),
		NetSwitch:             getU8(buf, o[3]),
		SubSwitch:             getU8(buf, o[4]),
		OemHi:                 getU8(buf, o[5]),
		Oem:                   getU8(buf, o[6]),
		UbeaVersion:           getU8(buf, o[7]),
		Status1:               getU8(buf, o[8]),
		EstaMan:               getU16LE(buf, o[9]),
		ShortName:             getASCII(buf, o[10], 18),
		LongName:              getASCII(buf, o[11], 64),
		NodeReport:            getASCII(buf, o[12], 64),
		NumPorts:              getU8(buf, o[14]),
		SwVideo:               getU8(buf, o[20]),
		SwMacro:               getU8(buf, o[21]),
		SwRemote:              getU8(buf, o[22]),
		Style:                 getU8(buf, o[24]),
		BindIndex:             getU8(buf, o[27]),
		Status2:               getU8(buf, o[28]),
		Status3:               getU8(buf, o[30]),
		UserHi:                getU8(buf, o[32]),
		UserLo:                getU8(buf, o[33]),
		RefreshRateHi:         getU8(buf, o[34]),
		RefreshRateLo:         getU8(buf, o[35]),
		BackgroundQueuePolicy: getU8(buf, o[36]),
	}
	copy(p.IP[:], buf[o[0]:o[0]+4])
	copy(p.PortTypes[:], buf[o[15]:o[15]+4])
	copy(p.GoodInput[:], buf[o[16]:o[16]+4])
	copy(p.GoodOutputA[:], buf[o[17]:o[17]+4])
	copy(p.SwIn[:], buf[o[18]:o[18]+4])
	copy(p.SwOut[:], buf[o[19]:o[19]+4])
	copy(p.MAC[:], buf[o[25]:o[25]+6])
	copy(p.BindIP[:], buf[o[26]:o[26]+4])
	copy(p.GoodOutputB[:], buf[o[29]:o[29]+4])
	copy(p.DefaultResponderUID[:], buf[o[31]:o[31]+6])

	return p, nil
}

func encodeArtPollReply(p *ArtPollReplyPacket) ([]byte, error) {
	buf := make([]byte, pollReplySpec.MinSize)
	putHeader(buf, OpPollReply, false)

	o := pollReplySpec.Offsets
	copy(buf[o[0]:o[0]+4], p.IP[:])
	putU16LE(buf, o[1], p.UDPPort)
	putU16BE(buf, o[2], p.VersionInfo)
	putU8(buf, o[3], p.NetSwitch)
	putU8(buf, o[4], p.SubSwitch)
	putU8(buf, o[5], p.OemHi)
	putU8(buf, o[6], p.Oem)
	putU8(buf, o[7], p.UbeaVersion)
	putU8(buf, o[8], p.Status1)
	putU16LE(buf, o[9], p.EstaMan)
	putASCII(buf, o[10], 18, p.ShortName)
	putASCII(buf, o[11], 64, p.LongName)
	putASCII(buf, o[12], 64, p.NodeReport)
	putU8(buf, o[14], p.NumPorts)
	copy(buf[o[15]:o[15]+4], p.PortTypes[:])
	copy(buf[o[16]:o[16]+4], p.GoodInput[:])
	copy(buf[o[17]:o[17]+4], p.GoodOutputA[:])
	copy(buf[o[18]:o[18]+4], p.SwIn[:])
	copy(buf[o[19]:o[19]+4], p.SwOut[:])
	putU8(buf, o[20], p.SwVideo)
	putU8(buf, o[21], p.SwMacro)
	putU8(buf, o[22], p.SwRemote)
	putU8(buf, o[24], p.Style)
	copy(buf[o[25]:o[25]+6], p.MAC[:])
	copy(buf[o[26]:o[26]+4], p.BindIP[:])
	putU8(buf, o[27], p.BindIndex)
	putU8(buf, o[28], p.Status2)
	copy(buf[o[29]:o[29]+4], p.GoodOutputB[:])
	putU8(buf, o[30], p.Status3)
	copy(buf[o[31]:o[31]+6], p.DefaultResponderUID[:])
	putU8(buf, o[32], p.UserHi)
	putU8(buf, o[33], p.UserLo)
	putU8(buf, o[34], p.RefreshRateHi)
	putU8(buf, o[35], p.RefreshRateLo)
	putU8(buf, o[36], p.BackgroundQueuePolicy)

	return buf, nil
}
