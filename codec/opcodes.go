package codec

// OpCode values, little-endian on the wire (bytes 8-9). Values per the
// Art-Net 4 specification.
const (
	OpPoll           uint16 = 0x2000
	OpPollReply      uint16 = 0x2100
	OpDiagData       uint16 = 0x2300
	OpCommand        uint16 = 0x2400
	OpDataRequest    uint16 = 0x2700
	OpDataReply      uint16 = 0x2800
	OpDmx            uint16 = 0x5000
	OpNzs            uint16 = 0x5100
	OpSync           uint16 = 0x5200
	OpAddress        uint16 = 0x6000
	OpVlc            uint16 = 0x6100
	OpInput          uint16 = 0x7000
	OpTodRequest     uint16 = 0x8000
	OpTodData        uint16 = 0x8100
	OpTodControl     uint16 = 0x8200
	OpRdm            uint16 = 0x8300
	OpRdmSub         uint16 = 0x8400
	OpFirmwareMaster uint16 = 0xF200
	OpFirmwareReply  uint16 = 0xF300
	OpIpProg         uint16 = 0xF800
	OpIpProgReply    uint16 = 0xF900
	OpTrigger        uint16 = 0x9900
)
