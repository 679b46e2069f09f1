package codec

// Packet is implemented by every decoded opcode's typed struct.
type Packet interface {
	OpCode() uint16
}

// PayloadRef is a view into a borrowed receive buffer: safe to read only
// while that buffer's owner has not released it. Callers that must retain
// payload data past the release effect (e.g. ArtSync staging) copy it into
// owned storage immediately.
type PayloadRef struct {
	buf    []byte
	Offset int
	Length int
}

// Bytes returns the referenced slice. It aliases the source buffer.
func (p PayloadRef) Bytes() []byte {
	if p.buf == nil {
		return nil
	}
	return p.buf[p.Offset : p.Offset+p.Length]
}

// Clone copies the referenced bytes into owned storage.
func (p PayloadRef) Clone() []byte {
	b := p.Bytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func newPayloadRef(buf []byte, offset int) PayloadRef {
	return PayloadRef{buf: buf, Offset: offset, Length: len(buf) - offset}
}

// NewOwnedPayload wraps an already-owned byte slice (e.g. one built by the
// protocol layer for an outgoing packet) as a PayloadRef spanning its
// entirety.
func NewOwnedPayload(b []byte) PayloadRef {
	return PayloadRef{buf: b, Offset: 0, Length: len(b)}
}
