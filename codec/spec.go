// Package codec implements the Art-Net 4 wire format: a declarative field
// layout per OpCode, compiled once into offset tables, and dispatched
// through an OpCode-keyed table for decode and encode.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Port is the standard Art-Net UDP port.
const Port = 0x1936

// ProtocolVersion is the Art-Net protocol version carried in every header
// that has one (big-endian, bytes 10-11).
const ProtocolVersion = 14

// ArtNetID is the fixed 8-byte packet identifier every frame begins with.
var ArtNetID = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

var (
	ErrTooShort       = errors.New("codec: frame shorter than required minimum")
	ErrBadID          = errors.New("codec: missing Art-Net identifier")
	ErrUnknownOpCode  = errors.New("codec: unsupported opcode")
	ErrMalformedField = errors.New("codec: malformed field")
)

// TruncationError carries the required vs actual frame length for a short read.
type TruncationError struct {
	OpCode   uint16
	Required int
	Actual   int
}

func (e *TruncationError) Error() string {
	return fmt.Sprintf("codec: opcode 0x%04x needs %d bytes, got %d", e.OpCode, e.Required, e.Actual)
}

func (e *TruncationError) Unwrap() error { return ErrTooShort }

// FieldKind is the wire representation of a declarative field descriptor.
type FieldKind int

const (
	KindU8 FieldKind = iota
	KindU16LE
	KindU16BE
	KindU32BE
	KindASCII    // fixed length, NUL padded, last byte always NUL
	KindBytes    // fixed length, raw
	KindIPv4     // 4 bytes
	KindMAC      // 6 bytes
	KindRDMUID   // 6 bytes
	KindPayload  // remaining bytes of the frame (variable length)
	KindReserved // fixed length, unread filler; advances the cursor only
)

// Field describes one wire field in declaration order.
type Field struct {
	Name   string
	Kind   FieldKind
	Length int // for KindASCII / KindBytes / KindReserved
}

// Size returns the fixed wire width of the field, or -1 for KindPayload.
func (f Field) Size() int {
	switch f.Kind {
	case KindU8:
		return 1
	case KindU16LE, KindU16BE:
		return 2
	case KindU32BE:
		return 4
	case KindASCII, KindBytes, KindReserved:
		return f.Length
	case KindIPv4:
		return 4
	case KindMAC, KindRDMUID:
		return 6
	case KindPayload:
		return -1
	default:
		return 0
	}
}

// OpSpec is the declarative layout for one opcode: the fixed prefix (header
// + optional protocol version, handled by the compiler) followed by an
// ordered field list.
type OpSpec struct {
	Op          uint16
	Name        string
	HasProtoVer bool // bytes 10-11 carry the big-endian protocol version
	Fields      []Field
}

// CompiledSpec is the result of Compile: the fixed minimum size and each
// field's byte offset, precomputed once at package init.
type CompiledSpec struct {
	Spec      OpSpec
	HeaderLen int   // bytes before the field list begins (8 + 2, +2 if HasProtoVer)
	Offsets   []int // per-field start offset, aligned with Spec.Fields
	MinSize   int   // total size excluding a trailing KindPayload field
}

// Compile precomputes field offsets and the minimum frame size for an OpSpec.
func Compile(spec OpSpec) *CompiledSpec {
	header := 10
	if spec.HasProtoVer {
		header += 2
	}

	offsets := make([]int, len(spec.Fields))
	cur := header
	for i, f := range spec.Fields {
		offsets[i] = cur
		if sz := f.Size(); sz >= 0 {
			cur += sz
		}
	}

	return &CompiledSpec{
		Spec:      spec,
		HeaderLen: header,
		Offsets:   offsets,
		MinSize:   cur,
	}
}

// decodeHeader validates the fixed "Art-Net\0" identifier and returns the
// little-endian opcode that follows it; the protocol version is not checked.
func decodeHeader(buf []byte) (uint16, error) {
	if len(buf) < 10 {
		return 0, ErrTooShort
	}
	if [8]byte(buf[:8]) != ArtNetID {
		return 0, ErrBadID
	}
	return binary.LittleEndian.Uint16(buf[8:10]), nil
}

func putHeader(buf []byte, op uint16, protoVer bool) {
	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], op)
	if protoVer {
		binary.BigEndian.PutUint16(buf[10:12], ProtocolVersion)
	}
}

func getU8(buf []byte, off int) uint8     { return buf[off] }
func getU16LE(buf []byte, off int) uint16 { return binary.LittleEndian.Uint16(buf[off : off+2]) }
func getU16BE(buf []byte, off int) uint16 { return binary.BigEndian.Uint16(buf[off : off+2]) }
func getU32BE(buf []byte, off int) uint32 { return binary.BigEndian.Uint32(buf[off : off+4]) }

func putU8(buf []byte, off int, v uint8)     { buf[off] = v }
func putU16LE(buf []byte, off int, v uint16) { binary.LittleEndian.PutUint16(buf[off:off+2], v) }
func putU16BE(buf []byte, off int, v uint16) { binary.BigEndian.PutUint16(buf[off:off+2], v) }
func putU32BE(buf []byte, off int, v uint32) { binary.BigEndian.PutUint32(buf[off:off+4], v) }

// putASCII copies a NUL-terminated string into a fixed-width slot,
// always leaving the final byte NUL.
func putASCII(buf []byte, off, length int, s string) {
	n := copy(buf[off:off+length-1], s)
	_ = n
	buf[off+length-1] = 0
}

func getASCII(buf []byte, off, length int) string {
	raw := buf[off : off+length]
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}
