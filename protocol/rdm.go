package protocol

import (
	"time"

	"github.com/gopatchy/artnode/codec"
)

// rdmClassOffset is where the command-class byte sits inside an RDM PDU
// that begins with the 0xCC start code: start code, sub-start code, message
// length, destination UID (6), source UID (6), transaction number, port id,
// message count, sub-device (2), then command class.
const (
	rdmClassOffset  = 20
	rdmSrcUIDOffset = 9
	rdmMinLength    = 24
)

// handleArtTodRequest answers with one ArtTodData per requested
// port-address, either the full table or a NAK when nothing is known.
func handleArtTodRequest(s *State, pkt *codec.ArtTodRequestPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-arttodrequest")

	var effects []Effect
	for _, raw := range pkt.Addresses {
		subNet := (raw >> 4) & 0x0F
		universe := raw & 0x0F
		pa := codec.NewPortAddress(pkt.Net, subNet, universe)
		effects = append(effects, s.todDataReply(pa, sender)...)
	}
	return effects
}

func (s *State) todDataReply(pa codec.PortAddress, target Addr) []Effect {
	r := s.portRDM(pa)
	uids := make([][6]byte, 0, len(r.UIDs))
	for uid := range r.UIDs {
		uids = append(uids, uid)
	}

	const maxPerPacket = 200
	if len(uids) == 0 {
		pkt := &codec.ArtTodDataPacket{PortAddress: pa, CommandResponse: codec.TodDataNak, BlockCount: 0, UIDs: nil}
		return []Effect{replyEffect(pkt, target)}
	}

	var effects []Effect
	total := (len(uids) + maxPerPacket - 1) / maxPerPacket
	for block := 0; block < total; block++ {
		start := block * maxPerPacket
		end := start + maxPerPacket
		if end > len(uids) {
			end = len(uids)
		}
		pkt := &codec.ArtTodDataPacket{
			PortAddress:     pa,
			CommandResponse: codec.TodDataFull,
			BlockCount:      uint8(block),
			UIDs:            uids[start:end],
		}
		effects = append(effects, replyEffect(pkt, target))
	}
	return effects
}

// handleArtTodControl flushes the discovered ToD for the target
// port-address on TodControlFlush.
func handleArtTodControl(s *State, pkt *codec.ArtTodControlPacket, now time.Time) []Effect {
	s.Stats.incr("rx-arttodcontrol")
	if pkt.Command != codec.TodControlFlush {
		return nil
	}
	r := s.portRDM(pkt.PortAddress)
	r.UIDs = map[[6]byte]bool{}
	r.DiscoveryQueue = nil
	return []Effect{logEffect(LogInfo, "rdm tod flushed", map[string]any{"port_address": pkt.PortAddress})}
}

// handleArtRdm rejects payloads too short to hold an RDM message or with an
// unsupported command class, otherwise forwards the PDU as a callback for
// the shell's RDM transport to answer. Wire-level rejects are counted, not
// surfaced as errors.
func handleArtRdm(s *State, pkt *codec.ArtRdmPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-artrdm")

	data := pkt.RdmData.Bytes()
	if len(data) < rdmMinLength {
		s.Stats.incr("rdm-invalid-command-class")
		return []Effect{logEffect(LogDebug, "rdm pdu too short", map[string]any{
			"length": len(data),
			"sender": sender.String(),
		})}
	}
	class := data[rdmClassOffset]
	if !codec.AcceptedRDMCommandClasses[class] {
		s.Stats.incr("rdm-invalid-command-class")
		return []Effect{logEffect(LogDebug, "rdm command class not accepted", map[string]any{
			"class":  class,
			"sender": sender.String(),
		})}
	}

	var uid [6]byte
	copy(uid[:], data[rdmSrcUIDOffset:rdmSrcUIDOffset+6])
	r := s.portRDM(pkt.PortAddress)
	r.UIDs[uid] = true

	payload := map[string]any{
		"port_address":  pkt.PortAddress,
		"command_class": class,
		"sender":        sender,
		"data":          pkt.RdmData.Clone(),
	}
	return []Effect{callbackEffect("rdm", payload)}
}

// handleArtRdmSub parses a batch sub-device GET/SET and forwards it both as
// an "rdm-sub" callback and as a proxy "rdm" callback so generic RDM
// observers see sub-device traffic without knowing about ArtRdmSub.
func handleArtRdmSub(s *State, pkt *codec.ArtRdmSubPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-artrdmsub")

	if !codec.AcceptedRDMCommandClasses[pkt.CommandClass] {
		s.Stats.incr("rdm-sub-invalid")
		return []Effect{logEffect(LogDebug, "rdm-sub command class not accepted", map[string]any{
			"class":  pkt.CommandClass,
			"sender": sender.String(),
		})}
	}

	values := pkt.Values.Clone()
	entries := make([]map[string]any, 0, len(values)/2)
	for i := 0; i+1 < len(values); i += 2 {
		entries = append(entries, map[string]any{
			"index":      i / 2,
			"sub_device": pkt.SubDevice + uint16(i/2),
			"value":      uint16(values[i])<<8 | uint16(values[i+1]),
		})
	}

	payload := map[string]any{
		"uid":           pkt.UID,
		"command_class": pkt.CommandClass,
		"param_id":      pkt.ParamID,
		"sub_device":    pkt.SubDevice,
		"sub_count":     pkt.SubCount,
		"sender":        sender,
		"values":        values,
	}

	proxy := map[string]any{
		"type":          "rdm-sub",
		"phase":         rdmSubPhase(pkt.CommandClass),
		"uid":           pkt.UID,
		"command_class": pkt.CommandClass,
		"param_id":      pkt.ParamID,
		"sender":        sender,
		"entries":       entries,
	}

	return []Effect{
		callbackEffect("rdm-sub", payload),
		callbackEffect("rdm", proxy),
	}
}

// rdmSubPhase classifies an ArtRdmSub frame as a controller request or a
// responder's answer: RDM command-class bytes use an odd low bit for the
// "_RESPONSE" variant of each class (0x11, 0x21, 0x31).
func rdmSubPhase(class uint8) string {
	if class&0x01 != 0 {
		return "response"
	}
	return "request"
}

// handleArtFirmwareMaster drives a chunked transfer state machine keyed by
// sender, verifying a running checksum and replying with ArtFirmwareReply
// per block.
func handleArtFirmwareMaster(s *State, pkt *codec.ArtFirmwareMasterPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-artfirmwaremaster")
	s.Stats.incr("firmware-requests")

	key := sender.Key()
	sess := s.FirmwareSessions[key]

	switch pkt.Type {
	case codec.FirmwareTypeFirst, codec.FirmwareTypeUbeaFirst:
		sess = &FirmwareSession{ExpectedLengthWords: pkt.Length, LastBlockID: pkt.BlockID}
		s.FirmwareSessions[key] = sess
	default:
		if sess == nil {
			s.Stats.incr("rx-artfirmwaremaster-no-session")
			return firmwareFailEffects(sender, "no-session")
		}
		if pkt.BlockID != sess.LastBlockID+1 {
			delete(s.FirmwareSessions, key)
			s.Stats.incr("rx-artfirmwaremaster-out-of-order")
			return firmwareFailEffects(sender, "out-of-order")
		}
		sess.LastBlockID = pkt.BlockID
	}

	data := pkt.Data.Bytes()
	sess.Accumulated = append(sess.Accumulated, data...)
	for i := 0; i+1 < len(data); i += 2 {
		word := uint16(data[i])<<8 | uint16(data[i+1])
		sess.ChecksumAcc = onesComplementAdd(sess.ChecksumAcc, word)
	}

	if pkt.Type == codec.FirmwareTypeLast || pkt.Type == codec.FirmwareTypeUbeaLast {
		delete(s.FirmwareSessions, key)
		gotWords := len(sess.Accumulated) / 2
		if uint32(gotWords) != sess.ExpectedLengthWords {
			s.Stats.incr("rx-artfirmwaremaster-length-mismatch")
			return firmwareFailEffects(sender, "length")
		}
		if sess.ChecksumAcc != 0xFFFF {
			s.Stats.incr("rx-artfirmwaremaster-checksum-mismatch")
			return firmwareFailEffects(sender, "checksum")
		}
		return []Effect{
			replyEffect(&codec.ArtFirmwareReplyPacket{Status: codec.FirmwareReplyAllGood}, sender),
			callbackEffect("firmware", map[string]any{
				"event":  "complete",
				"sender": sender,
				"length": len(sess.Accumulated),
			}),
		}
	}

	return []Effect{replyEffect(&codec.ArtFirmwareReplyPacket{Status: codec.FirmwareReplyBlockGood}, sender)}
}

// onesComplementAdd folds one big-endian firmware word into acc using
// end-around-carry ones-complement addition, the running checksum the
// transfer validates against on the final block.
func onesComplementAdd(acc, word uint16) uint16 {
	sum := uint32(acc) + uint32(word)
	for sum > 0xFFFF {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return uint16(sum)
}

func firmwareFailEffects(sender Addr, reason string) []Effect {
	return []Effect{
		replyEffect(&codec.ArtFirmwareReplyPacket{Status: codec.FirmwareReplyFail}, sender),
		callbackEffect("firmware", map[string]any{
			"event":  "failed",
			"sender": sender,
			"reason": reason,
		}),
	}
}
