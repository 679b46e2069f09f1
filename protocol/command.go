package protocol

import (
	"fmt"
	"strings"
	"time"

	"github.com/gopatchy/artnode/codec"
)

const diagPriorityLow = 0x20 // DpLow, Art-Net diagnostic priority scale

// kv is one "Key=Value" directive from an ArtCommand text field, order
// preserved so acknowledgements are emitted in the order they were sent.
type kv struct {
	key, value string
}

func parseCommandText(raw string) []kv {
	raw = strings.TrimRight(raw, "\x00")
	var out []kv
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			out = append(out, kv{parts[0], parts[1]})
		} else {
			out = append(out, kv{parts[0], ""})
		}
	}
	return out
}

// handleArtCommand accepts directives only from
// the node's own ESTA manufacturer code or the wildcard 0xFFFF. SwoutText
// and SwinText update the node's command-labels; every directive gets an
// ArtDiagData acknowledgement, and a change to command-labels fires a
// programming callback exactly once regardless of how many directives
// changed something.
func handleArtCommand(s *State, pkt *codec.ArtCommandPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-artcommand")

	if pkt.EstaMan != 0xFFFF && pkt.EstaMan != s.Node.EstaMan {
		s.Stats.incr("rx-artcommand-rejected-estaman")
		return nil
	}

	directives := parseCommandText(string(pkt.Text.Bytes()))
	fields := make(map[string]string, len(directives))

	var effects []Effect
	changed := false
	for _, d := range directives {
		fields[d.key] = d.value
		ack, didChange := s.applyCommandDirective(d)
		changed = changed || didChange
		effects = append(effects, replyEffect(&codec.ArtDiagDataPacket{
			Priority: diagPriorityLow,
			Text:     wrapPayload([]byte(ack)),
		}, sender))
	}

	effects = append(effects, callbackEffect("command", map[string]any{
		"esta_man": pkt.EstaMan,
		"sender":   sender,
		"fields":   fields,
	}))

	if changed {
		effects = append(effects, callbackEffect("programming", map[string]any{
			"sender": sender,
			"sw_in":  s.CommandLabels.SwIn,
			"sw_out": s.CommandLabels.SwOut,
		}))
	}

	return effects
}

// applyCommandDirective recognizes SwoutText/SwinText and updates
// command-labels, returning the ArtDiagData acknowledgement text and
// whether state changed.
func (s *State) applyCommandDirective(d kv) (ack string, changed bool) {
	switch d.key {
	case "SwoutText":
		if s.CommandLabels.SwOut == d.value {
			return "SwoutText already set", false
		}
		s.CommandLabels.SwOut = d.value
		return "SwoutText set", true
	case "SwinText":
		if s.CommandLabels.SwIn == d.value {
			return "SwinText already set", false
		}
		s.CommandLabels.SwIn = d.value
		return "SwinText set", true
	default:
		return fmt.Sprintf("Unsupported ArtCommand: %s", d.key), false
	}
}

// handleArtTrigger fires show-control triggers, accepted only when
// the packet's OEM matches the node or is the wildcard 0xFFFF, debounced per
// (Key, SubKey) so a flood of identical triggers collapses to one callback
// per Cfg.Triggers.MinInterval, dispatched to a registered macro handler
// when one is configured for that (Key, SubKey), and optionally acked with
// an ArtTrigger reply.
func handleArtTrigger(s *State, pkt *codec.ArtTriggerPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-arttrigger")

	nodeOem := uint16(s.Node.OemHi)<<8 | uint16(s.Node.Oem)
	oem := pkt.Oem()
	if oem != 0xFFFF && oem != nodeOem {
		s.Stats.incr("rx-arttrigger-rejected-oem")
		return nil
	}

	key := TriggerKey{Key: pkt.Key, SubKey: pkt.SubKey}
	if min := s.Cfg.Triggers.MinInterval; min > 0 {
		if last, ok := s.TriggerLastFired[key]; ok && now.Sub(last) < min {
			s.Stats.incr("trigger-throttled")
			return []Effect{replyEffect(&codec.ArtDiagDataPacket{
				Priority: diagPriorityLow,
				Text:     wrapPayload([]byte("ArtTrigger debounced")),
			}, sender)}
		}
	}
	s.TriggerLastFired[key] = now

	payload := map[string]any{
		"oem":     oem,
		"key":     pkt.Key,
		"sub_key": pkt.SubKey,
		"sender":  sender,
		"data":    pkt.Data.Clone(),
	}

	var effects []Effect
	if handler, ok := s.Cfg.Triggers.Macros[key]; ok {
		effects = append(effects, callbackEffect(handler, payload))
	} else {
		effects = append(effects, callbackEffect("trigger", payload))
	}

	if s.Cfg.Triggers.ReplyEnabled {
		effects = append(effects, replyEffect(&codec.ArtTriggerPacket{
			OemHi:  s.Node.OemHi,
			OemLo:  s.Node.Oem,
			Key:    pkt.Key,
			SubKey: pkt.SubKey,
		}, sender))
	}

	return effects
}

// dataRequestVariants names the well-known ArtDataRequest RequestID codes;
// anything else is looked up by its hex form so operators can configure
// manufacturer-specific codes too.
var dataRequestVariants = map[uint16]string{
	0x0000: "dr-poll",
	0x0001: "dr-url-product",
	0x0002: "dr-url-user-manual",
	0x0003: "dr-url-support",
	0x0004: "dr-url-update",
	0x0005: "dr-url-update-message",
}

func dataRequestVariant(id uint16) string {
	if name, ok := dataRequestVariants[id]; ok {
		return name
	}
	return fmt.Sprintf("0x%04x", id)
}

// handleArtDataRequest produces
// ArtDataReply when the request's ESTA-man and OEM match the node and a
// configured response exists for the requested variant. dr-poll is
// special-cased to an empty-payload reply whenever any response is
// configured, signaling "ask me for something specific". Otherwise the
// request is ignored on the wire, though still surfaced as a callback.
func handleArtDataRequest(s *State, pkt *codec.ArtDataRequestPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-artdatarequest")

	nodeOem := uint16(s.Node.OemHi)<<8 | uint16(s.Node.Oem)
	if pkt.EstaMan != 0xFFFF && pkt.EstaMan != s.Node.EstaMan {
		s.Stats.incr("rx-artdatarequest-rejected-estaman")
		return nil
	}
	if pkt.Oem != 0xFFFF && pkt.Oem != nodeOem {
		s.Stats.incr("rx-artdatarequest-rejected-oem")
		return nil
	}

	variant := dataRequestVariant(pkt.RequestID)
	if resp, ok := s.Cfg.Data.Responses[variant]; ok {
		return []Effect{replyEffect(&codec.ArtDataReplyPacket{
			EstaMan:   s.Node.EstaMan,
			Oem:       nodeOem,
			RequestID: pkt.RequestID,
			Payload:   wrapPayload([]byte(resp)),
		}, sender)}
	}

	if variant == "dr-poll" && len(s.Cfg.Data.Responses) > 0 {
		return []Effect{replyEffect(&codec.ArtDataReplyPacket{
			EstaMan:   s.Node.EstaMan,
			Oem:       nodeOem,
			RequestID: pkt.RequestID,
		}, sender)}
	}

	return []Effect{callbackEffect("data-request", map[string]any{
		"esta_man":   pkt.EstaMan,
		"oem":        pkt.Oem,
		"request_id": pkt.RequestID,
		"variant":    variant,
		"sender":     sender,
	})}
}
