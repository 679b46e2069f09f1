package shell

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/sirupsen/logrus"

	"github.com/gopatchy/artnode/codec"
	"github.com/gopatchy/artnode/protocol"
)

// PcapSniffer passively captures Art-Net traffic off an interface via BPF
// filter instead of binding UDP:6454, for diagnosing a node whose port is
// already held by another process.
type PcapSniffer struct {
	handle *pcap.Handle
	done   chan struct{}
}

// NewPcapSniffer opens iface in promiscuous mode and filters to Art-Net's
// UDP port in both directions.
func NewPcapSniffer(iface string, port int) (*PcapSniffer, error) {
	handle, err := pcap.OpenLive(iface, 1600, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("shell: pcap open %s: %w", iface, err)
	}
	filter := fmt.Sprintf("udp port %d", port)
	if err := handle.SetBPFFilter(filter); err != nil {
		handle.Close()
		return nil, fmt.Errorf("shell: pcap bpf filter %q: %w", filter, err)
	}
	return &PcapSniffer{handle: handle, done: make(chan struct{})}, nil
}

// Run decodes every captured Art-Net frame and invokes onPacket until Stop
// is called or the capture source closes.
func (s *PcapSniffer) Run(onPacket func(pkt codec.Packet, sender protocol.Addr), log *logrus.Entry) {
	source := gopacket.NewPacketSource(s.handle, s.handle.LinkType())
	for {
		select {
		case <-s.done:
			return
		case pk, ok := <-source.Packets():
			if !ok {
				return
			}
			s.handle1(pk, onPacket, log)
		}
	}
}

func (s *PcapSniffer) handle1(pk gopacket.Packet, onPacket func(codec.Packet, protocol.Addr), log *logrus.Entry) {
	udpLayer := pk.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok || len(udp.Payload) == 0 {
		return
	}

	var srcIP net.IP
	if ipLayer := pk.Layer(layers.LayerTypeIPv4); ipLayer != nil {
		if ip, ok := ipLayer.(*layers.IPv4); ok {
			srcIP = ip.SrcIP
		}
	}

	pkt, err := codec.Decode(udp.Payload)
	if err != nil {
		log.WithError(err).Debug("pcap: undecodable frame")
		return
	}

	onPacket(pkt, protocol.Addr{Host: srcIP.String(), Port: int(udp.SrcPort)})
}

// Stop closes the capture handle.
func (s *PcapSniffer) Stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.handle.Close()
}
