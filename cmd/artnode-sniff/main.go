// Command artnode-sniff passively captures Art-Net traffic via pcap
// instead of binding UDP:6454, for watching a wire whose port is already
// held by another process.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/gopatchy/artnode/codec"
	"github.com/gopatchy/artnode/internal/obs"
	"github.com/gopatchy/artnode/protocol"
	"github.com/gopatchy/artnode/shell"
)

func main() {
	iface := flag.String("iface", "", "network interface to capture on")
	port := flag.Int("port", shell.DefaultPort, "Art-Net UDP port to filter on")
	flag.Parse()

	if *iface == "" {
		fmt.Fprintln(os.Stderr, "artnode-sniff: -iface is required")
		os.Exit(1)
	}

	log := obs.NewLogger(logrus.InfoLevel).WithField("component", "artnode-sniff")

	sniffer, err := shell.NewPcapSniffer(*iface, *port)
	if err != nil {
		log.WithError(err).Fatal("failed to open capture")
	}
	defer sniffer.Stop()

	log.WithFields(logrus.Fields{"iface": *iface, "port": *port}).Info("capturing")
	sniffer.Run(func(pkt codec.Packet, sender protocol.Addr) {
		log.WithFields(logrus.Fields{"op": pkt.OpCode(), "sender": sender.String()}).Info("frame")
	}, log)
}
