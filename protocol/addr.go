package protocol

import "fmt"

// Addr is a host/port pair, independent of net.UDPAddr so the pure core
// never imports a networking package.
type Addr struct {
	Host string
	Port int
}

func (a Addr) String() string { return fmt.Sprintf("%s:%d", a.Host, a.Port) }

// Key returns a value usable as a map key for peer/subscriber bookkeeping.
func (a Addr) Key() string { return a.String() }

// IsLimitedBroadcast reports whether a targets the IPv4 limited broadcast address.
func (a Addr) IsLimitedBroadcast() bool { return a.Host == "255.255.255.255" }
