// Package endpoint defines the transport endpoints a node can be reached at.
//
// An Endpoint is a comparable value. Different endpoint kinds are all
// represented by the same struct, discriminated with Type().
package endpoint

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"xdao.co/locator/address"
)

// Type discriminates between endpoint kinds. The numeric value is the wire tag
// and the primary sort key.
type Type uint8

const (
	TypeNil Type = iota
	TypeZeroTier
	TypeEthernet
	TypeIP
	TypeIPUDP
	TypeIPTCP
	TypeHTTP
)

// FingerprintSize is the size of the identity fingerprint carried by a
// ZeroTier endpoint.
const FingerprintSize = 48

// MaxURLLength bounds HTTP endpoint URLs.
const MaxURLLength = 1024

// MaxWireSize is the largest marshaled endpoint: an HTTP endpoint with a URL
// of MaxURLLength bytes.
const MaxWireSize = 1 + 2 + MaxURLLength

func (t Type) String() string {
	switch t {
	case TypeNil:
		return "nil"
	case TypeZeroTier:
		return "zt"
	case TypeEthernet:
		return "eth"
	case TypeIP:
		return "ip"
	case TypeIPUDP:
		return "udp"
	case TypeIPTCP:
		return "tcp"
	case TypeHTTP:
		return "http"
	}
	return fmt.Sprintf("UNKNOWN (%d)", uint8(t))
}

// Endpoint is a transport address. The zero value is the nil endpoint.
type Endpoint struct {
	t           Type
	addr        address.Address
	fingerprint [FingerprintSize]byte
	mac         [6]byte
	ip          netip.AddrPort
	url         string
}

// ZeroTier returns an endpoint reached through another node of the overlay.
func ZeroTier(a address.Address, fingerprint [FingerprintSize]byte) Endpoint {
	return Endpoint{t: TypeZeroTier, addr: a, fingerprint: fingerprint}
}

// Ethernet returns a raw layer-2 endpoint.
func Ethernet(mac [6]byte) Endpoint {
	return Endpoint{t: TypeEthernet, mac: mac}
}

// IP returns a bare IP endpoint with no port.
func IP(ip netip.Addr) Endpoint {
	return Endpoint{t: TypeIP, ip: netip.AddrPortFrom(ip.Unmap().WithZone(""), 0)}
}

// UDP returns a UDP/IP endpoint.
func UDP(ap netip.AddrPort) Endpoint {
	return Endpoint{t: TypeIPUDP, ip: netip.AddrPortFrom(ap.Addr().Unmap().WithZone(""), ap.Port())}
}

// TCP returns a TCP/IP endpoint.
func TCP(ap netip.AddrPort) Endpoint {
	return Endpoint{t: TypeIPTCP, ip: netip.AddrPortFrom(ap.Addr().Unmap().WithZone(""), ap.Port())}
}

// HTTP returns an HTTP(S) relay endpoint.
func HTTP(url string) (Endpoint, error) {
	if len(url) > MaxURLLength {
		return Endpoint{}, ErrURLTooLong
	}
	return Endpoint{t: TypeHTTP, url: url}, nil
}

// Type returns the kind of e.
func (e Endpoint) Type() Type { return e.t }

// Address returns the overlay address of a ZeroTier endpoint.
// Panics if e.Type() is not TypeZeroTier.
func (e Endpoint) Address() address.Address {
	if e.t != TypeZeroTier {
		panic(fmt.Errorf("Address called on %s endpoint", e.t))
	}
	return e.addr
}

// AddrPort returns the IP address and port of an IP, UDP or TCP endpoint.
// Panics for other types.
func (e Endpoint) AddrPort() netip.AddrPort {
	switch e.t {
	case TypeIP, TypeIPUDP, TypeIPTCP:
		return e.ip
	}
	panic(fmt.Errorf("AddrPort called on %s endpoint", e.t))
}

// URL returns the URL of an HTTP endpoint.
// Panics if e.Type() is not TypeHTTP.
func (e Endpoint) URL() string {
	if e.t != TypeHTTP {
		panic(fmt.Errorf("URL called on %s endpoint", e.t))
	}
	return e.url
}

// Equal reports whether a and b are the same endpoint.
func (e Endpoint) Equal(o Endpoint) bool { return e == o }

// Compare returns the total order of a and b: by type first, then payload.
func Compare(a, b Endpoint) int {
	if c := cmp.Compare(a.t, b.t); c != 0 {
		return c
	}
	switch a.t {
	case TypeZeroTier:
		if c := cmp.Compare(a.addr, b.addr); c != 0 {
			return c
		}
		return bytes.Compare(a.fingerprint[:], b.fingerprint[:])
	case TypeEthernet:
		return bytes.Compare(a.mac[:], b.mac[:])
	case TypeIP, TypeIPUDP, TypeIPTCP:
		return a.ip.Compare(b.ip)
	case TypeHTTP:
		return strings.Compare(a.url, b.url)
	}
	return 0
}

func (e Endpoint) String() string {
	switch e.t {
	case TypeNil:
		return "nil"
	case TypeZeroTier:
		return "zt/" + e.addr.String() + "-" + hex.EncodeToString(e.fingerprint[:])
	case TypeEthernet:
		return "eth/" + net.HardwareAddr(e.mac[:]).String()
	case TypeIP:
		return "ip/" + e.ip.Addr().String()
	case TypeIPUDP, TypeIPTCP:
		return e.t.String() + "/" + e.ip.String()
	case TypeHTTP:
		return "http/" + e.url
	}
	return e.t.String()
}

// Parse parses the String form of an endpoint, e.g. "udp/192.0.2.1:9993".
func Parse(s string) (Endpoint, error) {
	if s == "nil" {
		return Endpoint{}, nil
	}
	kind, rest, ok := strings.Cut(s, "/")
	if !ok || rest == "" {
		return Endpoint{}, fmt.Errorf("%w: %q", ErrSyntax, s)
	}
	switch kind {
	case "zt":
		a, fp, _ := strings.Cut(rest, "-")
		addr, err := address.Parse(a)
		if err != nil {
			return Endpoint{}, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		var f [FingerprintSize]byte
		if fp != "" {
			raw, err := hex.DecodeString(fp)
			if err != nil || len(raw) != FingerprintSize {
				return Endpoint{}, fmt.Errorf("%w: bad fingerprint in %q", ErrSyntax, s)
			}
			copy(f[:], raw)
		}
		return ZeroTier(addr, f), nil
	case "eth":
		hw, err := net.ParseMAC(rest)
		if err != nil || len(hw) != 6 {
			return Endpoint{}, fmt.Errorf("%w: bad mac in %q", ErrSyntax, s)
		}
		var mac [6]byte
		copy(mac[:], hw)
		return Ethernet(mac), nil
	case "ip":
		ip, err := netip.ParseAddr(rest)
		if err != nil {
			return Endpoint{}, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return IP(ip), nil
	case "udp", "tcp":
		ap, err := netip.ParseAddrPort(rest)
		if err != nil {
			return Endpoint{}, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		if kind == "udp" {
			return UDP(ap), nil
		}
		return TCP(ap), nil
	case "http":
		return HTTP(rest)
	}
	return Endpoint{}, fmt.Errorf("%w: %q", ErrUnknownType, kind)
}

// MustParse calls Parse(s) and panics on error.
// It is intended for use in tests with hard-coded strings.
func MustParse(s string) Endpoint {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}
