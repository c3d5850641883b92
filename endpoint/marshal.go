package endpoint

import (
	"fmt"
	"net/netip"

	"xdao.co/locator/address"
	"xdao.co/locator/buffer"
)

const (
	family4 = 4
	family6 = 6
)

// Marshal appends the wire form of e: a one byte type tag followed by the
// type's payload.
func (e Endpoint) Marshal(b *buffer.Buffer) error {
	if err := b.AppendU8(uint8(e.t)); err != nil {
		return err
	}
	switch e.t {
	case TypeNil:
		return nil
	case TypeZeroTier:
		if err := b.AppendU64(uint64(e.addr)); err != nil {
			return err
		}
		return b.AppendBytes(e.fingerprint[:])
	case TypeEthernet:
		return b.AppendBytes(e.mac[:])
	case TypeIP:
		return marshalIP(b, e.ip.Addr())
	case TypeIPUDP, TypeIPTCP:
		if err := marshalIP(b, e.ip.Addr()); err != nil {
			return err
		}
		return b.AppendU16(e.ip.Port())
	case TypeHTTP:
		if len(e.url) > MaxURLLength {
			return ErrURLTooLong
		}
		if err := b.AppendU16(uint16(len(e.url))); err != nil {
			return err
		}
		return b.AppendBytes([]byte(e.url))
	}
	return fmt.Errorf("%w: %d", ErrUnknownType, uint8(e.t))
}

func marshalIP(b *buffer.Buffer, ip netip.Addr) error {
	switch {
	case ip.Is4():
		if err := b.AppendU8(family4); err != nil {
			return err
		}
		a := ip.As4()
		return b.AppendBytes(a[:])
	case ip.Is6():
		if err := b.AppendU8(family6); err != nil {
			return err
		}
		a := ip.As16()
		return b.AppendBytes(a[:])
	}
	return ErrInvalidFamily
}

// Unmarshal reads one endpoint at *cursor.
func Unmarshal(b *buffer.Buffer, cursor *int) (Endpoint, error) {
	tag, err := b.ReadU8(cursor)
	if err != nil {
		return Endpoint{}, err
	}
	switch t := Type(tag); t {
	case TypeNil:
		return Endpoint{}, nil
	case TypeZeroTier:
		a, err := b.ReadU64(cursor)
		if err != nil {
			return Endpoint{}, err
		}
		raw, err := b.ReadBytes(FingerprintSize, cursor)
		if err != nil {
			return Endpoint{}, err
		}
		var fp [FingerprintSize]byte
		copy(fp[:], raw)
		return ZeroTier(address.Address(a), fp), nil
	case TypeEthernet:
		raw, err := b.ReadBytes(6, cursor)
		if err != nil {
			return Endpoint{}, err
		}
		var mac [6]byte
		copy(mac[:], raw)
		return Ethernet(mac), nil
	case TypeIP:
		ip, err := unmarshalIP(b, cursor)
		if err != nil {
			return Endpoint{}, err
		}
		return IP(ip), nil
	case TypeIPUDP, TypeIPTCP:
		ip, err := unmarshalIP(b, cursor)
		if err != nil {
			return Endpoint{}, err
		}
		port, err := b.ReadU16(cursor)
		if err != nil {
			return Endpoint{}, err
		}
		return Endpoint{t: t, ip: netip.AddrPortFrom(ip, port)}, nil
	case TypeHTTP:
		n, err := b.ReadU16(cursor)
		if err != nil {
			return Endpoint{}, err
		}
		if int(n) > MaxURLLength {
			return Endpoint{}, ErrURLTooLong
		}
		raw, err := b.ReadBytes(int(n), cursor)
		if err != nil {
			return Endpoint{}, err
		}
		return Endpoint{t: TypeHTTP, url: string(raw)}, nil
	default:
		return Endpoint{}, fmt.Errorf("%w: %d", ErrUnknownType, tag)
	}
}

func unmarshalIP(b *buffer.Buffer, cursor *int) (netip.Addr, error) {
	family, err := b.ReadU8(cursor)
	if err != nil {
		return netip.Addr{}, err
	}
	switch family {
	case family4:
		raw, err := b.ReadBytes(4, cursor)
		if err != nil {
			return netip.Addr{}, err
		}
		return netip.AddrFrom4([4]byte(raw)), nil
	case family6:
		raw, err := b.ReadBytes(16, cursor)
		if err != nil {
			return netip.Addr{}, err
		}
		ip := netip.AddrFrom16([16]byte(raw))
		// Constructors store these as IPv4, so family 6 would never be written
		// for them; decoding one as IPv4 would change the signed bytes.
		if ip.Is4In6() {
			return netip.Addr{}, fmt.Errorf("%w: IPv4-mapped address %s with family 6", ErrInvalidFamily, ip)
		}
		return ip, nil
	}
	return netip.Addr{}, fmt.Errorf("%w: %d", ErrInvalidFamily, family)
}
