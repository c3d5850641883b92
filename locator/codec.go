package locator

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/locator/address"
	"xdao.co/locator/buffer"
	"xdao.co/locator/cidutil"
	"xdao.co/locator/endpoint"
	"xdao.co/locator/protocol"
)

// Wire layout, big-endian:
//
//	subject     u64
//	signer      u64
//	timestamp   u64 (int64 bit pattern)
//	count       u16, at most MaxEndpoints
//	endpoints   count * endpoint wire form
//	reserved    u16 length, followed by that many bytes; written as 0
//	sig length  u16 \ absent from the unsigned form
//	signature   ...  / that is signed and verified
func (l *Locator) marshal(b *buffer.Buffer, excludeSignature bool) error {
	if len(l.endpoints) > MaxEndpoints || len(l.signature) > 0xffff {
		panic(fmt.Sprintf("locator: invariant violated: %d endpoints, %d signature bytes", len(l.endpoints), len(l.signature)))
	}
	if err := b.AppendU64(uint64(l.subject)); err != nil {
		return err
	}
	if err := b.AppendU64(uint64(l.signer)); err != nil {
		return err
	}
	if err := b.AppendU64(uint64(l.timestamp)); err != nil {
		return err
	}
	if err := b.AppendU16(uint16(len(l.endpoints))); err != nil {
		return err
	}
	for _, e := range l.endpoints {
		if err := e.Marshal(b); err != nil {
			return err
		}
	}
	if err := b.AppendU16(0); err != nil {
		return err
	}
	if excludeSignature {
		return nil
	}
	if err := b.AppendU16(uint16(len(l.signature))); err != nil {
		return err
	}
	return b.AppendBytes(l.signature)
}

// Marshal appends the full wire form of l, signature included.
func (l *Locator) Marshal(b *buffer.Buffer) error {
	if err := l.marshal(b, false); err != nil {
		return wrapError(KindEncode, ruleEncode, "encode locator", err)
	}
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (l *Locator) MarshalBinary() ([]byte, error) {
	b := buffer.New(protocol.PacketSizeMax)
	defer b.Release()
	if err := l.Marshal(b); err != nil {
		return nil, err
	}
	return append([]byte(nil), b.Bytes()...), nil
}

// Unmarshal decodes one locator starting at *cursor and advances the cursor
// past it. On error no locator is returned.
func Unmarshal(b *buffer.Buffer, cursor *int) (*Locator, error) {
	c := *cursor
	subject, err := b.ReadU64(&c)
	if err != nil {
		return nil, decodeError("subject", err)
	}
	signer, err := b.ReadU64(&c)
	if err != nil {
		return nil, decodeError("signer", err)
	}
	ts, err := b.ReadU64(&c)
	if err != nil {
		return nil, decodeError("timestamp", err)
	}
	count, err := b.ReadU16(&c)
	if err != nil {
		return nil, decodeError("endpoint count", err)
	}
	if int(count) > MaxEndpoints {
		return nil, newError(KindDecode, ruleDecodeCount,
			fmt.Sprintf("too many endpoints: %d > %d", count, MaxEndpoints))
	}
	endpoints := make([]endpoint.Endpoint, 0, count)
	for i := 0; i < int(count); i++ {
		e, err := endpoint.Unmarshal(b, &c)
		if err != nil {
			return nil, decodeError(fmt.Sprintf("endpoint %d", i), err)
		}
		endpoints = append(endpoints, e)
	}
	reserved, err := b.ReadU16(&c)
	if err != nil {
		return nil, decodeError("reserved length", err)
	}
	if err := b.Skip(int(reserved), &c); err != nil {
		return nil, wrapError(KindDecode, ruleDecodeReserved,
			fmt.Sprintf("reserved field of %d bytes runs past end", reserved), err)
	}
	sigLen, err := b.ReadU16(&c)
	if err != nil {
		return nil, decodeError("signature length", err)
	}
	sig, err := b.ReadBytes(int(sigLen), &c)
	if err != nil {
		return nil, decodeError("signature", err)
	}

	*cursor = c
	return &Locator{
		subject:   address.Address(subject),
		signer:    address.Address(signer),
		timestamp: int64(ts),
		endpoints: endpoints,
		signature: append([]byte(nil), sig...),
	}, nil
}

// Parse decodes data, which must hold exactly one locator.
func Parse(data []byte) (*Locator, error) {
	b := buffer.Wrap(data)
	cursor := 0
	l, err := Unmarshal(b, &cursor)
	if err != nil {
		return nil, err
	}
	if cursor != len(data) {
		return nil, newError(KindDecode, ruleDecodeTrailing,
			fmt.Sprintf("%d trailing bytes after locator", len(data)-cursor))
	}
	return l, nil
}

// CID returns the content identifier (CIDv1, raw, sha2-256) of the wire form.
func (l *Locator) CID() (cid.Cid, error) {
	raw, err := l.MarshalBinary()
	if err != nil {
		return cid.Undef, err
	}
	return cidutil.CIDv1RawSHA256CID(raw)
}

func decodeError(field string, cause error) error {
	return wrapError(KindDecode, ruleDecodeField, "decode "+field, cause)
}
