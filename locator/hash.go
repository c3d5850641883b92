package locator

import (
	"encoding/binary"
	"io"

	"github.com/spaolacci/murmur3"

	"xdao.co/locator/buffer"
	"xdao.co/locator/endpoint"
)

// WriteHash writes the canonical hash input of l to w.
//
// A signature uniquely fingerprints the signed content, so a signed locator
// contributes only its signature bytes. An unsigned locator contributes its
// signer, timestamp and endpoints.
func (l *Locator) WriteHash(w io.Writer) {
	if len(l.signature) != 0 {
		_, _ = w.Write(l.signature)
		return
	}
	var word [8]byte
	binary.BigEndian.PutUint64(word[:], uint64(l.signer))
	_, _ = w.Write(word[:])
	binary.BigEndian.PutUint64(word[:], uint64(l.timestamp))
	_, _ = w.Write(word[:])

	b := buffer.New(endpoint.MaxWireSize)
	defer b.Release()
	for _, e := range l.endpoints {
		b.Reset()
		if err := e.Marshal(b); err != nil {
			continue
		}
		_, _ = w.Write(b.Bytes())
	}
}

// Hash64 returns a 64-bit hash of l suitable for hash tables.
func (l *Locator) Hash64() uint64 {
	h := murmur3.New64()
	l.WriteHash(h)
	return h.Sum64()
}
