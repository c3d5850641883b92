package locator

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/locator/address"
	"xdao.co/locator/buffer"
	"xdao.co/locator/endpoint"
	"xdao.co/locator/identity"
)

var cmpOpts = []cmp.Option{
	cmp.AllowUnexported(Locator{}),
	cmp.Comparer(func(a, b endpoint.Endpoint) bool { return a == b }),
	cmpopts.EquateEmpty(),
}

func testIdentity(t testing.TB, index byte) *identity.Ed25519 {
	t.Helper()
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = index ^ byte(i)
	}
	id, err := identity.NewEd25519FromSeed(seed)
	require.NoError(t, err)
	return id
}

func testEndpoints() []endpoint.Endpoint {
	return []endpoint.Endpoint{
		endpoint.MustParse("udp/198.51.100.7:9993"),
		endpoint.MustParse("tcp/198.51.100.7:443"),
		endpoint.MustParse("udp/[2001:db8::7]:9993"),
		endpoint.MustParse("http/https://relay.example.net/"),
	}
}

func mustCreate(t testing.TB, signer Identity, subject address.Address, ts int64, eps []endpoint.Endpoint) *Locator {
	t.Helper()
	loc, err := Create(signer, subject, ts, eps)
	require.NoError(t, err)
	return loc
}

// fakeIdentity accepts every signature.
type fakeIdentity struct {
	addr address.Address
}

func (f fakeIdentity) Address() address.Address        { return f.addr }
func (f fakeIdentity) Sign(msg []byte) ([]byte, error) { return []byte("fake"), nil }
func (f fakeIdentity) Verify(msg, sig []byte) bool     { return true }

func TestCreateSignsAndVerifies(t *testing.T) {
	id := testIdentity(t, 1)
	loc := mustCreate(t, id, id.Address(), 1000, testEndpoints())

	assert.Equal(t, id.Address(), loc.Subject())
	assert.Equal(t, id.Address(), loc.Signer())
	assert.Equal(t, int64(1000), loc.Timestamp())
	assert.False(t, loc.IsProxySigned())
	assert.NotEmpty(t, loc.Signature())
	assert.True(t, loc.Verify(id))
	assert.True(t, loc.Verify(id.Public()), "public half must verify")
}

func TestCreateCanonicalizesEndpoints(t *testing.T) {
	id := testIdentity(t, 1)
	eps := testEndpoints()
	dup := append(append([]endpoint.Endpoint{}, eps...), eps[2], eps[0], eps[2])

	loc := mustCreate(t, id, id.Address(), 1, dup)
	got := loc.Endpoints()
	require.Len(t, got, len(eps))
	for i := 1; i < len(got); i++ {
		assert.Negative(t, endpoint.Compare(got[i-1], got[i]), "endpoints must be strictly ascending")
	}

	reordered := []endpoint.Endpoint{eps[3], eps[1], eps[0], eps[2]}
	other := mustCreate(t, id, id.Address(), 1, reordered)
	assert.Equal(t, got, other.Endpoints())
}

func TestCreateDoesNotAliasInput(t *testing.T) {
	id := testIdentity(t, 1)
	eps := testEndpoints()
	loc := mustCreate(t, id, id.Address(), 1, eps)
	eps[0] = endpoint.MustParse("ip/10.9.9.9")

	out := loc.Endpoints()
	out[0] = endpoint.MustParse("ip/10.8.8.8")
	assert.True(t, loc.Verify(id))

	sig := loc.Signature()
	sig[0] ^= 0xff
	assert.True(t, loc.Verify(id))
}

func TestCreateRejectsTooManyEndpoints(t *testing.T) {
	id := testIdentity(t, 1)
	var eps []endpoint.Endpoint
	for i := 0; i <= MaxEndpoints; i++ {
		eps = append(eps, endpoint.UDP(netip.AddrPortFrom(netip.AddrFrom4([4]byte{10, 0, 0, byte(i)}), 9993)))
	}
	loc, err := Create(id, id.Address(), 1, eps)
	assert.Nil(t, loc)
	assert.True(t, IsKind(err, KindLimit))
	assert.Equal(t, "LOC-LIMIT-001", RuleID(err))

	loc, err = Create(id, id.Address(), 1, eps[:MaxEndpoints])
	require.NoError(t, err)
	assert.Len(t, loc.Endpoints(), MaxEndpoints)
}

func TestCreateRejectsOversizeEncoding(t *testing.T) {
	id := testIdentity(t, 1)
	var eps []endpoint.Endpoint
	for i := 0; i < MaxEndpoints; i++ {
		url := fmt.Sprintf("https://%02d.example.net/%s", i, strings.Repeat("x", 990))
		e, err := endpoint.HTTP(url)
		require.NoError(t, err)
		eps = append(eps, e)
	}
	loc, err := Create(id, id.Address(), 1, eps)
	assert.Nil(t, loc)
	assert.True(t, IsKind(err, KindEncode))
	assert.True(t, buffer.IsOverflow(err))
}

func TestCreateRequiresPrivateKey(t *testing.T) {
	id := testIdentity(t, 1).Public()
	loc, err := Create(id, id.Address(), 1, testEndpoints())
	assert.Nil(t, loc)
	assert.True(t, IsKind(err, KindCrypto))
	assert.ErrorIs(t, err, identity.ErrNoPrivateKey)
}

func TestVerifyDetectsTampering(t *testing.T) {
	id := testIdentity(t, 1)
	root := testIdentity(t, 2)
	orig := mustCreate(t, root, id.Address(), 77, testEndpoints())
	require.True(t, orig.Verify(root))

	clone := func() *Locator {
		c := *orig
		c.endpoints = orig.Endpoints()
		c.signature = orig.Signature()
		return &c
	}

	mutations := map[string]func(l *Locator){
		"subject":   func(l *Locator) { l.subject ^= 1 },
		"signer":    func(l *Locator) { l.signer ^= 1 << 63 },
		"timestamp": func(l *Locator) { l.timestamp ^= 1 },
		"endpoint": func(l *Locator) {
			l.endpoints[0] = endpoint.MustParse("udp/198.51.100.7:9992")
		},
		"drop endpoint": func(l *Locator) { l.endpoints = l.endpoints[1:] },
		"signature":     func(l *Locator) { l.signature[len(l.signature)-1] ^= 0x80 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			c := clone()
			mutate(c)
			assert.False(t, c.Verify(root))
		})
	}
	assert.True(t, orig.Verify(root), "mutating clones must not affect the original")
}

func TestVerifyRejectsSignerMismatch(t *testing.T) {
	root := testIdentity(t, 2)
	loc := mustCreate(t, root, address.MustParse("00000000000000aa"), 5, testEndpoints())

	// A key that accepts any signature but is not the signer.
	assert.False(t, loc.Verify(fakeIdentity{addr: root.Address() + 1}))
	// Same key, same address: accepted.
	assert.True(t, loc.Verify(fakeIdentity{addr: root.Address()}))
	// A real identity with a different address.
	assert.False(t, loc.Verify(testIdentity(t, 3)))
}

func TestShouldReplace(t *testing.T) {
	node := testIdentity(t, 1)
	root := testIdentity(t, 2)
	subject := node.Address()

	self10 := mustCreate(t, node, subject, 10, testEndpoints())
	proxy100 := mustCreate(t, root, subject, 100, testEndpoints())
	assert.True(t, proxy100.IsProxySigned())
	assert.True(t, self10.ShouldReplace(proxy100))
	assert.False(t, proxy100.ShouldReplace(self10))

	self5 := mustCreate(t, node, subject, 5, testEndpoints())
	assert.True(t, self10.ShouldReplace(self5))
	assert.False(t, self5.ShouldReplace(self10))

	self10b := mustCreate(t, node, subject, 10, testEndpoints()[:1])
	assert.False(t, self10.ShouldReplace(self10b))
	assert.False(t, self10b.ShouldReplace(self10))

	proxy50 := mustCreate(t, root, subject, 50, nil)
	assert.True(t, proxy100.ShouldReplace(proxy50))
	assert.False(t, proxy50.ShouldReplace(proxy100))
	assert.False(t, proxy50.ShouldReplace(proxy50))
}

func TestMarshalRoundTrip(t *testing.T) {
	id := testIdentity(t, 1)
	for _, eps := range [][]endpoint.Endpoint{nil, testEndpoints()} {
		loc := mustCreate(t, id, id.Address(), -42, eps)
		raw, err := loc.MarshalBinary()
		require.NoError(t, err)

		got, err := Parse(raw)
		require.NoError(t, err)
		if diff := cmp.Diff(loc, got, cmpOpts...); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
		assert.True(t, loc.Equal(got))
		assert.True(t, got.Verify(id))
	}
}

func TestUnmarshalAdvancesCursor(t *testing.T) {
	id := testIdentity(t, 1)
	a := mustCreate(t, id, id.Address(), 1, testEndpoints())
	b := mustCreate(t, id, id.Address(), 2, nil)

	buf := buffer.New(4096)
	defer buf.Release()
	require.NoError(t, a.Marshal(buf))
	require.NoError(t, b.Marshal(buf))

	cursor := 0
	gotA, err := Unmarshal(buf, &cursor)
	require.NoError(t, err)
	gotB, err := Unmarshal(buf, &cursor)
	require.NoError(t, err)
	assert.Equal(t, buf.Len(), cursor)
	assert.True(t, a.Equal(gotA))
	assert.True(t, b.Equal(gotB))
}

func TestUnmarshalRejectsEndpointCountOverLimit(t *testing.T) {
	var raw []byte
	raw = append(raw, make([]byte, 24)...)
	raw = append(raw, 0x00, MaxEndpoints+1)
	// Enough well-formed nil endpoints to satisfy the declared count.
	raw = append(raw, make([]byte, MaxEndpoints+1)...)
	raw = append(raw, 0, 0, 0, 0)

	cursor := 0
	loc, err := Unmarshal(buffer.Wrap(raw), &cursor)
	assert.Nil(t, loc)
	assert.True(t, IsKind(err, KindDecode))
	assert.Equal(t, "LOC-DEC-001", RuleID(err))
	assert.Zero(t, cursor)
}

func TestParseRejectsMappedFamily6Endpoint(t *testing.T) {
	id := testIdentity(t, 1)
	mapped := netip.MustParseAddr("::ffff:192.0.2.1").As16()

	var unsigned []byte
	unsigned = binary.BigEndian.AppendUint64(unsigned, uint64(id.Address()))
	unsigned = binary.BigEndian.AppendUint64(unsigned, uint64(id.Address()))
	unsigned = binary.BigEndian.AppendUint64(unsigned, 7)
	unsigned = binary.BigEndian.AppendUint16(unsigned, 1)
	unsigned = append(unsigned, byte(endpoint.TypeIPUDP), 6)
	unsigned = append(unsigned, mapped[:]...)
	unsigned = binary.BigEndian.AppendUint16(unsigned, 9993)
	unsigned = binary.BigEndian.AppendUint16(unsigned, 0)

	sig, err := id.Sign(unsigned)
	require.NoError(t, err)
	raw := binary.BigEndian.AppendUint16(append([]byte(nil), unsigned...), uint16(len(sig)))
	raw = append(raw, sig...)

	loc, err := Parse(raw)
	assert.Nil(t, loc)
	assert.True(t, IsKind(err, KindDecode))
	assert.Equal(t, "LOC-DEC-002", RuleID(err))
	assert.ErrorIs(t, err, endpoint.ErrInvalidFamily)
}

func TestParseMarshalByteExact(t *testing.T) {
	id := testIdentity(t, 1)
	eps := append(testEndpoints(), endpoint.MustParse("ip/2001:db8::9"), endpoint.MustParse("udp/[::ffff:192.0.2.1]:9993"))
	raw, err := mustCreate(t, id, id.Address(), 11, eps).MarshalBinary()
	require.NoError(t, err)

	got, err := Parse(raw)
	require.NoError(t, err)
	again, err := got.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, raw, again)
	assert.True(t, got.Verify(id))
}

func TestUnmarshalRejectsEveryTruncation(t *testing.T) {
	id := testIdentity(t, 1)
	raw, err := mustCreate(t, id, id.Address(), 9, testEndpoints()).MarshalBinary()
	require.NoError(t, err)

	for n := 0; n < len(raw); n++ {
		cursor := 0
		loc, err := Unmarshal(buffer.Wrap(raw[:n]), &cursor)
		require.Nil(t, loc, "prefix %d", n)
		require.True(t, IsKind(err, KindDecode), "prefix %d: %v", n, err)
		require.Zero(t, cursor)
	}
}

func TestUnmarshalSkipsReservedField(t *testing.T) {
	id := testIdentity(t, 1)
	loc := mustCreate(t, id, id.Address(), 3, testEndpoints())
	raw, err := loc.MarshalBinary()
	require.NoError(t, err)

	unsigned := buffer.New(4096)
	defer unsigned.Release()
	require.NoError(t, loc.marshal(unsigned, true))
	split := unsigned.Len() - 2

	var ext []byte
	ext = append(ext, raw[:split]...)
	ext = append(ext, 0x00, 0x03, 0xaa, 0xbb, 0xcc)
	ext = append(ext, raw[split+2:]...)

	got, err := Parse(ext)
	require.NoError(t, err)
	assert.True(t, loc.Equal(got))
	assert.True(t, got.Verify(id))

	// A reserved length that runs past the end of input.
	bad := append([]byte(nil), raw[:split]...)
	bad = append(bad, 0xff, 0xff, 0x00)
	_, err = Parse(bad)
	assert.Equal(t, "LOC-DEC-003", RuleID(err))
}

func TestParseRejectsTrailingBytes(t *testing.T) {
	id := testIdentity(t, 1)
	raw, err := mustCreate(t, id, id.Address(), 3, nil).MarshalBinary()
	require.NoError(t, err)
	_, err = Parse(append(raw, 0))
	assert.Equal(t, "LOC-DEC-004", RuleID(err))
}

func TestUnmarshalRejectsBadEndpoint(t *testing.T) {
	var raw []byte
	raw = append(raw, make([]byte, 24)...)
	raw = append(raw, 0x00, 0x01, 0xee)
	_, err := Parse(raw)
	assert.True(t, IsKind(err, KindDecode))
	assert.ErrorIs(t, err, endpoint.ErrUnknownType)
}

func TestWireLayout(t *testing.T) {
	signer := fakeIdentity{addr: address.MustParse("1122334455667788")}
	loc := mustCreate(t, signer, address.MustParse("0102030405060708"), -1, []endpoint.Endpoint{
		endpoint.MustParse("ip/192.0.2.1"),
	})
	raw, err := loc.MarshalBinary()
	require.NoError(t, err)

	want := []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0x00, 0x01,
		byte(endpoint.TypeIP), 4, 192, 0, 2, 1,
		0x00, 0x00,
		0x00, 0x04, 'f', 'a', 'k', 'e',
	}
	assert.Equal(t, want, raw)
}

func TestHash(t *testing.T) {
	id := testIdentity(t, 1)
	loc := mustCreate(t, id, id.Address(), 3, testEndpoints())

	var buf bytes.Buffer
	loc.WriteHash(&buf)
	assert.Equal(t, loc.Signature(), buf.Bytes(), "signed locators hash only their signature")

	other := *loc
	other.subject ^= 0xffff
	other.timestamp++
	other.endpoints = nil
	assert.Equal(t, loc.Hash64(), other.Hash64())

	eps := testEndpoints()
	a := mustCreate(t, id, id.Address(), 3, eps)
	b := mustCreate(t, id, id.Address(), 3, []endpoint.Endpoint{eps[2], eps[0], eps[3], eps[1], eps[0]})
	a.signature, b.signature = nil, nil
	assert.Equal(t, a.Hash64(), b.Hash64())

	c := *a
	c.timestamp++
	assert.NotEqual(t, a.Hash64(), c.Hash64())
}

func TestCompareOrdersAllFields(t *testing.T) {
	id := testIdentity(t, 1)
	a := mustCreate(t, id, 1, 3, testEndpoints())
	b := mustCreate(t, id, 2, 3, testEndpoints())
	assert.Negative(t, Compare(a, b))
	assert.Positive(t, Compare(b, a))
	assert.Zero(t, Compare(a, a))

	c := *a
	c.signature = append(a.Signature(), 0)
	assert.False(t, a.Equal(&c), "equality must include the signature")
}

func TestString(t *testing.T) {
	id := testIdentity(t, 1)
	loc := mustCreate(t, id, id.Address(), 3, testEndpoints()[:1])
	assert.Contains(t, loc.String(), "udp/198.51.100.7:9993")
	assert.Contains(t, loc.String(), id.Address().String())
}

func TestCID(t *testing.T) {
	id := testIdentity(t, 1)
	a, err := mustCreate(t, id, id.Address(), 3, nil).CID()
	require.NoError(t, err)
	b, err := mustCreate(t, id, id.Address(), 4, nil).CID()
	require.NoError(t, err)
	assert.True(t, a.Defined())
	assert.NotEqual(t, a, b)
}
