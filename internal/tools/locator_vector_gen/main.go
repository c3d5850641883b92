// Command locator_vector_gen regenerates testdata/conformance/locator.
//
// Usage:
//
//	go run ./internal/tools/locator_vector_gen testdata/conformance/locator
package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"xdao.co/locator/address"
	"xdao.co/locator/endpoint"
	"xdao.co/locator/identity"
	"xdao.co/locator/locator"
)

func mustIdentity(seedByte byte) *identity.Ed25519 {
	id, err := identity.NewEd25519FromSeed(bytes.Repeat([]byte{seedByte}, 32))
	if err != nil {
		panic(err)
	}
	return id
}

type vector struct {
	name      string
	signer    *identity.Ed25519
	subject   address.Address
	ts        int64
	endpoints []string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: locator_vector_gen <dir>")
		os.Exit(2)
	}
	dir := os.Args[1]

	node := mustIdentity(0xA1)
	root := mustIdentity(0xB2)
	vectors := []vector{
		{"self_signed", node, node.Address(), 1700000000000, []string{"ip/2001:db8::1", "udp/192.0.2.1:9993", "http/https://example.com/"}},
		{"proxy_signed", root, node.Address(), 42, []string{"eth/02:00:00:00:00:01", "tcp/192.0.2.9:443"}},
		{"empty", node, node.Address(), 0, nil},
	}

	for _, v := range vectors {
		var eps []endpoint.Endpoint
		for _, s := range v.endpoints {
			eps = append(eps, endpoint.MustParse(s))
		}
		loc, err := locator.Create(v.signer, v.subject, v.ts, eps)
		if err != nil {
			panic(err)
		}
		wire, err := loc.MarshalBinary()
		if err != nil {
			panic(err)
		}
		cid, err := loc.CID()
		if err != nil {
			panic(err)
		}
		if err := os.WriteFile(filepath.Join(dir, v.name+".hex"), []byte(hex.EncodeToString(wire)+"\n"), 0o644); err != nil {
			panic(err)
		}
		if err := os.WriteFile(filepath.Join(dir, v.name+".cid"), []byte(cid.String()+"\n"), 0o644); err != nil {
			panic(err)
		}
		fmt.Printf("%s CID=%s\n", v.name, cid)
	}
}
