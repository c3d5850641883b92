package model

import (
	"encoding/base64"
	"fmt"

	"xdao.co/locator/locator"
)

// LocatorView is the JSON projection of a locator.
//
// Endpoints use their textual form (see endpoint.Parse). Hash is the 64-bit
// locator hash in hex, and CID identifies the full wire form.
type LocatorView struct {
	Subject     string   `json:"subject"`
	Signer      string   `json:"signer"`
	Timestamp   int64    `json:"timestamp"`
	ProxySigned bool     `json:"proxySigned"`
	Endpoints   []string `json:"endpoints"`
	Signature   string   `json:"signature"`
	CID         string   `json:"cid"`
	Hash        string   `json:"hash"`
}

func NewLocatorView(l *locator.Locator) (*LocatorView, error) {
	id, err := l.CID()
	if err != nil {
		return nil, err
	}
	eps := l.Endpoints()
	view := &LocatorView{
		Subject:     l.Subject().String(),
		Signer:      l.Signer().String(),
		Timestamp:   l.Timestamp(),
		ProxySigned: l.IsProxySigned(),
		Endpoints:   make([]string, 0, len(eps)),
		Signature:   base64.StdEncoding.EncodeToString(l.Signature()),
		CID:         id.String(),
		Hash:        fmt.Sprintf("%016x", l.Hash64()),
	}
	for _, e := range eps {
		view.Endpoints = append(view.Endpoints, e.String())
	}
	return view, nil
}

// VerifyResult reports the outcome of checking a locator against an identity.
type VerifyResult struct {
	CID      string `json:"cid"`
	Signer   string `json:"signer"`
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
}
