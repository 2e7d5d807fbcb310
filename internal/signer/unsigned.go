package signer

import (
	"context"
	"encoding/json"
	"net/url"
	"time"
)

// Unsigned produces best-effort unsigned action envelopes. Frame servers that
// verify messages will reject them; it exists for local development and for
// frames that accept untrusted data.
type Unsigned struct {
	// FID is the pretend identity carried in the untrusted payload.
	FID uint64
	// OnMissing is called when the session requires a signer; optional.
	OnMissing func()
}

type untrustedData struct {
	FID           uint64          `json:"fid"`
	URL           string          `json:"url"`
	Timestamp     int64           `json:"timestamp"`
	Network       int             `json:"network"`
	ButtonIndex   int             `json:"buttonIndex"`
	InputText     string          `json:"inputText,omitempty"`
	State         string          `json:"state,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	Address       string          `json:"address,omitempty"`
	FrameContext  json.RawMessage `json:"frameContext,omitempty"`
}

type unsignedBody struct {
	UntrustedData untrustedData `json:"untrustedData"`
	TrustedData   struct {
		MessageBytes string `json:"messageBytes"`
	} `json:"trustedData"`
}

// HasSigner implements Signer. The unsigned signer never counts as a real one.
func (u *Unsigned) HasSigner() bool { return false }

// SignFrameAction implements Signer.
func (u *Unsigned) SignFrameAction(_ context.Context, opts SignOptions) (*SignedRequest, error) {
	body := unsignedBody{
		UntrustedData: untrustedData{
			FID:           u.FID,
			URL:           opts.URL,
			Timestamp:     time.Now().UnixMilli(),
			Network:       1,
			ButtonIndex:   opts.ButtonIndex,
			InputText:     opts.InputText,
			State:         opts.State,
			TransactionID: opts.TransactionID,
			Address:       opts.Address,
			FrameContext:  opts.FrameContext,
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &SignedRequest{SearchParams: url.Values{}, Body: raw}, nil
}

// OnMissingSigner implements Signer.
func (u *Unsigned) OnMissingSigner() {
	if u.OnMissing != nil {
		u.OnMissing()
	}
}
