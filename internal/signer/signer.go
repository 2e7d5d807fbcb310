// Package signer defines the capability that authenticates frame actions and
// provides the unsigned fallback used in development.
package signer

import (
	"context"
	"encoding/json"
	"net/url"
)

// SignOptions is everything a signer needs to produce a signed action body.
type SignOptions struct {
	// ButtonIndex is 1-based, as the wire protocol expects.
	ButtonIndex int
	// Target is the URL the action will be posted to.
	Target string
	// URL is the frame the button was pressed on.
	URL           string
	InputText     string
	State         string
	TransactionID string
	Address       string
	// FrameContext is the opaque client context threaded through unchanged.
	FrameContext json.RawMessage
}

// SignedRequest is a ready-to-POST action envelope.
type SignedRequest struct {
	// SearchParams are merged into the action proxy query string.
	SearchParams url.Values
	// Body is the JSON payload.
	Body json.RawMessage
}

// Signer signs frame actions on behalf of the interacting user. HasSigner
// reports whether a real identity is configured; OnMissingSigner is invoked
// instead of a network call when an action requires a signer and none exists.
type Signer interface {
	HasSigner() bool
	SignFrameAction(ctx context.Context, opts SignOptions) (*SignedRequest, error)
	OnMissingSigner()
}
