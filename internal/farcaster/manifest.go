// Package farcaster implements the domain manifest: a signed, domain-scoped
// descriptor served from a well-known path that proves a frame's publisher
// controls the claimed origin.
package farcaster

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WellKnownPath is where a frame origin serves its manifest.
const WellKnownPath = "/.well-known/farcaster.json"

// Error categories. Callers must be able to tell "couldn't get the manifest"
// apart from "got it but it's lying about its domain".
var (
	ErrManifestFetch     = errors.New("failed to fetch frame manifest")
	ErrManifestDecode    = errors.New("failed to parse frame manifest")
	ErrAssociationDecode = errors.New("account association is malformed")
	ErrSignatureInvalid  = errors.New("account association signature is invalid")
	ErrDomainMismatch    = errors.New("account association domain does not match frame domain")
)

// Manifest is the domain-level descriptor.
type Manifest struct {
	AccountAssociation AccountAssociation `json:"accountAssociation"`
	Frame              ManifestFrame      `json:"frame"`
}

// AccountAssociation is a detached JSON-Farcaster-Signature: three base64url
// segments signed by the claimed account key.
type AccountAssociation struct {
	Header    string `json:"header"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// AssociationHeader is the decoded signer header.
type AssociationHeader struct {
	FID  uint64 `json:"fid"`
	Type string `json:"type"`
	Key  string `json:"key"`
}

// AssociationPayload is the decoded signed payload.
type AssociationPayload struct {
	Domain string `json:"domain"`
}

// ManifestFrame is the frame metadata carried alongside the association.
type ManifestFrame struct {
	Version               string `json:"version"`
	Name                  string `json:"name"`
	HomeURL               string `json:"homeUrl"`
	IconURL               string `json:"iconUrl"`
	SplashImageURL        string `json:"splashImageUrl,omitempty"`
	SplashBackgroundColor string `json:"splashBackgroundColor,omitempty"`
}

// KeyVerifier checks a raw signature against the signer key declared in the
// association header. Implementations exist per key type; unknown key types
// are a verification error, not a panic.
type KeyVerifier interface {
	Verify(header AssociationHeader, signingInput, signature []byte) error
}

// Client fetches and verifies manifests. Manifests are fetched fresh on
// every call and never cached.
type Client struct {
	HTTPClient *http.Client
	Verifier   KeyVerifier
}

// NewClient returns a Client with a bounded-timeout HTTP client and the
// ed25519 app-key verifier.
func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Verifier:   Ed25519Verifier{},
	}
}

// Fetch retrieves the manifest from origin's well-known path.
func (c *Client) Fetch(ctx context.Context, origin string) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(origin, "/")+WellKnownPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestFetch, err)
	}
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestFetch, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrManifestFetch, res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestFetch, err)
	}
	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestDecode, err)
	}
	return &m, nil
}

// VerifyAssociation checks the association signature and that the signed
// payload claims exactly the given domain. Returns the decoded payload on
// success so callers can surface what was actually signed.
func (c *Client) VerifyAssociation(assoc AccountAssociation, domain string) (*AssociationPayload, error) {
	header, err := decodeSegment[AssociationHeader](assoc.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrAssociationDecode, err)
	}
	payload, err := decodeSegment[AssociationPayload](assoc.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrAssociationDecode, err)
	}
	sig, err := base64URLDecode(assoc.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %v", ErrAssociationDecode, err)
	}
	signingInput := []byte(assoc.Header + "." + assoc.Payload)
	if err := c.Verifier.Verify(*header, signingInput, sig); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if !strings.EqualFold(payload.Domain, domain) {
		return payload, fmt.Errorf("%w: signed %q, frame served from %q", ErrDomainMismatch, payload.Domain, domain)
	}
	return payload, nil
}

func decodeSegment[T any](segment string) (*T, error) {
	raw, err := base64URLDecode(segment)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// base64URLDecode accepts both padded and unpadded base64url.
func base64URLDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
