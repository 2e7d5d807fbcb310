package frames

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openframes/framehost/internal/farcaster"
)

func v2HTML(t *testing.T, frame FrameV2) string {
	t.Helper()
	blob, err := json.Marshal(frame)
	require.NoError(t, err)
	return `<html><head><meta name="fc:frame" content='` + string(blob) + `'/></head></html>`
}

func validV2Frame() FrameV2 {
	return FrameV2{
		Version:  "next",
		ImageURL: "https://example.com/image.png",
		Button: &FrameV2Button{
			Title: "Play",
			Action: &FrameV2Action{
				Name:                  "Play game",
				Type:                  LaunchFrameActionType,
				URL:                   "https://example.com/app",
				SplashImageURL:        "https://example.com/splash.png",
				SplashBackgroundColor: "#1a2b3c",
			},
		},
	}
}

func parseV2(t *testing.T, html string, settings ParseSettings) *V2ParseResult {
	t.Helper()
	bundle, err := ParseFramesWithReports(context.Background(), html, settings)
	require.NoError(t, err)
	return bundle.FarcasterV2
}

func TestV2Valid(t *testing.T) {
	res := parseV2(t, v2HTML(t, validV2Frame()), ParseSettings{StrictFrames: true})
	assert.Equal(t, StatusSuccess, res.Status, "reports: %v", res.Reports)
	assert.Equal(t, "next", res.Frame.Version)
	require.NotNil(t, res.Frame.Button)
	assert.Equal(t, "Play", res.Frame.Button.Title)
	assert.Nil(t, res.Manifest, "manifest validation is opt-in")
}

func TestV2MissingTag(t *testing.T) {
	res := parseV2(t, `<html><head></head></html>`, ParseSettings{})
	assert.Equal(t, StatusFailure, res.Status)
	require.Len(t, res.Reports["fc:frame"], 1)
	assert.Equal(t, `Missing required meta tag "fc:frame"`, res.Reports["fc:frame"][0].Message)
}

func TestV2MalformedJSONShortCircuits(t *testing.T) {
	res := parseV2(t, `<html><head><meta name="fc:frame" content="vNext"/></head></html>`, ParseSettings{})
	assert.Equal(t, StatusFailure, res.Status)
	require.Len(t, res.Reports, 1, "exactly one top-level report")
	require.Len(t, res.Reports["fc:frame"], 1)
	assert.Equal(t, "Failed to parse frame, it is not a valid JSON value", res.Reports["fc:frame"][0].Message)
	assert.Equal(t, FrameV2{}, res.Frame, "empty partial frame")
}

func TestV2SchemaErrors(t *testing.T) {
	frame := validV2Frame()
	frame.Version = ""
	frame.Button.Action.Type = "open_url"
	frame.Button.Action.SplashBackgroundColor = "blue"
	res := parseV2(t, v2HTML(t, frame), ParseSettings{})
	assert.Equal(t, StatusFailure, res.Status)
	assert.NotEmpty(t, res.Reports["fc:frame.version"])
	assert.NotEmpty(t, res.Reports["fc:frame.button.action.type"])
	assert.NotEmpty(t, res.Reports["fc:frame.button.action.splashBackgroundColor"])
	// Valid fields still retained.
	assert.Equal(t, "https://example.com/image.png", res.Frame.ImageURL)
}

func TestV2StrictModeHTTPS(t *testing.T) {
	frame := validV2Frame()
	frame.ImageURL = "http://example.com/image.png"

	strict := parseV2(t, v2HTML(t, frame), ParseSettings{StrictFrames: true})
	assert.Equal(t, StatusFailure, strict.Status)
	require.Len(t, strict.Reports["fc:frame.imageUrl"], 1)
	assert.Equal(t, ReportLevelError, strict.Reports["fc:frame.imageUrl"][0].Level)

	lax := parseV2(t, v2HTML(t, frame), ParseSettings{StrictFrames: false})
	assert.Equal(t, StatusSuccess, lax.Status)
	require.Len(t, lax.Reports["fc:frame.imageUrl"], 1)
	assert.Equal(t, ReportLevelWarning, lax.Reports["fc:frame.imageUrl"][0].Level)
}

// manifestServer serves a well-known manifest whose signed payload claims the
// domain produced by domainFor. Passing the request's own hostname yields a
// matching association; anything else simulates a lying manifest.
func manifestServer(t *testing.T, domainFor func(r *http.Request) string) (*httptest.Server, *farcaster.Client) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != farcaster.WellKnownPath {
			http.NotFound(w, r)
			return
		}
		header, _ := json.Marshal(farcaster.AssociationHeader{FID: 7, Type: farcaster.KeyTypeAppKey, Key: "0x" + hex.EncodeToString(pub)})
		payload, _ := json.Marshal(farcaster.AssociationPayload{Domain: domainFor(r)})
		h := base64.RawURLEncoding.EncodeToString(header)
		p := base64.RawURLEncoding.EncodeToString(payload)
		sig := ed25519.Sign(priv, []byte(h+"."+p))
		_ = json.NewEncoder(w).Encode(farcaster.Manifest{
			AccountAssociation: farcaster.AccountAssociation{Header: h, Payload: p, Signature: base64.RawURLEncoding.EncodeToString(sig)},
			Frame: farcaster.ManifestFrame{
				Version: "1", Name: "demo",
				HomeURL: "https://example.com", IconURL: "https://example.com/icon.png",
			},
		})
	}))
	client := &farcaster.Client{HTTPClient: &http.Client{Timeout: 5 * time.Second}, Verifier: farcaster.Ed25519Verifier{}}
	return srv, client
}

func TestV2ManifestValid(t *testing.T) {
	srv, client := manifestServer(t, func(r *http.Request) string {
		host, _, _ := net.SplitHostPort(r.Host)
		return host
	})
	defer srv.Close()

	res := parseV2(t, v2HTML(t, validV2Frame()), ParseSettings{
		FrameURL:         srv.URL + "/frame",
		ValidateManifest: true,
		ManifestClient:   client,
	})
	require.NotNil(t, res.Manifest)
	assert.Equal(t, StatusSuccess, res.Manifest.Status, "reports: %v", res.Manifest.Reports)
	require.NotNil(t, res.Manifest.Manifest)
	assert.Equal(t, "demo", res.Manifest.Manifest.Frame.Name)
}

func TestV2ManifestDomainMismatch(t *testing.T) {
	srv, client := manifestServer(t, func(*http.Request) string { return "other.com" })
	defer srv.Close()

	res := parseV2(t, v2HTML(t, validV2Frame()), ParseSettings{
		FrameURL:         srv.URL + "/frame",
		ValidateManifest: true,
		ManifestClient:   client,
	})
	require.NotNil(t, res.Manifest)
	assert.Equal(t, StatusFailure, res.Manifest.Status)
	require.Len(t, res.Manifest.Reports["accountAssociation.payload"], 1)
	// The manifest failure is scoped to the manifest sub-result.
	assert.Equal(t, StatusSuccess, res.Status, "outer frame status unaffected")
}

func TestV2ManifestFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()
	client := &farcaster.Client{HTTPClient: srv.Client(), Verifier: farcaster.Ed25519Verifier{}}

	res := parseV2(t, v2HTML(t, validV2Frame()), ParseSettings{
		FrameURL:         srv.URL + "/frame",
		ValidateManifest: true,
		ManifestClient:   client,
	})
	require.NotNil(t, res.Manifest)
	assert.Equal(t, StatusFailure, res.Manifest.Status)
	require.Len(t, res.Manifest.Reports["farcaster.json"], 1)
	assert.Contains(t, res.Manifest.Reports["farcaster.json"][0].Message, "failed to fetch")
}
