package frames

import (
	"context"

	"github.com/openframes/framehost/internal/farcaster"
	"github.com/openframes/framehost/internal/htmlmeta"
)

// ParseSettings carries the caller-supplied context of a parse pass.
type ParseSettings struct {
	// FrameURL is the URL the document was fetched from; the v2 manifest
	// check derives the frame origin from it.
	FrameURL string
	// FallbackPostURL is used when a dialect declares no post URL of its
	// own; conventionally the URL the frame was fetched from.
	FallbackPostURL string
	// FromRequestMethod is "GET" or "POST". POST-originated documents are
	// not user-facing pages, so og-image/title diagnostics are relaxed.
	FromRequestMethod string
	// StrictFrames makes the v2 dialect block on non-https URLs instead of
	// warning.
	StrictFrames bool
	// ValidateManifest opts in to fetching and verifying the frame origin's
	// domain manifest during the v2 parse.
	ValidateManifest bool
	// ManifestClient overrides the manifest fetcher, mainly for tests.
	ManifestClient *farcaster.Client
}

// ParseFramesWithReports runs all three dialect parsers against one HTML
// document and returns the keyed result bundle plus the document-wide
// framework metadata. Each dialect's failure is scoped to itself; no dialect
// can abort another's pass.
func ParseFramesWithReports(ctx context.Context, html string, settings ParseSettings) (*FrameBundle, error) {
	doc, err := htmlmeta.ParseString(html)
	if err != nil {
		return nil, err
	}
	return ParseDocument(ctx, doc, settings), nil
}

// ParseDocument is ParseFramesWithReports over an already-parsed document.
func ParseDocument(ctx context.Context, doc *htmlmeta.Document, settings ParseSettings) *FrameBundle {
	bundle := &FrameBundle{}
	bundle.FramesVersion, _ = doc.First(TagFramesVersion)
	bundle.DebugImageURL, _ = doc.First(TagDebugImageURL)

	bundle.Farcaster = parseFarcasterFrame(doc, settings)
	bundle.OpenFrames = parseOpenFramesFrame(doc, &bundle.Farcaster.Frame, settings)
	bundle.FarcasterV2 = parseFarcasterV2Frame(ctx, doc, settings)

	bundle.Farcaster.FramesVersion = bundle.FramesVersion
	bundle.Farcaster.DebugImageURL = bundle.DebugImageURL
	bundle.OpenFrames.FramesVersion = bundle.FramesVersion
	bundle.OpenFrames.DebugImageURL = bundle.DebugImageURL
	bundle.FarcasterV2.FramesVersion = bundle.FramesVersion
	bundle.FarcasterV2.DebugImageURL = bundle.DebugImageURL

	return bundle
}
