package frames

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFramesRunsAllDialects(t *testing.T) {
	html := `<html><head>
<title>t</title>
<meta name="framehost:version" content="0.3.1"/>
<meta name="framehost:debug-image-url" content="https://example.com/debug.png"/>
<meta name="fc:frame" content="vNext"/>
<meta name="fc:frame:image" content="https://example.com/i.png"/>
<meta name="og:image" content="https://example.com/og.png"/>
</head></html>`
	bundle, err := ParseFramesWithReports(context.Background(), html, ParseSettings{})
	require.NoError(t, err)

	require.NotNil(t, bundle.Farcaster)
	require.NotNil(t, bundle.OpenFrames)
	require.NotNil(t, bundle.FarcasterV2)
	assert.Equal(t, DialectFarcaster, bundle.Farcaster.Specification)
	assert.Equal(t, DialectOpenFrames, bundle.OpenFrames.Specification)
	assert.Equal(t, DialectFarcasterV2, bundle.FarcasterV2.Specification)

	// One dialect's failure is scoped to itself.
	assert.Equal(t, StatusSuccess, bundle.Farcaster.Status)
	assert.Equal(t, StatusFailure, bundle.OpenFrames.Status, "no of: tags at all")
	assert.Equal(t, StatusFailure, bundle.FarcasterV2.Status, "fc:frame content is not JSON")
}

func TestParseFramesSharedMetadata(t *testing.T) {
	html := `<html><head>
<meta name="framehost:version" content="0.3.1"/>
<meta name="framehost:debug-image-url" content="https://example.com/debug.png"/>
</head></html>`
	bundle, err := ParseFramesWithReports(context.Background(), html, ParseSettings{})
	require.NoError(t, err)

	assert.Equal(t, "0.3.1", bundle.FramesVersion)
	assert.Equal(t, "https://example.com/debug.png", bundle.DebugImageURL)
	// Merged into every dialect's result.
	assert.Equal(t, "0.3.1", bundle.Farcaster.FramesVersion)
	assert.Equal(t, "0.3.1", bundle.OpenFrames.FramesVersion)
	assert.Equal(t, "0.3.1", bundle.FarcasterV2.FramesVersion)
	assert.Equal(t, "https://example.com/debug.png", bundle.Farcaster.DebugImageURL)
}

func TestBundleResultSelector(t *testing.T) {
	b := &FrameBundle{
		Farcaster:  &ParseResult{Specification: DialectFarcaster},
		OpenFrames: &ParseResult{Specification: DialectOpenFrames},
	}
	assert.Equal(t, DialectFarcaster, b.Result(DialectFarcaster).Specification)
	assert.Equal(t, DialectOpenFrames, b.Result(DialectOpenFrames).Specification)
	assert.Equal(t, DialectFarcaster, b.Result(DialectFarcasterV2).Specification, "v2 shape is separate; default to farcaster")
}
