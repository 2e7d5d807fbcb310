// Package frames implements parsing, validation and serialization of frame
// documents across the three client protocol dialects: the farcaster meta-tag
// dialect, the openframes cross-client dialect, and the JSON-embedded
// farcaster v2 dialect.
package frames

// Dialect identifies which client protocol produced a frame or a report.
type Dialect string

const (
	DialectFarcaster   Dialect = "farcaster"
	DialectOpenFrames  Dialect = "openframes"
	DialectFarcasterV2 Dialect = "farcaster_v2"
)

// Wire-level limits. These are byte lengths, not character counts.
const (
	// MaxButtons is the number of button slots a frame may populate.
	MaxButtons = 4
	// MaxPostURLBytes bounds post URLs; the runtime appends routing
	// parameters on top, so the ceiling is deliberately tight.
	MaxPostURLBytes = 256
	// MaxInputTextBytes bounds the input text prompt.
	MaxInputTextBytes = 32
	// MaxStateBytes bounds the opaque serialized state.
	MaxStateBytes = 4096
	// MaxImageDataURLBytes bounds inline data: image URLs (256 KiB).
	MaxImageDataURLBytes = 256 * 1024
)

// legacyMaxInputTextBytes is the 1000-byte ceiling used by an older input
// validation path. The 32-byte limit above is authoritative; this constant is
// kept only so the discrepancy stays visible and tested. See validateInputTextLegacy.
const legacyMaxInputTextBytes = 1000

// VersionVNext is the rolling version label accepted alongside YYYY-MM-DD dates.
const VersionVNext = "vNext"

// DefaultPlaceholderTitle is the title the framework renders when the
// developer never set one. Parsers warn when they see it on a live page.
const DefaultPlaceholderTitle = "framehost frame"

// Meta tag names for the farcaster dialect.
const (
	TagFrame            = "fc:frame"
	TagFrameImage       = "fc:frame:image"
	TagFrameAspectRatio = "fc:frame:image:aspect_ratio"
	TagFrameInputText   = "fc:frame:input:text"
	TagFramePostURL     = "fc:frame:post_url"
	TagFrameState       = "fc:frame:state"
	TagFrameButton      = "fc:frame:button"
	TagOGImage          = "og:image"
	TagOGTitle          = "og:title"
)

// Meta tag names for the openframes dialect.
const (
	TagOFVersion       = "of:version"
	TagOFAcceptsPrefix = "of:accepts:"
	TagOFImage         = "of:image"
	TagOFAspectRatio   = "of:image:aspect_ratio"
	TagOFInputText     = "of:input:text"
	TagOFPostURL       = "of:post_url"
	TagOFState         = "of:state"
	TagOFButton        = "of:button"
)

// Framework-level meta tags, independent of any dialect.
const (
	TagFramesVersion = "framehost:version"
	TagDebugImageURL = "framehost:debug-image-url"
)

// ClientProtocolFarcaster is the protocol identifier the openframes dialect
// must list in its accepts set before borrowing farcaster values.
const ClientProtocolFarcaster = "farcaster"

// Button actions.
const (
	ActionPost         = "post"
	ActionPostRedirect = "post_redirect"
	ActionLink         = "link"
	ActionMint         = "mint"
	ActionTx           = "tx"
)

// LaunchFrameActionType is the only action type a v2 frame button accepts.
const LaunchFrameActionType = "launch_frame"

// ClientProtocol is an accepted protocol declaration (id + version pair).
type ClientProtocol struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// FrameButton is one of the up to four buttons on a frame. Target and PostURL
// are optional depending on Action.
type FrameButton struct {
	Action  string `json:"action"`
	Label   string `json:"label"`
	Target  string `json:"target,omitempty"`
	PostURL string `json:"post_url,omitempty"`
}

// Frame is the structurally unified post-parse representation of a frame
// document. Fields left at their zero value were absent or failed validation;
// a failed parse still retains every field that did validate.
type Frame struct {
	Version          string           `json:"version,omitempty"`
	ImageURL         string           `json:"image,omitempty"`
	OGImage          string           `json:"ogImage,omitempty"`
	ImageAspectRatio string           `json:"imageAspectRatio,omitempty"`
	InputText        string           `json:"inputText,omitempty"`
	PostURL          string           `json:"postUrl,omitempty"`
	State            string           `json:"state,omitempty"`
	Buttons          []FrameButton    `json:"buttons,omitempty"`
	AcceptedClients  []ClientProtocol `json:"accepts,omitempty"`
	Title            string           `json:"title,omitempty"`
}

// Status of a single dialect's parse pass.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// ParseResult is one meta-tag dialect's outcome: a possibly partial frame,
// the accumulated reports, and the dialect that produced it. Status is
// failure iff at least one error-level report exists.
type ParseResult struct {
	Status        Status              `json:"status"`
	Frame         Frame               `json:"frame"`
	Reports       map[string][]Report `json:"reports"`
	Specification Dialect             `json:"specification"`

	// Document-wide framework metadata, filled in by the orchestrator.
	FramesVersion string `json:"framesVersion,omitempty"`
	DebugImageURL string `json:"debugImageUrl,omitempty"`
}

// FrameV2 is the JSON-embedded dialect's frame shape.
type FrameV2 struct {
	Version  string         `json:"version,omitempty"`
	ImageURL string         `json:"imageUrl,omitempty"`
	Button   *FrameV2Button `json:"button,omitempty"`
}

// FrameV2Button is the single launch button of a v2 frame.
type FrameV2Button struct {
	Title  string         `json:"title,omitempty"`
	Action *FrameV2Action `json:"action,omitempty"`
}

// FrameV2Action describes what pressing a v2 button launches.
type FrameV2Action struct {
	Name                  string `json:"name,omitempty"`
	Type                  string `json:"type,omitempty"`
	URL                   string `json:"url,omitempty"`
	SplashImageURL        string `json:"splashImageUrl,omitempty"`
	SplashBackgroundColor string `json:"splashBackgroundColor,omitempty"`
}

// V2ParseResult is the JSON-embedded dialect's outcome. Manifest is nil
// unless manifest validation was requested; its failure is scoped to the
// manifest sub-result and does not flip the outer status by itself.
type V2ParseResult struct {
	Status        Status              `json:"status"`
	Frame         FrameV2             `json:"frame"`
	Reports       map[string][]Report `json:"reports"`
	Specification Dialect             `json:"specification"`
	Manifest      *ManifestResult     `json:"manifest,omitempty"`

	FramesVersion string `json:"framesVersion,omitempty"`
	DebugImageURL string `json:"debugImageUrl,omitempty"`
}

// FrameBundle is the multi-dialect orchestrator's result: every dialect's
// parse of the same document, plus shared framework metadata.
type FrameBundle struct {
	Farcaster   *ParseResult   `json:"farcaster"`
	OpenFrames  *ParseResult   `json:"openframes"`
	FarcasterV2 *V2ParseResult `json:"farcaster_v2"`

	FramesVersion string `json:"framesVersion,omitempty"`
	DebugImageURL string `json:"debugImageUrl,omitempty"`
}

// Result returns the requested dialect's frame and status from the bundle.
// The openframes and farcaster dialects share the Frame shape; the v2 dialect
// does not and is exposed separately via b.FarcasterV2.
func (b *FrameBundle) Result(d Dialect) *ParseResult {
	switch d {
	case DialectOpenFrames:
		return b.OpenFrames
	default:
		return b.Farcaster
	}
}
