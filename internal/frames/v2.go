package frames

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/openframes/framehost/internal/farcaster"
	"github.com/openframes/framehost/internal/htmlmeta"
)

// ManifestResult is the domain manifest sub-result of a v2 parse. Its status
// is scoped to the manifest: a failing manifest does not by itself fail the
// outer frame parse.
type ManifestResult struct {
	Status   Status              `json:"status"`
	Manifest *farcaster.Manifest `json:"manifest,omitempty"`
	Reports  map[string][]Report `json:"reports"`
}

// parseFarcasterV2Frame parses the JSON-embedded dialect: a single fc:frame
// meta tag whose content is a JSON blob rather than flat tags. A JSON parse
// failure short-circuits with one top-level error and an empty partial frame.
func parseFarcasterV2Frame(ctx context.Context, doc *htmlmeta.Document, settings ParseSettings) *V2ParseResult {
	r := NewReporter(DialectFarcasterV2)
	result := &V2ParseResult{Specification: DialectFarcasterV2}

	raw, ok := doc.First(TagFrame)
	if !ok {
		r.Error(TagFrame, fmt.Sprintf("Missing required meta tag %q", TagFrame))
		result.Status, result.Reports = r.Status(), r.Reports()
		return result
	}

	var frame FrameV2
	if err := json.Unmarshal([]byte(raw), &frame); err != nil {
		r.Error(TagFrame, "Failed to parse frame, it is not a valid JSON value")
		result.Status, result.Reports = r.Status(), r.Reports()
		return result
	}
	result.Frame = frame

	if frame.Version == "" {
		r.Error("fc:frame.version", "Missing required field")
	}
	if frame.ImageURL == "" {
		r.Error("fc:frame.imageUrl", "Missing required field")
	} else {
		checkV2URL("fc:frame.imageUrl", frame.ImageURL, settings.StrictFrames, r)
	}

	if frame.Button == nil {
		r.Error("fc:frame.button", "Missing required field")
	} else {
		if frame.Button.Title == "" {
			r.Error("fc:frame.button.title", "Missing required field")
		}
		if frame.Button.Action == nil {
			r.Error("fc:frame.button.action", "Missing required field")
		} else {
			action := frame.Button.Action
			if action.Name == "" {
				r.Error("fc:frame.button.action.name", "Missing required field")
			}
			if action.Type != LaunchFrameActionType {
				r.Error("fc:frame.button.action.type", fmt.Sprintf("Invalid action type; must be %q", LaunchFrameActionType))
			}
			if action.URL == "" {
				r.Error("fc:frame.button.action.url", "Missing required field")
			} else {
				checkV2URL("fc:frame.button.action.url", action.URL, settings.StrictFrames, r)
			}
			if action.SplashImageURL == "" {
				r.Error("fc:frame.button.action.splashImageUrl", "Missing required field")
			} else {
				checkV2URL("fc:frame.button.action.splashImageUrl", action.SplashImageURL, settings.StrictFrames, r)
			}
			if action.SplashBackgroundColor == "" {
				r.Error("fc:frame.button.action.splashBackgroundColor", "Missing required field")
			} else if _, err := validateHexColor(action.SplashBackgroundColor); err != nil {
				r.Error("fc:frame.button.action.splashBackgroundColor", err.Error())
			}
		}
	}

	if settings.ValidateManifest {
		result.Manifest = validateManifest(ctx, settings)
	}

	result.Status, result.Reports = r.Status(), r.Reports()
	return result
}

// checkV2URL requires a valid URL; strict mode blocks on non-https, otherwise
// non-https is only a warning.
func checkV2URL(key, raw string, strict bool, r *Reporter) {
	u, err := validateURL(raw, 0)
	if err != nil {
		r.Error(key, err.Error())
		return
	}
	if !strings.HasPrefix(u, "https://") {
		if strict {
			r.Error(key, "URL must use https protocol")
		} else {
			r.Warn(key, "URL should use https protocol")
		}
	}
}

// validateManifest fetches the frame origin's manifest fresh and verifies the
// account association against the frame's own hostname. Fetch, parse,
// signature and domain failures each get their own distinctly keyed report.
func validateManifest(ctx context.Context, settings ParseSettings) *ManifestResult {
	r := NewReporter(DialectFarcasterV2)
	result := &ManifestResult{}
	client := settings.ManifestClient
	if client == nil {
		client = farcaster.NewClient()
	}

	frameURL, err := url.Parse(settings.FrameURL)
	if err != nil || frameURL.Host == "" {
		r.Error("farcaster.json", "Cannot resolve frame origin for manifest validation")
		result.Status, result.Reports = r.Status(), r.Reports()
		return result
	}

	// Fetch and decode failures share the key but keep their distinct
	// sentinel wording from the farcaster package.
	manifest, err := client.Fetch(ctx, frameURL.Scheme+"://"+frameURL.Host)
	if err != nil {
		r.Error("farcaster.json", err.Error())
		result.Status, result.Reports = r.Status(), r.Reports()
		return result
	}
	result.Manifest = manifest

	if _, err := client.VerifyAssociation(manifest.AccountAssociation, frameURL.Hostname()); err != nil {
		switch {
		case errors.Is(err, farcaster.ErrDomainMismatch):
			r.Error("accountAssociation.payload", err.Error())
		case errors.Is(err, farcaster.ErrSignatureInvalid):
			r.Error("accountAssociation.signature", err.Error())
		default:
			r.Error("accountAssociation", err.Error())
		}
	}

	if manifest.Frame.HomeURL == "" {
		r.Error("frame.homeUrl", "Missing required field")
	} else {
		checkV2URL("frame.homeUrl", manifest.Frame.HomeURL, settings.StrictFrames, r)
	}
	if manifest.Frame.IconURL == "" {
		r.Error("frame.iconUrl", "Missing required field")
	} else {
		checkV2URL("frame.iconUrl", manifest.Frame.IconURL, settings.StrictFrames, r)
	}
	if manifest.Frame.SplashImageURL != "" {
		checkV2URL("frame.splashImageUrl", manifest.Frame.SplashImageURL, settings.StrictFrames, r)
	}
	if manifest.Frame.SplashBackgroundColor != "" {
		if _, err := validateHexColor(manifest.Frame.SplashBackgroundColor); err != nil {
			r.Error("frame.splashBackgroundColor", err.Error())
		}
	}

	result.Status, result.Reports = r.Status(), r.Reports()
	return result
}
