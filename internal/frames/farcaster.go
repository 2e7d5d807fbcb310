package frames

import (
	"fmt"
	"net/http"

	"github.com/openframes/framehost/internal/htmlmeta"
)

// parseFarcasterFrame parses the farcaster meta-tag dialect out of doc.
// Validation failures never abort the pass; every field that validates is
// kept on the partial frame so callers can render a best-effort fallback.
func parseFarcasterFrame(doc *htmlmeta.Document, settings ParseSettings) *ParseResult {
	r := NewReporter(DialectFarcaster)
	frame := Frame{}
	fromGET := settings.FromRequestMethod != http.MethodPost

	if v, ok := doc.First(TagFrame); !ok {
		r.Error(TagFrame, fmt.Sprintf("Missing required meta tag %q", TagFrame))
	} else if !validFrameVersion(v) {
		r.Error(TagFrame, "Invalid version")
	} else {
		frame.Version = v
	}

	if v, ok := doc.First(TagFrameImage); !ok {
		r.Error(TagFrameImage, fmt.Sprintf("Missing required meta tag %q", TagFrameImage))
	} else if img, err := validateFrameImage(v); err != nil {
		r.Error(TagFrameImage, err.Error())
	} else {
		frame.ImageURL = img
	}

	// The og fallback image and title only matter on user-facing pages, i.e.
	// documents obtained via GET. POST responses skip these diagnostics.
	if v, ok := doc.First(TagOGImage); !ok {
		if fromGET {
			r.Warn(TagOGImage, fmt.Sprintf("Missing meta tag %q", TagOGImage))
		}
	} else if img, err := validateFrameImage(v); err != nil {
		if fromGET {
			r.Warn(TagOGImage, err.Error())
		}
	} else {
		frame.OGImage = img
	}

	if v, ok := doc.First(TagFrameAspectRatio); ok {
		if ratio, err := validateAspectRatio(v); err != nil {
			r.Error(TagFrameAspectRatio, err.Error())
		} else {
			frame.ImageAspectRatio = ratio
		}
	}

	if v, ok := doc.First(TagFrameInputText); ok {
		if text, err := validateInputText(v); err != nil {
			r.Error(TagFrameInputText, err.Error())
		} else {
			frame.InputText = text
		}
	}

	if v, ok := doc.First(TagFramePostURL); ok {
		if u, err := validateURL(v, MaxPostURLBytes); err != nil {
			r.Error(TagFramePostURL, err.Error())
		} else {
			frame.PostURL = u
		}
	} else {
		frame.PostURL = settings.FallbackPostURL
	}

	if v, ok := doc.First(TagFrameState); ok {
		if s, err := validateState(v); err != nil {
			r.Error(TagFrameState, err.Error())
		} else {
			frame.State = s
		}
	}

	frame.Title = extractTitle(doc, r, fromGET)
	frame.Buttons = parseButtons(doc.Tags(), TagFrameButton, r)

	return &ParseResult{
		Status:        r.Status(),
		Frame:         frame,
		Reports:       r.Reports(),
		Specification: DialectFarcaster,
	}
}

// extractTitle resolves the frame title from og:title, falling back to the
// document's <title> element. The framework's placeholder title signals the
// developer never set one, which is worth a warning on live pages.
func extractTitle(doc *htmlmeta.Document, r *Reporter, fromGET bool) string {
	title, ok := doc.First(TagOGTitle)
	if !ok {
		title = doc.Title()
	}
	if fromGET {
		if title == "" {
			r.Warn(TagOGTitle, fmt.Sprintf("Missing meta tag %q and <title> element", TagOGTitle))
		} else if title == DefaultPlaceholderTitle {
			r.Warn(TagOGTitle, "Frame is using the default title; set a custom title")
		}
	}
	return title
}
