package frames

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/openframes/framehost/internal/htmlmeta"
)

// parseOpenFramesFrame parses the cross-client dialect. The already-parsed
// farcaster frame is the fallback source: individual fields borrow its values
// only when the accepts set names the farcaster protocol, and only when the
// of tag for that field is absent. The fallback is deliberately asymmetric;
// nothing flows back into the farcaster result.
func parseOpenFramesFrame(doc *htmlmeta.Document, primary *Frame, settings ParseSettings) *ParseResult {
	r := NewReporter(DialectOpenFrames)
	frame := Frame{}
	fromGET := settings.FromRequestMethod != http.MethodPost

	for _, t := range doc.WithPrefix(TagOFAcceptsPrefix) {
		id := strings.TrimPrefix(t.Name, TagOFAcceptsPrefix)
		if id == "" {
			r.Error(t.Name, "Unrecognized meta tag")
			continue
		}
		frame.AcceptedClients = append(frame.AcceptedClients, ClientProtocol{ID: id, Version: t.Content})
	}
	if len(frame.AcceptedClients) == 0 {
		r.Error(TagOFAcceptsPrefix+"{protocol_identifier}",
			fmt.Sprintf("At least one %q meta tag is required", TagOFAcceptsPrefix+"{protocol_identifier}"))
	}
	acceptsFarcaster := false
	for _, p := range frame.AcceptedClients {
		if p.ID == ClientProtocolFarcaster {
			acceptsFarcaster = true
			break
		}
	}

	// Version and accepts are the dialect's own; they never borrow.
	if v, ok := doc.First(TagOFVersion); !ok {
		r.Error(TagOFVersion, fmt.Sprintf("Missing required meta tag %q", TagOFVersion))
	} else if !validFrameVersion(v) {
		r.Error(TagOFVersion, "Invalid version")
	} else {
		frame.Version = v
	}

	if v, ok := doc.First(TagOFImage); ok {
		if img, err := validateFrameImage(v); err != nil {
			r.Error(TagOFImage, err.Error())
		} else {
			frame.ImageURL = img
		}
	} else if acceptsFarcaster && primary.ImageURL != "" {
		frame.ImageURL = primary.ImageURL
	} else {
		r.Error(TagOFImage, fmt.Sprintf("Missing required meta tag %q", TagOFImage))
	}

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

	if v, ok := doc.First(TagOFAspectRatio); ok {
		if ratio, err := validateAspectRatio(v); err != nil {
			r.Error(TagOFAspectRatio, err.Error())
		} else {
			frame.ImageAspectRatio = ratio
		}
	} else if acceptsFarcaster {
		frame.ImageAspectRatio = primary.ImageAspectRatio
	}

	if v, ok := doc.First(TagOFInputText); ok {
		if text, err := validateInputText(v); err != nil {
			r.Error(TagOFInputText, err.Error())
		} else {
			frame.InputText = text
		}
	} else if acceptsFarcaster {
		frame.InputText = primary.InputText
	}

	if v, ok := doc.First(TagOFPostURL); ok {
		if u, err := validateURL(v, MaxPostURLBytes); err != nil {
			r.Error(TagOFPostURL, err.Error())
		} else {
			frame.PostURL = u
		}
	} else if acceptsFarcaster && primary.PostURL != "" {
		frame.PostURL = primary.PostURL
	} else {
		frame.PostURL = settings.FallbackPostURL
	}

	if v, ok := doc.First(TagOFState); ok {
		if s, err := validateState(v); err != nil {
			r.Error(TagOFState, err.Error())
		} else {
			frame.State = s
		}
	} else if acceptsFarcaster {
		frame.State = primary.State
	}

	frame.Title = extractTitle(doc, r, fromGET)

	// Buttons use whichever set is longer. Ties go to the openframes parse;
	// the farcaster set wins only a strict length majority.
	ofButtons := parseButtons(doc.Tags(), TagOFButton, r)
	if acceptsFarcaster && len(primary.Buttons) > len(ofButtons) {
		frame.Buttons = primary.Buttons
	} else {
		frame.Buttons = ofButtons
	}

	return &ParseResult{
		Status:        r.Status(),
		Frame:         frame,
		Reports:       r.Reports(),
		Specification: DialectOpenFrames,
	}
}
