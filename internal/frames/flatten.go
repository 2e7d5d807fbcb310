package frames

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// FlattenFrame is the inverse of the meta-tag parsers: it produces the flat
// string-keyed tag map representing f under the farcaster namespace and,
// when the frame declares at least one accepted protocol, the openframes
// namespace as well. Round-tripping the map through the parsers reproduces
// the original field values exactly.
func FlattenFrame(f Frame) map[string]string {
	tags := map[string]string{}

	put := func(key, value string) {
		if value != "" {
			tags[key] = value
		}
	}

	put(TagFrame, f.Version)
	put(TagFrameImage, f.ImageURL)
	put(TagOGImage, f.OGImage)
	put(TagFrameAspectRatio, f.ImageAspectRatio)
	put(TagFrameInputText, f.InputText)
	put(TagFramePostURL, f.PostURL)
	put(TagFrameState, f.State)
	put(TagOGTitle, f.Title)
	flattenButtons(tags, TagFrameButton, f.Buttons)

	if len(f.AcceptedClients) > 0 {
		put(TagOFVersion, f.Version)
		for _, p := range f.AcceptedClients {
			// A declaration with an empty version still names the protocol;
			// the tag must survive the round trip.
			if p.ID != "" {
				tags[TagOFAcceptsPrefix+p.ID] = p.Version
			}
		}
		put(TagOFImage, f.ImageURL)
		put(TagOFAspectRatio, f.ImageAspectRatio)
		put(TagOFInputText, f.InputText)
		put(TagOFPostURL, f.PostURL)
		put(TagOFState, f.State)
		flattenButtons(tags, TagOFButton, f.Buttons)
	}

	return tags
}

// flattenButtons writes the label/action/target/post_url sub-keys for each
// populated index. post_url is only meaningful for actions that post.
func flattenButtons(tags map[string]string, prefix string, buttons []FrameButton) {
	for i, b := range buttons {
		idx := i + 1
		tags[fmt.Sprintf("%s:%d", prefix, idx)] = b.Label
		if b.Action != "" {
			tags[fmt.Sprintf("%s:%d:action", prefix, idx)] = b.Action
		}
		if b.Target != "" {
			tags[fmt.Sprintf("%s:%d:target", prefix, idx)] = b.Target
		}
		if b.PostURL != "" {
			switch b.Action {
			case ActionTx, ActionPost, ActionPostRedirect:
				tags[fmt.Sprintf("%s:%d:post_url", prefix, idx)] = b.PostURL
			}
		}
	}
}

// RenderMetaTags serializes a flat tag map to HTML meta elements, escaping
// attribute-unsafe characters. Keys are emitted in sorted order so output is
// deterministic.
func RenderMetaTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(`<meta name="`)
		b.WriteString(html.EscapeString(k))
		b.WriteString(`" content="`)
		b.WriteString(html.EscapeString(tags[k]))
		b.WriteString("\"/>\n")
	}
	return b.String()
}

// RenderFrameHTML wraps a frame's meta tags into a minimal HTML document.
func RenderFrameHTML(f Frame) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head>\n")
	if f.Title != "" {
		b.WriteString("<title>")
		b.WriteString(html.EscapeString(f.Title))
		b.WriteString("</title>\n")
	}
	b.WriteString(RenderMetaTags(FlattenFrame(f)))
	b.WriteString("</head><body></body></html>")
	return b.String()
}
