package frames

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError signals that a single field value violated a wire-level
// constraint. Dialect parsers convert these into keyed reports and keep
// going; they are never allowed to abort a parse pass.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

var imageDataURLMimes = []string{"image/png", "image/jpg", "image/jpeg", "image/gif"}

// validateFrameImage checks an image URL. Inline data: URLs must carry one of
// the allowed mime types, be base64 encoded, and stay under 256 KiB measured
// in bytes of the encoded URL. Anything else must be an absolute http(s) URL.
// Returns the canonicalized URL string.
func validateFrameImage(raw string) (string, error) {
	if strings.HasPrefix(raw, "data:") {
		if len(raw) > MaxImageDataURLBytes {
			return "", validationErrorf("Image size exceeds 256KB limit")
		}
		rest := strings.TrimPrefix(raw, "data:")
		ok := false
		for _, mime := range imageDataURLMimes {
			if strings.HasPrefix(rest, mime+";base64,") {
				ok = true
				break
			}
		}
		if !ok {
			return "", validationErrorf("Unsupported image type; must be one of png, jpg, jpeg, gif encoded as base64")
		}
		return raw, nil
	}
	return validateURL(raw, 0)
}

// validateInputText enforces the 32-byte UTF-8 ceiling on input prompts.
func validateInputText(raw string) (string, error) {
	if len(raw) > MaxInputTextBytes {
		return "", validationErrorf("Input text exceeds %d bytes", MaxInputTextBytes)
	}
	return raw, nil
}

// validateInputTextLegacy is the older 1000-byte input check. The dialect
// parsers do not call it; validateInputText's 32-byte ceiling is authoritative.
// Retained and tested so the historical discrepancy stays documented rather
// than silently resolved.
func validateInputTextLegacy(raw string) (string, error) {
	if len(raw) > legacyMaxInputTextBytes {
		return "", validationErrorf("Input text exceeds %d bytes", legacyMaxInputTextBytes)
	}
	return raw, nil
}

// validateAspectRatio accepts exactly "1:1" or "1.91:1".
func validateAspectRatio(raw string) (string, error) {
	if raw != "1:1" && raw != "1.91:1" {
		return "", validationErrorf("Invalid image aspect ratio")
	}
	return raw, nil
}

// validateURL parses raw as an absolute http(s) URL and, when maxBytes > 0,
// enforces a byte-length ceiling on the raw value. Returns the canonicalized
// URL string.
func validateURL(raw string, maxBytes int) (string, error) {
	if maxBytes > 0 && len(raw) > maxBytes {
		return "", validationErrorf("URL exceeds %d bytes", maxBytes)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", validationErrorf("Invalid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", validationErrorf("Invalid URL; must use http or https protocol")
	}
	if u.Host == "" {
		return "", validationErrorf("Invalid URL")
	}
	return u.String(), nil
}

// validateState enforces the 4096-byte ceiling on opaque serialized state.
func validateState(raw string) (string, error) {
	if len(raw) > MaxStateBytes {
		return "", validationErrorf("State exceeds %d bytes", MaxStateBytes)
	}
	return raw, nil
}

// validateCAIP10 checks a mint target of the shape
// namespace:chainId:address[:tokenId]. The chain id must be numeric; the
// token id is optional. The value is preserved verbatim on success.
func validateCAIP10(raw string) (string, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return "", validationErrorf("Invalid CAIP-10 URL")
	}
	namespace, chainID, address := parts[0], parts[1], parts[2]
	if namespace == "" || address == "" {
		return "", validationErrorf("Invalid CAIP-10 URL")
	}
	if _, err := strconv.ParseUint(chainID, 10, 64); err != nil {
		return "", validationErrorf("Invalid CAIP-10 URL")
	}
	return raw, nil
}

// validateHexColor accepts #rgb and #rrggbb colors, used by v2 splash screens.
func validateHexColor(raw string) (string, error) {
	if len(raw) != 4 && len(raw) != 7 {
		return "", validationErrorf("Invalid hex color")
	}
	if raw[0] != '#' {
		return "", validationErrorf("Invalid hex color")
	}
	for _, c := range raw[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return "", validationErrorf("Invalid hex color")
		}
	}
	return raw, nil
}

// validFrameVersion reports whether v is "vNext" or a YYYY-MM-DD date string.
func validFrameVersion(v string) bool {
	if v == VersionVNext {
		return true
	}
	if len(v) != 10 || v[4] != '-' || v[7] != '-' {
		return false
	}
	for i, c := range v {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	month, _ := strconv.Atoi(v[5:7])
	day, _ := strconv.Atoi(v[8:10])
	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}
