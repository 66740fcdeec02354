// Package cas derives stable content addresses from source image URLs.
// Identical album art referenced from different songs resolves to the
// same address, so the cache stores one record per distinct image.
package cas

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// maxAddress bounds the fallback forms so addresses stay usable as
// store keys and path segments.
const maxAddress = 64

// hexStem matches the 32-char lowercase hex hash the upstream image
// provider embeds in its filenames.
var hexStem = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Address derives the cache address for a source URL. Preference order:
// the filename's hex hash stem, then the sanitized filename, then a
// bounded URL-safe encoding of the whole URL. The function is total and
// deterministic; it never fails. An empty URL yields an empty address,
// which callers must reject before reaching the cache.
func Address(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	name := filename(rawURL)
	stem, _, _ := strings.Cut(name, ".")
	if low := strings.ToLower(stem); hexStem.MatchString(low) {
		return low
	}

	if s := sanitize(name); s != "" {
		return s
	}

	enc := base64.RawURLEncoding.EncodeToString([]byte(rawURL))
	if len(enc) > maxAddress {
		enc = enc[:maxAddress]
	}
	return enc
}

// filename extracts the last path segment before any query or fragment.
func filename(rawURL string) string {
	s := rawURL
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// sanitize keeps ASCII letters and digits, capped at maxAddress runes.
func sanitize(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			if sb.Len() >= maxAddress {
				break
			}
		}
	}
	return sb.String()
}
