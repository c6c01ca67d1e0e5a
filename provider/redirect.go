package provider

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// ResolveRedirect unwraps the tracking redirects that HTML search engines
// put around outbound links. When decoding fails, the wrapper URL is kept
// so the result is still usable.
func ResolveRedirect(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	switch {
	// DuckDuckGo: /l/?uddg=<escaped target>
	case strings.HasSuffix(host, "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/"):
		if target := u.Query().Get("uddg"); target != "" {
			if unescaped, err := url.QueryUnescape(target); err == nil {
				return unescaped
			}
			return target
		}

	// Bing: /ck/a?...&u=a1<base64 target>
	case strings.HasSuffix(host, "bing.com") && strings.HasPrefix(u.Path, "/ck/"):
		enc := u.Query().Get("u")
		enc = strings.TrimPrefix(enc, "a1")
		if enc == "" {
			return raw
		}
		if decoded, ok := decodeBase64URL(enc); ok {
			return decoded
		}

	// Google: /url?q=<target>
	case strings.HasSuffix(host, "google.com") && u.Path == "/url":
		if target := u.Query().Get("q"); strings.HasPrefix(target, "http") {
			return target
		}
	}
	return raw
}

// decodeBase64URL tries the two base64 alphabets before giving up.
func decodeBase64URL(enc string) (string, bool) {
	for _, decoder := range []*base64.Encoding{base64.RawURLEncoding, base64.RawStdEncoding} {
		if data, err := decoder.DecodeString(enc); err == nil {
			target := string(data)
			if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
				return target, true
			}
		}
	}
	return "", false
}
