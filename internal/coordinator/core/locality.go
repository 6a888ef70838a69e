package core

import "net/url"

// localitySchemes are the URI schemes PrefHost knows how to extract a
// worker hostname from. Any other scheme yields no locality hint.
var localitySchemes = map[string]bool{
	"disco": true,
	"dir":   true,
	"http":  true,
}

// PrefHost derives a preferred worker host from an input URI, or "" if the
// URI's scheme carries no locality hint. It accepts both string and
// []byte/[]rune-shaped input by taking a string directly - callers holding
// a byte string should convert with string(b) before calling.
//
// PrefHost is idempotent on its own output: re-applying it to the
// extracted host (which has no recognized scheme prefix) yields "".
func PrefHost(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	if !localitySchemes[parsed.Scheme] {
		return ""
	}
	return parsed.Host
}
