package intake

import (
	"net/http"
	"strings"

	"contactguard/internal/constants"
)

// ClientIdentity keys the rate limiter. The proxy headers are trusted as-is,
// so the service must sit behind a proxy that overwrites them.
func ClientIdentity(h http.Header) string {
	if fwd := h.Get(constants.HeaderForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if realIP := strings.TrimSpace(h.Get(constants.HeaderRealIP)); realIP != "" {
		return realIP
	}

	return constants.UnknownIdentity
}
