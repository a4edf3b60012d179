package xhttp

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	XForwardedFor    = "X-Forwarded-For"
	XContentTypeOpts = "X-Content-Type-Options"
	XFrameOpts       = "X-Frame-Options"
	XXSSProtection   = "X-Xss-Protection"
	ReferrerPolicy   = "Referrer-Policy"
	XRateLimitReason = "X-RateLimit-Reason"
	XRequestID       = "X-Request-ID"
	Authorization    = "Authorization"
)

const (
	ContentType     = "Content-Type"
	Accept          = "Accept"
	UserAgent       = "User-Agent"
	ApplicationJSON = "application/json"
)

func SetHeaderRequestID(w http.ResponseWriter, requestID string) {
	w.Header().Set(XRequestID, requestID)
}

func SetHeaderContentTypeApplicationJSON(w http.ResponseWriter) {
	w.Header().Set(ContentType, ApplicationJSON)
}

func SetHeaderRetryAfter(w http.ResponseWriter, retryAfter time.Duration) {
	const retryAfterHeader = "Retry-After"
	w.Header().Set(retryAfterHeader, strconv.Itoa(int(retryAfter.Seconds())))
}

// SetRequestHeadersJSON marks an outbound request as sending and accepting JSON.
func SetRequestHeadersJSON(req *http.Request) {
	req.Header.Set(ContentType, ApplicationJSON)
	req.Header.Set(Accept, ApplicationJSON)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get(Authorization)
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
