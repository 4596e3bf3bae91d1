package middleware

import (
	"net/http"

	"github.com/mssola/useragent"

	"luckdraw/pkg/requestcontext"
)

// Device parses the User-Agent into a short human-readable description that
// audit events attach to registrations ("Chrome 120 on Linux").
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.UserAgent()
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		ua := useragent.New(raw)
		name, version := ua.Browser()
		desc := name
		if version != "" {
			desc += " " + version
		}
		if os := ua.OS(); os != "" {
			desc += " on " + os
		}
		ctx := requestcontext.WithDevice(r.Context(), desc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
