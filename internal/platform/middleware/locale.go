package middleware

import (
	"net/http"
	"strings"

	"formgate/pkg/i18n"
	"formgate/pkg/requestcontext"
)

// BrowserLocale negotiates the response locale from the Accept-Language
// header: the first supported tag wins, quality factors are ignored beyond
// their ordering, and unknown tags fall through to English.
func BrowserLocale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := negotiate(r.Header.Get("Accept-Language"))
		ctx := requestcontext.WithLocale(r.Context(), locale)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func negotiate(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if tag == "" {
			continue
		}
		if i18n.Supported(tag) {
			return tag
		}
		// "pt" and "pt-PT" both land on the pt-BR catalog.
		switch base, _, _ := strings.Cut(tag, "-"); base {
		case "pt":
			return "pt-BR"
		case "es":
			return "es"
		}
	}
	return "en"
}
