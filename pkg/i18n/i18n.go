// Package i18n localizes the handful of user-facing intake messages.
// The catalog is intentionally tiny; anything operator-facing stays in
// English in logs.
package i18n

import "strings"

var messages = map[string]map[string]string{
	"en": {
		"not_found":        "Not found",
		"form_unavailable": "This form is no longer available",
	},
	"pt-BR": {
		"not_found":        "Não encontrado",
		"form_unavailable": "Este formulário não está mais disponível",
	},
	"es": {
		"not_found":        "No encontrado",
		"form_unavailable": "Este formulario ya no está disponible",
	},
}

// T returns the message for key in the given locale, falling back to the
// base language ("pt" for "pt-BR") and then to English.
func T(locale, key string) string {
	if m, ok := messages[locale]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	if base, _, ok := strings.Cut(locale, "-"); ok {
		for tag, m := range messages {
			if strings.HasPrefix(tag, base) {
				if s, ok := m[key]; ok {
					return s
				}
			}
		}
	}
	return messages["en"][key]
}

// Supported reports whether a locale tag has a catalog entry, used by the
// Accept-Language negotiation middleware.
func Supported(locale string) bool {
	_, ok := messages[locale]
	return ok
}
