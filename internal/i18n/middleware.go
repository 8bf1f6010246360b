package i18n

import "net/http"

// LangCookie overrides the server language for one browser.
const LangCookie = "lang"

// Middleware picks the request language. A lang cookie wins over
// Accept-Language, which wins over the server default.
func Middleware(lang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var prefs []string
			if c, err := r.Cookie(LangCookie); err == nil && c.Value != "" {
				prefs = append(prefs, c.Value)
			}
			if al := r.Header.Get("Accept-Language"); al != "" {
				prefs = append(prefs, al)
			}
			tag := Match(append(prefs, lang)...)
			next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), tag.String())))
		})
	}
}
