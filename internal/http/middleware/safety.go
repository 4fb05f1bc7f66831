package middleware

import (
	"mime"
	"net/http"

	apperrors "github.com/pribylovaa/waste-directory/internal/errors"
)

// NoStore запрещает кэширование: view зависят от сессии.
func NoStore() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}

// RequireJSON пропускает изменяющие запросы только с Content-Type application/json.
// Простые cross-origin формы (urlencoded, multipart, text/plain) так до view не доходят.
func RequireJSON() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mt != "application/json" {
				w.Header().Set("Accept", "application/json")
				apperrors.WriteError(w, r, apperrors.FromStatus(http.StatusUnsupportedMediaType, "expected application/json body"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
