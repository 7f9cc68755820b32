package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/chatbubble/internal/logger"
)

// BearerToken достаёт токен из Authorization или ?token= (браузерный WebSocket не умеет ставить заголовки).
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// AuthServiceValidate проверяет bearer-токен у внешнего провайдера: GET {authServiceURL}/validate
// с тем же Authorization. 200 + {"user_id", "name", "email"} — пропускаем, иначе 401.
func AuthServiceValidate(authServiceURL string, client *http.Client) func(http.Handler) http.Handler {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	validateURL := strings.TrimSuffix(authServiceURL, "/") + "/validate"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeUnauthorized(w)
				return
			}
			req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, validateURL, nil)
			if err != nil {
				http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
				return
			}
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := client.Do(req)
			if err != nil {
				logger.Errorf("auth validate %s: %v", MaskToken(token), err)
				writeUnauthorized(w)
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				writeUnauthorized(w)
				return
			}
			var id Identity
			if err := json.NewDecoder(resp.Body).Decode(&id); err != nil || id.UserID == "" {
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// DevAuth — только для -dev: пользователь берётся из X-User-Id (или ?user_id=) без проверки.
func DevAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if uid == "" {
			uid = strings.TrimSpace(r.URL.Query().Get("user_id"))
		}
		if uid == "" {
			writeUnauthorized(w)
			return
		}
		id := Identity{UserID: uid, Name: r.Header.Get("X-User-Name"), Email: r.Header.Get("X-User-Email")}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized"}`))
}
