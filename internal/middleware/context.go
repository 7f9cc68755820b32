package middleware

import "context"

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	identityKey contextKey = "identity"
)

// Identity — то, что провайдер авторизации знает о пользователе. Нужна для создания профиля при первом входе.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// GetUserID возвращает user_id из контекста (ставят AuthServiceValidate или DevAuth).
func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(UserIDKey).(string)
	return v
}

func GetIdentity(ctx context.Context) Identity {
	v, _ := ctx.Value(identityKey).(Identity)
	if v.UserID == "" {
		v.UserID = GetUserID(ctx)
	}
	return v
}

// WithIdentity кладёт identity и user_id в контекст.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id.UserID)
	return context.WithValue(ctx, identityKey, id)
}
