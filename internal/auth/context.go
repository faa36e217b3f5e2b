package auth

import "context"

type ctxKey string

const (
	userContextKey    ctxKey = "taskapp.auth.user"
	sessionContextKey ctxKey = "taskapp.auth.session"
)

func withUserContext(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

func withSessionContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

func UserFromContext(ctx context.Context) (User, bool) {
	v := ctx.Value(userContextKey)
	u, ok := v.(User)
	return u, ok
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	v := ctx.Value(sessionContextKey)
	s, ok := v.(Session)
	return s, ok
}

// EmailFromContext is UserFromContext reduced to the email, the identity
// the ledger works with.
func EmailFromContext(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	if !ok || u.Email == "" {
		return "", false
	}
	return u.Email, true
}
