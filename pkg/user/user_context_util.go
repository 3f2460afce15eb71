package user

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const UserKey contextKey = "user"

var ErrNoUser = errors.New("user not found")

// CurrentUser returns the user the middleware resolved for the request, or ErrNoUser.
func CurrentUser(ctx context.Context) (User, error) {
	u, ok := ctx.Value(UserKey).(User)
	if !ok {
		log.Trace("user not found in context")
		return User{}, ErrNoUser
	}
	return u, nil
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, UserKey, u)
}
