package test_utils

import (
	"context"

	"github.com/zakgeld/moni/pkg/session"
	"github.com/zakgeld/moni/pkg/user"
)

var (
	TestParent = user.User{Id: 1, Uid: "test-parent", Username: "parent@example.com", DisplayName: "Test Parent", Role: user.RoleParent}
	TestChild  = user.User{Id: 2, Uid: "test-child", Username: "child", DisplayName: "Test Child", Role: user.RoleChild, ParentId: 1}
)

// LoggedIn starts a session for u and returns a context carrying both the user and the session.
func LoggedIn(ctx context.Context, sessions *session.Manager, u user.User) (context.Context, session.Session) {
	s := sessions.Start(u)
	ctx = user.WithUser(ctx, u)
	return session.WithSession(ctx, s), s
}
