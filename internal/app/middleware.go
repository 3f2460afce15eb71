package app

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/zakgeld/moni/pkg/session"
	"github.com/zakgeld/moni/pkg/user"
)

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies) {

	// Resolve the bearer token into the session and its user for downstream services.
	// Requests without a valid session continue anonymously; protected handlers reject them.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			token := session.TokenFromRequest(req)
			ctx := req.Context()

			if token != "" {
				s, err := deps.Sessions.Get(token)
				if err != nil {
					log.Debug("session not found or expired")
					next.ServeHTTP(w, req)
					return
				}
				u, err := deps.UserService.GetUser(ctx, s.UserId)
				if err != nil {
					if errors.Is(err, user.ErrUserNotFound) {
						log.Debugf("user of session not found: %s", s.UserUid)
						deps.Sessions.End(token)
						http.Error(w, "user not found", http.StatusForbidden)
						return
					}
					log.Errorf("failed to get user: %v", err)
					http.Error(w, err.Error(), http.StatusServiceUnavailable)
					return
				}
				ctx = user.WithUser(ctx, u)
				ctx = session.WithSession(ctx, s)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
}
