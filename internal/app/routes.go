package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Auth and session
	r.HandleFunc("/api/auth/register", deps.SessionHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", deps.SessionHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/logout", deps.SessionHandler.Logout).Methods("POST")
	r.HandleFunc("/api/session", deps.SessionHandler.Current).Methods("GET")
	r.HandleFunc("/api/session/acting-for", deps.SessionHandler.ActAs).Methods("PUT")

	// Children
	r.HandleFunc("/api/children", deps.UserHandler.CreateChild).Methods("POST")
	r.HandleFunc("/api/children", deps.UserHandler.ListChildren).Methods("GET")
	r.HandleFunc("/api/user/name-availability", deps.UserHandler.IsUsernameAvailable).Methods("GET").Queries("username", "{username}")

	// Allowance
	r.HandleFunc("/api/allowance/preview", deps.AllowanceHandler.Preview).Methods("POST")
	r.HandleFunc("/api/allowance/confirm", deps.AllowanceHandler.Confirm).Methods("POST")
	r.HandleFunc("/api/allowance/history", deps.AllowanceHandler.History).Methods("GET")
	r.HandleFunc("/api/allowance/latest", deps.AllowanceHandler.Latest).Methods("GET")
	r.HandleFunc("/api/allowance/export", deps.AllowanceHandler.Export).Methods("GET")
}
