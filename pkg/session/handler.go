package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zakgeld/moni/internal/rest"
	"github.com/zakgeld/moni/pkg/user"
)

type CredentialsDTO struct {
	Identity    string `json:"identity"`
	Secret      string `json:"secret"`
	DisplayName string `json:"displayName,omitempty"`
}

type LoginDTO struct {
	Token string       `json:"token"`
	User  user.UserDTO `json:"user"`
}

type PendingDTO struct {
	WeekId       string `json:"weekId"`
	Income       string `json:"income"`
	Expenses     string `json:"expenses"`
	Withdrawn    string `json:"withdrawn"`
	NewBalance   string `json:"newBalance"`
	NegativeWeek bool   `json:"negativeWeek"`
}

type SessionDTO struct {
	UserUid   string      `json:"userUid"`
	Role      user.Role   `json:"role"`
	ActingFor string      `json:"actingFor"`
	Pending   *PendingDTO `json:"pending,omitempty"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type Handler struct {
	manager     *Manager
	userService user.Service
}

func NewHandler(manager *Manager, userService user.Service) *Handler {
	return &Handler{manager: manager, userService: userService}
}

// TokenFromRequest extracts the bearer token from the Authorization header.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

// Register godoc
// @Summary Register a parent account
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body CredentialsDTO true "Credentials"
// @Success 201 {object} user.UserDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 409 {object} rest.ErrorResponse "Identity taken"
// @Router /api/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var credentials CredentialsDTO
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}

	account, err := h.userService.CreateAccount(r.Context(), credentials.Identity, credentials.Secret, credentials.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUserDataInvalid):
			rest.WriteError(w, http.StatusBadRequest, "Identity and secret are required", "")
		case errors.Is(err, user.ErrUsernameTaken):
			rest.WriteError(w, http.StatusConflict, "Account already exists", "")
		default:
			log.Errorf("failed to create account: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	rest.WriteJSON(w, http.StatusCreated, user.ToDTO(account))
}

// Login godoc
// @Summary Log in as parent or child
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body CredentialsDTO true "Credentials"
// @Success 200 {object} LoginDTO
// @Failure 401 {object} rest.ErrorResponse "Invalid credentials"
// @Router /api/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var credentials CredentialsDTO
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}

	account, err := h.userService.VerifyCredentials(r.Context(), credentials.Identity, credentials.Secret)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			rest.WriteError(w, http.StatusUnauthorized, "Invalid credentials", "")
			return
		}
		log.Errorf("failed to verify credentials: %v", err)
		rest.WriteError(w, http.StatusServiceUnavailable, "Login is currently unavailable", "")
		return
	}

	s := h.manager.Start(account)
	rest.WriteJSON(w, http.StatusOK, LoginDTO{Token: s.Token, User: user.ToDTO(account)})
}

// Logout godoc
// @Summary End the current session
// @Tags Auth
// @Success 204 "No Content"
// @Router /api/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := TokenFromRequest(r); token != "" {
		h.manager.End(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Current godoc
// @Summary Current session
// @Tags Auth
// @Produce json
// @Success 200 {object} SessionDTO
// @Failure 401 {object} rest.ErrorResponse "Not logged in"
// @Router /api/session [get]
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	s, err := Current(r.Context())
	if err != nil {
		rest.WriteError(w, http.StatusUnauthorized, "Not logged in", "")
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(s))
}

// ActAs godoc
// @Summary Switch the session to a child
// @Description Parents view and log weeks for one of their children. An empty childUid switches back to the parent.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body object{childUid=string} true "Child"
// @Success 200 {object} SessionDTO
// @Failure 403 {object} rest.ErrorResponse "Not allowed"
// @Router /api/session/acting-for [put]
func (h *Handler) ActAs(w http.ResponseWriter, r *http.Request) {
	s, err := Current(r.Context())
	if err != nil {
		rest.WriteError(w, http.StatusUnauthorized, "Not logged in", "")
		return
	}

	var body struct {
		ChildUid string `json:"childUid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	ownerUid := body.ChildUid
	if ownerUid == "" {
		ownerUid = s.UserUid
	}

	owner, err := h.userService.GetUserByUid(r.Context(), ownerUid)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			rest.WriteError(w, http.StatusNotFound, "Child not found", "")
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	updated, err := h.manager.ActAs(s.Token, owner)
	if err != nil {
		if errors.Is(err, user.ErrNotParent) || errors.Is(err, ErrNotYourChild) {
			rest.WriteError(w, http.StatusForbidden, "Not allowed to act for this account", "")
			return
		}
		rest.WriteError(w, http.StatusUnauthorized, "Not logged in", "")
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(updated))
}

func ToDTO(s Session) SessionDTO {
	dto := SessionDTO{
		UserUid:   s.UserUid,
		Role:      s.Role,
		ActingFor: s.ActingFor,
		ExpiresAt: s.ExpiresAt,
	}
	if s.Pending != nil {
		dto.Pending = &PendingDTO{
			WeekId:       s.Pending.WeekId,
			Income:       s.Pending.Income.StringFixed(2),
			Expenses:     s.Pending.Expenses.StringFixed(2),
			Withdrawn:    s.Pending.Withdrawn.StringFixed(2),
			NewBalance:   s.Pending.NewBalance.StringFixed(2),
			NegativeWeek: s.Pending.NegativeWeek,
		}
	}
	return dto
}
