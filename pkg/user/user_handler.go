package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/zakgeld/moni/internal/rest"
)

type UserDTO struct {
	Uid         string `json:"uid"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

type CreateChildDTO struct {
	Username string `json:"username"`
	Secret   string `json:"secret"`
	Name     string `json:"name"`
}

type Handler struct {
	userService Service
}

func NewHandler(userService Service) *Handler {
	return &Handler{
		userService: userService,
	}
}

// CreateChild godoc
// @Summary Create a child account
// @Description Register a child account owned by the current parent
// @Tags Children
// @Accept json
// @Produce json
// @Param child body CreateChildDTO true "Child"
// @Success 201 {object} UserDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 403 {object} rest.ErrorResponse "Not a parent"
// @Failure 409 {object} rest.ErrorResponse "Username taken"
// @Router /api/children [post]
func (h *Handler) CreateChild(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating child account")

	var child CreateChildDTO
	if err := json.NewDecoder(r.Body).Decode(&child); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}

	created, err := h.userService.CreateChild(r.Context(), child.Username, child.Secret, child.Name)
	if err != nil {
		writeUserError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, ToDTO(created))
}

// ListChildren godoc
// @Summary List children
// @Description Children of the current parent
// @Tags Children
// @Produce json
// @Success 200 {array} UserDTO
// @Failure 403 {object} rest.ErrorResponse "Not a parent"
// @Router /api/children [get]
func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	log.Trace("Listing children")

	children, err := h.userService.GetChildren(r.Context())
	if err != nil {
		writeUserError(w, err)
		return
	}
	childrenDTO := make([]UserDTO, 0, len(children))
	for _, child := range children {
		childrenDTO = append(childrenDTO, ToDTO(child))
	}
	rest.WriteJSON(w, http.StatusOK, childrenDTO)
}

// IsUsernameAvailable godoc
// @Summary Check username availability
// @Tags Children
// @Produce json
// @Param username query string true "Username to check"
// @Success 200 {object} object{available=bool}
// @Router /api/user/name-availability [get]
func (h *Handler) IsUsernameAvailable(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if username == "" {
		username = r.URL.Query().Get("username")
	}
	if username == "" {
		rest.WriteError(w, http.StatusBadRequest, "Username is required", "")
		return
	}

	isAvailable, err := h.userService.IsUsernameAvailable(r.Context(), username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rest.WriteJSON(w, http.StatusOK, map[string]bool{"available": isAvailable})
}

func writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoUser):
		rest.WriteError(w, http.StatusUnauthorized, "Not logged in", "")
	case errors.Is(err, ErrNotParent):
		rest.WriteError(w, http.StatusForbidden, "Only parents can manage children", "")
	case errors.Is(err, ErrUserDataInvalid):
		rest.WriteError(w, http.StatusBadRequest, "Invalid user data", err.Error())
	case errors.Is(err, ErrUsernameTaken):
		rest.WriteError(w, http.StatusConflict, "Username is already taken", "")
	default:
		log.Errorf("user request failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func ToDTO(u User) UserDTO {
	return UserDTO{
		Uid:         u.Uid,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
	}
}
