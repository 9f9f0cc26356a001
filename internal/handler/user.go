package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/service"
)

// UserHandler serves accounts and login.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type authRequest struct {
	Username   string          `json:"username"`
	Password   string          `json:"password"`
	TZUTCDelta json.RawMessage `json:"tzutcdelta"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// HandleAuth exchanges credentials for a token.
//
// HTTP: POST /api/auth
func (h *UserHandler) HandleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	tz, err := service.ParseTZUTCDelta(req.TZUTCDelta)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, user, err := h.users.Authenticate(r.Context(), req.Username, req.Password, tz)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/users
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleList searches users by username.
//
// HTTP: GET /api/users?q=&limit=&offset=
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.users.Search(r.Context(), service.UserQuery{
		Query:  q.Get("q"),
		Limit:  q.Get("limit"),
		Offset: q.Get("offset"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DataResponse{Data: users})
}

// HandleGet returns one user.
//
// HTTP: GET /api/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdate changes username, password or admin rights.
//
// HTTP: PUT /api/users/{id}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.Update(r.Context(), CurrentUser(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDelete removes an account and everything it owns.
//
// HTTP: DELETE /api/users/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Delete(r.Context(), CurrentUser(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
