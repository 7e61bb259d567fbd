package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/keep-bouncing-back/internal/auth"
	"github.com/sakif/keep-bouncing-back/internal/model"
	"github.com/sakif/keep-bouncing-back/internal/service"
)

// AccountHandler serves /users: registration, login, profile and kit.
//
// Routes that change something run behind auth.RequireAuth and pass the
// authenticated account down to the service, which decides ownership.
type AccountHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful POST /users/login.
type LoginResponse struct {
	Message     string         `json:"message"`
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        *model.Account `json:"user"`
}

// updateRequest uses pointers so an omitted field is distinguishable from
// an empty one.
type updateRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	CurrentPassword *string `json:"currentPassword"`
	NewPassword     *string `json:"newPassword"`
}

// HandleRegister creates an account.
//
// HTTP: POST /users
// REQUEST BODY: {"name": "Ana Lima", "email": "ana@example.com", "password": "..."}
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	account, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// HandleLogin exchanges credentials for a bearer token.
//
// HTTP: POST /users/login
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message:     "login successful",
		AccessToken: res.Token.Value,
		TokenType:   "bearer",
		ExpiresAt:   res.Token.ExpiresAt,
		User:        res.Account,
	})
}

// HandleList returns accounts page by page.
//
// HTTP: GET /users?limit=20&offset=0
func (h *AccountHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	accounts, err := h.accounts.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// HandleMe returns the account the bearer token belongs to.
//
// HTTP: GET /users/me (RequireAuth)
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	account, _ := auth.AccountFromContext(r.Context())
	writeJSON(w, http.StatusOK, account)
}

// HandleGet: GET /users/{id}
func (h *AccountHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /users/{id} and PUT /users/update/{id} (RequireAuth)
// REQUEST BODY: any of {"name", "email", "currentPassword", "newPassword"}
func (h *AccountHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	current, _ := auth.AccountFromContext(r.Context())
	account, err := h.accounts.Update(r.Context(), current, id, service.UpdateInput{
		Name:            req.Name,
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HandleDelete: DELETE /users/{id} (RequireAuth) → 204
func (h *AccountHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	current, _ := auth.AccountFromContext(r.Context())
	if err := h.accounts.Delete(r.Context(), current, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListKit: GET /users/{id}/equipment
func (h *AccountHandler) HandleListKit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items, err := h.accounts.Kit(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleAddToKit: PUT /users/{id}/equipment/{equipmentID} (RequireAuth) → 204
func (h *AccountHandler) HandleAddToKit(w http.ResponseWriter, r *http.Request) {
	h.changeKit(w, r, h.accounts.AddToKit)
}

// HandleRemoveFromKit: DELETE /users/{id}/equipment/{equipmentID} (RequireAuth) → 204
func (h *AccountHandler) HandleRemoveFromKit(w http.ResponseWriter, r *http.Request) {
	h.changeKit(w, r, h.accounts.RemoveFromKit)
}

func (h *AccountHandler) changeKit(w http.ResponseWriter, r *http.Request,
	change func(ctx context.Context, current *model.Account, accountID, equipmentID int64) error,
) {
	accountID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	equipmentID, err := pathID(r, "equipmentID")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	current, _ := auth.AccountFromContext(r.Context())
	if err := change(r.Context(), current, accountID, equipmentID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
