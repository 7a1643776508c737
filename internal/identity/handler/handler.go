package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/models"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/identity/service"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/middleware"
	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/httputil"
)

// Service defines the user and identity operations the handler exposes.
type Service interface {
	RequireUser(ctx context.Context, userID id.UserID) (*models.User, error)
	RequireUserByUID(ctx context.Context, uid string) (*models.User, error)
	ListUsersByNickname(ctx context.Context, nickname string) ([]*models.User, error)
	UpdateNicknameOnce(ctx context.Context, userID id.UserID, nickname string) (*models.User, error)
	ChangeNickname(ctx context.Context, userID id.UserID, nickname string) (*models.User, error)
	ListIdentities(ctx context.Context, userID id.UserID) ([]*models.Identity, error)
	LinkIdentity(ctx context.Context, userID id.UserID, provider models.Provider, sub string, claims map[string]any) (*models.Identity, error)
	UnlinkIdentity(ctx context.Context, userID id.UserID, provider models.Provider) (*service.UnlinkResult, error)
}

// Handler serves /users and /identities. Every route requires a bearer token.
type Handler struct {
	logger       *slog.Logger
	svc          Service
	jwtValidator middleware.JWTValidator
}

func New(svc Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{logger: logger, svc: svc, jwtValidator: jwtValidator}
}

// Register registers the user and identity routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.ContentTypeJSON)

		r.Get("/users/me", h.handleMe)
		r.Patch("/users/me/nickname", h.handleSetNickname)
		r.Put("/users/me/nickname", h.handleChangeNickname)
		r.Get("/users/uid/{uid}", h.handleUserByUID)
		r.Get("/users", h.handleUsersByNickname)

		r.Get("/identities", h.handleListIdentities)
		r.Post("/identities/{provider}", h.handleLinkIdentity)
		r.Delete("/identities/{provider}", h.handleUnlinkIdentity)
	})
}

// UserOut is the public view of a user.
type UserOut struct {
	ID          string     `json:"id"`
	UID         string     `json:"uid"`
	Nickname    *string    `json:"nickname"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toUserOut(u *models.User) UserOut {
	out := UserOut{
		ID:          u.ID.String(),
		UID:         u.UID,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if u.HasNickname() {
		nn := u.Nickname
		out.Nickname = &nn
	}
	return out
}

// IdentityOut is the public view of a linked identity.
type IdentityOut struct {
	ID            string    `json:"id"`
	Provider      string    `json:"provider"`
	ProviderSub   string    `json:"provider_sub"`
	Email         string    `json:"email,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

func toIdentityOut(i *models.Identity) IdentityOut {
	return IdentityOut{
		ID:            i.ID.String(),
		Provider:      string(i.Provider),
		ProviderSub:   i.ProviderSub,
		Email:         i.Email,
		EmailVerified: i.EmailVerified,
		CreatedAt:     i.CreatedAt,
	}
}

type nicknameRequest struct {
	Nickname string `json:"nickname"`
}

type linkRequest struct {
	ProviderSub string         `json:"provider_sub"`
	Claims      map[string]any `json:"claims"`
}

// Bounds match the identities table columns.
func (r linkRequest) validate() error {
	if !govalidator.StringLength(r.ProviderSub, "1", "255") {
		return dErrors.New(dErrors.CodeInvalidInput, "provider_sub must be 1-255 characters")
	}
	if email, ok := r.Claims["email"].(string); ok && !govalidator.StringLength(email, "0", "320") {
		return dErrors.New(dErrors.CodeInvalidInput, "claims.email must be at most 320 characters")
	}
	return nil
}

type linkResponse struct {
	ID          string `json:"id"`
	Provider    string `json:"provider"`
	ProviderSub string `json:"provider_sub"`
}

type unlinkResponse struct {
	Deleted     int      `json:"deleted"`
	Provider    string   `json:"provider"`
	ProviderSub []string `json:"provider_sub"`
	Message     string   `json:"message"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.svc.RequireUser(ctx, middleware.GetUserID(ctx))
	if err != nil {
		h.writeError(w, r, "failed to load current user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserOut(user))
}

func (h *Handler) handleSetNickname(w http.ResponseWriter, r *http.Request) {
	h.nickname(w, r, h.svc.UpdateNicknameOnce)
}

func (h *Handler) handleChangeNickname(w http.ResponseWriter, r *http.Request) {
	h.nickname(w, r, h.svc.ChangeNickname)
}

func (h *Handler) nickname(w http.ResponseWriter, r *http.Request, update func(context.Context, id.UserID, string) (*models.User, error)) {
	ctx := r.Context()
	var req nicknameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, "invalid nickname request", dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	user, err := update(ctx, middleware.GetUserID(ctx), req.Nickname)
	if err != nil {
		h.writeError(w, r, "failed to update nickname", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserOut(user))
}

func (h *Handler) handleUserByUID(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.RequireUserByUID(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		h.writeError(w, r, "failed to load user by uid", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserOut(user))
}

func (h *Handler) handleUsersByNickname(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsersByNickname(r.Context(), r.URL.Query().Get("nickname"))
	if err != nil {
		h.writeError(w, r, "failed to list users", err)
		return
	}
	out := make([]UserOut, 0, len(users))
	for _, u := range users {
		out = append(out, toUserOut(u))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListIdentities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idents, err := h.svc.ListIdentities(ctx, middleware.GetUserID(ctx))
	if err != nil {
		h.writeError(w, r, "failed to list identities", err)
		return
	}
	out := make([]IdentityOut, 0, len(idents))
	for _, i := range idents {
		out = append(out, toIdentityOut(i))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleLinkIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider, err := models.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		h.writeError(w, r, "invalid provider", err)
		return
	}
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, "invalid link request", dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, r, "invalid link request", err)
		return
	}
	ident, err := h.svc.LinkIdentity(ctx, middleware.GetUserID(ctx), provider, req.ProviderSub, req.Claims)
	if err != nil {
		h.writeError(w, r, "failed to link identity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, linkResponse{
		ID:          ident.ID.String(),
		Provider:    string(ident.Provider),
		ProviderSub: ident.ProviderSub,
	})
}

func (h *Handler) handleUnlinkIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider, err := models.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		h.writeError(w, r, "invalid provider", err)
		return
	}
	res, err := h.svc.UnlinkIdentity(ctx, middleware.GetUserID(ctx), provider)
	if err != nil {
		h.writeError(w, r, "failed to unlink identity", err)
		return
	}
	resp := unlinkResponse{
		Deleted:     res.Deleted,
		Provider:    string(provider),
		ProviderSub: make([]string, 0, len(res.Identities)),
		Message:     "ok",
	}
	for _, i := range res.Identities {
		resp.ProviderSub = append(resp.ProviderSub, i.ProviderSub)
	}
	if res.Deleted == 0 {
		resp.Message = "not found or already deleted"
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	status, _ := httputil.ErrorBody(err)
	attrs := []any{"error", err, "request_id", middleware.GetRequestID(ctx)}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
