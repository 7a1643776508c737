package handler

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/auth/models"
	"github.com/sangcheol-games/sangcheol-odyssey-api/internal/platform/middleware"
	id "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain"
	dErrors "github.com/sangcheol-games/sangcheol-odyssey-api/pkg/domain-errors"
	"github.com/sangcheol-games/sangcheol-odyssey-api/pkg/platform/httputil"
)

// Service defines the login operations exposed over HTTP.
type Service interface {
	ExchangeCode(ctx context.Context, code, verifier string) (*models.TokenResponse, error)
	LoginWithIDToken(ctx context.Context, idToken string) (*models.TokenResponse, error)
	InitSession(ctx context.Context, verifier string) (*models.SessionInit, error)
	PollSession(ctx context.Context, sessionID string) (*models.PollResult, error)
	HandleCallback(ctx context.Context, req models.CallbackRequest) error
	HandleRefresh(ctx context.Context, plaintext string) (*models.TokenResponse, error)
	HandleLogout(ctx context.Context, userID id.UserID) error
}

// Handler serves /auth.
type Handler struct {
	logger       *slog.Logger
	auth         Service
	jwtValidator middleware.JWTValidator
	initLimiter  *middleware.RateLimiter
}

// New creates an auth Handler. A nil limiter leaves session init unthrottled.
func New(auth Service, logger *slog.Logger, jwtValidator middleware.JWTValidator, initLimiter *middleware.RateLimiter) *Handler {
	return &Handler{
		logger:       logger,
		auth:         auth,
		jwtValidator: jwtValidator,
		initLimiter:  initLimiter,
	}
}

// Register registers the auth routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/callback", h.handleGoogleCallback)

		r.Group(func(r chi.Router) {
			r.Use(middleware.ContentTypeJSON)
			r.Post("/google/exchange", h.handleGoogleExchange)
			r.Post("/google/verify-id-token", h.handleVerifyIDToken)
			r.Get("/session/poll", h.handleSessionPoll)
			r.Post("/refresh", h.handleRefresh)

			r.Group(func(r chi.Router) {
				if h.initLimiter != nil {
					r.Use(h.initLimiter.Middleware)
				}
				r.Post("/session/init", h.handleSessionInit)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
				r.Post("/logout", h.handleLogout)
			})
		})
	})
}

type exchangeRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
}

func (r exchangeRequest) validate() error {
	if !govalidator.StringLength(r.Code, "1", "2048") {
		return dErrors.New(dErrors.CodeInvalidInput, "code is required")
	}
	if strings.TrimSpace(r.CodeVerifier) == "" {
		return dErrors.New(dErrors.CodeInvalidVerifier, "code_verifier is required")
	}
	return nil
}

type verifyIDTokenRequest struct {
	IDToken string `json:"id_token"`
}

type sessionInitRequest struct {
	CodeVerifier string `json:"code_verifier"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) handleGoogleExchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		h.writeError(w, r, "invalid exchange request", err)
		return
	}
	resp, err := h.auth.ExchangeCode(r.Context(), req.Code, req.CodeVerifier)
	if err != nil {
		h.writeError(w, r, "google code exchange failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleVerifyIDToken(w http.ResponseWriter, r *http.Request) {
	var req verifyIDTokenRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !govalidator.StringLength(req.IDToken, "1", "8192") {
		h.writeError(w, r, "invalid verify request", dErrors.New(dErrors.CodeMissingToken, "missing id_token"))
		return
	}
	resp, err := h.auth.LoginWithIDToken(r.Context(), req.IDToken)
	if err != nil {
		h.writeError(w, r, "id token login failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSessionInit(w http.ResponseWriter, r *http.Request) {
	var req sessionInitRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.auth.InitSession(r.Context(), req.CodeVerifier)
	if err != nil {
		h.writeError(w, r, "failed to start auth session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSessionPoll(w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("sid")
	if sid == "" {
		h.writeError(w, r, "poll without sid", dErrors.New(dErrors.CodeBadRequest, "sid is required"))
		return
	}
	res, err := h.auth.PollSession(r.Context(), sid)
	if err != nil {
		h.writeError(w, r, "failed to poll auth session", err)
		return
	}

	switch res.Status {
	case models.SessionStatusNotFound:
		httputil.WriteError(w, dErrors.New(dErrors.CodeSessionNotFound, "session not found"))
	case models.SessionStatusReady:
		httputil.WriteJSON(w, http.StatusOK, res.Result)
	case models.SessionStatusError:
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error:            "auth_failed",
			ErrorDescription: res.Error,
		})
	default:
		httputil.WriteJSON(w, http.StatusAccepted, messageResponse{Message: "pending"})
	}
}

var callbackPage = template.Must(template.New("callback").Parse(
	`<!doctype html><html><head><meta charset="utf-8"><title>Auth</title></head>` +
		`<body><p>{{.Title}}</p>{{if .Detail}}<p>{{.Detail}}</p>{{end}}` +
		`<p>You can close this window and return to the game.</p></body></html>`,
))

type callbackView struct {
	Title  string
	Detail string
}

// handleGoogleCallback finishes the browser flow. The outcome is delivered to
// the game client through polling; the page only tells the user to go back.
func (h *Handler) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	err := h.auth.HandleCallback(r.Context(), models.CallbackRequest{
		State:            q.Get("state"),
		Code:             q.Get("code"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})

	status := http.StatusOK
	view := callbackView{Title: "Login complete"}
	if err != nil {
		h.logError(r, "google callback failed", err)
		var body httputil.ErrorResponse
		status, body = httputil.ErrorBody(err)
		view = callbackView{Title: "Login failed", Detail: body.ErrorDescription}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := callbackPage.Execute(w, view); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render callback page", "error", err)
	}
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.auth.HandleRefresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(w, r, "refresh failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.auth.HandleLogout(ctx, middleware.GetUserID(ctx)); err != nil {
		h.writeError(w, r, "logout failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, "invalid request body", dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logError(r, msg, err)
	httputil.WriteError(w, err)
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	ctx := r.Context()
	status, _ := httputil.ErrorBody(err)
	attrs := []any{"error", err, "request_id", middleware.GetRequestID(ctx)}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}
