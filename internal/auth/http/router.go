package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/seonho/rest-security-jwt/internal/auth/domain"
	"github.com/seonho/rest-security-jwt/internal/auth/service"
	commonhttp "github.com/seonho/rest-security-jwt/internal/common/http"
	"github.com/seonho/rest-security-jwt/internal/common/logger"
)

type signUpRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=20"`
	Email    string   `json:"email" validate:"required,email,max=50"`
	Password string   `json:"password" validate:"required,min=6,max=40"`
	Role     []string `json:"role" validate:"omitempty,dive,max=20"`
}

type signInRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type signInResponse struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"tokenType"`
}

type refreshResponse struct {
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
}

type principalResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

type Handler struct {
	auth       *service.AuthService
	translator *commonhttp.Translator
	validate   *validator.Validate
	timeout    time.Duration
	log        *logger.Logger
}

// NewHandler builds the auth router with the authentication filter applied to
// every route and the exception translator wrapped outermost, so failures
// inside the filter itself still come back as structured JSON.
func NewHandler(
	auth *service.AuthService,
	translator *commonhttp.Translator,
	timeout time.Duration,
	log *logger.Logger,
) http.Handler {
	h := &Handler{
		auth:       auth,
		translator: translator,
		validate:   validator.New(),
		timeout:    timeout,
		log:        log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.HealthHandler(log))
	mux.HandleFunc("/api/auth/signup", h.signUp)
	mux.HandleFunc("/api/auth/signin", h.signIn)
	mux.HandleFunc("/api/auth/signout", h.signOut)
	mux.HandleFunc("/api/auth/access-token", h.accessToken)
	mux.HandleFunc("/api/user/me", RequireAuth(translator, h.me))

	authFilter := AuthenticationFilter(auth, log)
	return translator.Middleware(authFilter(mux))
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		commonhttp.WriteErrorBody(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req signUpRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.Warnf("signup failed: invalid json: %v", err)
		commonhttp.WriteErrorBody(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		commonhttp.WriteErrorBody(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	commonhttp.WithTimeout(h.timeout)(func(w http.ResponseWriter, r *http.Request) {
		if err := h.auth.SignUp(r.Context(), req.Username, req.Email, req.Password, req.Role); err != nil {
			h.translator.Translate(w, r, err)
			return
		}
		commonhttp.WriteJSON(w, http.StatusOK, commonhttp.MessageResponse{Message: "USER REGISTERED SUCCESSFULLY!"})
	})(w, r)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		commonhttp.WriteErrorBody(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req signInRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.log.Warnf("signin failed: invalid json: %v", err)
		commonhttp.WriteErrorBody(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		commonhttp.WriteErrorBody(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}

	commonhttp.WithTimeout(h.timeout)(func(w http.ResponseWriter, r *http.Request) {
		result, err := h.auth.SignIn(r.Context(), req.Username, req.Password)
		if err != nil {
			h.translator.Translate(w, r, err)
			return
		}

		commonhttp.WriteJSON(w, http.StatusOK, signInResponse{
			ID:           result.UserID,
			Username:     result.Username,
			Email:        result.Email,
			Roles:        result.Roles,
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			TokenType:    "Bearer",
		})
	})(w, r)
}

// signOut revokes the caller's refresh token when a principal is present and
// reports success either way, so a stale access token still gets a clean exit.
func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		commonhttp.WriteErrorBody(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	commonhttp.WithTimeout(h.timeout)(func(w http.ResponseWriter, r *http.Request) {
		if principal, ok := PrincipalFromContext(r.Context()); ok {
			if err := h.auth.SignOut(r.Context(), principal); err != nil {
				h.translator.Translate(w, r, err)
				return
			}
		}
		commonhttp.WriteJSON(w, http.StatusOK, commonhttp.MessageResponse{Message: "You've been signed out!"})
	})(w, r)
}

func (h *Handler) accessToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		commonhttp.WriteErrorBody(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rawToken := r.Header.Get("Refresh-Token")

	commonhttp.WithTimeout(h.timeout)(func(w http.ResponseWriter, r *http.Request) {
		result, err := h.auth.RefreshAccessToken(r.Context(), rawToken)
		if err != nil {
			h.translator.Translate(w, r, err)
			return
		}

		commonhttp.WriteJSON(w, http.StatusOK, refreshResponse{
			Message:      "Token is refreshed successfully!",
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			TokenType:    "Bearer",
		})
	})(w, r)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		commonhttp.WriteErrorBody(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	commonhttp.WriteJSON(w, http.StatusOK, principalOf(principal))
}

func principalOf(p domain.Principal) principalResponse {
	return principalResponse{
		ID:       string(p.UserID),
		Username: p.Username,
		Email:    p.Email,
		Roles:    p.Roles,
	}
}

func validationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		return fmt.Sprintf("invalid value for field '%s' (%s)", fe.Field(), fe.Tag())
	}
	return "invalid request body"
}
