package department

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariachen2020/timerecord/internal"
	"github.com/ariachen2020/timerecord/internal/transport"
	"github.com/ariachen2020/timerecord/pkg/logger"
)

type ServiceAPI interface {
	Authenticate(dto LoginDTO) (AuthTokens, error)
	RefreshTokens(refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Department, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.L()),
		Service:     svc,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.Service.Authenticate(dto)
	if err != nil {
		h.Logger.Warn("department authentication failed", "error", err, "username", dto.Username)

		switch {
		case errors.Is(err, ErrInvalidCredentials):
			h.HandleServiceError(w, internal.NewUnauthorizedError(
				"invalid username or password", internal.ErrCodeInvalidCredentials))
		default:
			var verr ValidationError
			if errors.As(err, &verr) {
				h.HandleServiceError(w, internal.NewValidationError(verr.Error(), internal.ErrCodeValidationFailed))
			} else {
				h.WriteError(w, http.StatusInternalServerError, "internal server error")
			}
		}
		return
	}

	h.Logger.Info("department logged in", "department", tokens.Department.Code)
	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokens, err := h.Service.RefreshTokens(dto.RefreshToken)
	if err != nil {
		h.Logger.Warn("token refresh failed", "error", err)

		switch {
		case errors.Is(err, ErrTokenExpired):
			h.HandleServiceError(w, internal.NewUnauthorizedError(
				"refresh token expired", internal.ErrCodeTokenExpired))
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrUnknownDepartment):
			h.HandleServiceError(w, internal.NewUnauthorizedError(
				"invalid refresh token", internal.ErrCodeInvalidToken))
		default:
			h.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

// Me returns the acting department resolved from the bearer token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	dept, ok := FromContext(r.Context())
	if !ok || dept == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.WriteJSON(w, http.StatusOK, dept)
}

// AuthMiddleware resolves the acting department from the Authorization
// header and stores it in the request context. Handlers downstream pass it
// to services explicitly.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		dept, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Warn("token validation failed", "error", err)
			h.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := logger.With(r.Context(), "department", dept.Code)
		next.ServeHTTP(w, r.WithContext(NewContext(ctx, dept)))
	})
}
