package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/voltlab/voltlab-api/internal/api/middleware"
	"github.com/voltlab/voltlab-api/internal/api/shared"
	"github.com/voltlab/voltlab-api/internal/config"
	"github.com/voltlab/voltlab-api/internal/domain"
	"github.com/voltlab/voltlab-api/internal/platform/sms"
	"github.com/voltlab/voltlab-api/internal/service/auth"
	"github.com/voltlab/voltlab-api/internal/service/membership"
	"github.com/voltlab/voltlab-api/internal/store"
	"github.com/voltlab/voltlab-api/internal/verification"
)

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	userStore        store.UserStore
	codes            *verification.Store
	smsSender        sms.Sender
	jwtService       auth.JWTService
	passwordHasher   auth.PasswordHasher
	passwordVerifier auth.PasswordVerifier
	quota            *membership.Service
	authCfg          config.AuthConfig
	validator        *validator.Validate
	logger           *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	userStore store.UserStore,
	codes *verification.Store,
	smsSender sms.Sender,
	jwtService auth.JWTService,
	passwordHasher auth.PasswordHasher,
	passwordVerifier auth.PasswordVerifier,
	quota *membership.Service,
	authCfg config.AuthConfig,
	logger *slog.Logger,
) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		userStore:        userStore,
		codes:            codes,
		smsSender:        smsSender,
		jwtService:       jwtService,
		passwordHasher:   passwordHasher,
		passwordVerifier: passwordVerifier,
		quota:            quota,
		authCfg:          authCfg,
		validator:        validator.New(),
		logger:           logger.With(slog.String("component", "auth_handler")),
	}
}

// codeTTL returns the configured verification code lifetime.
func (h *AuthHandler) codeTTL() time.Duration {
	return time.Duration(h.authCfg.CodeExpireMinutes) * time.Minute
}

// codeCooldown returns the minimum interval between code sends.
func (h *AuthHandler) codeCooldown() time.Duration {
	return time.Duration(h.authCfg.CodeCooldownSeconds) * time.Second
}

// SendCode handles the /api/auth/send-code endpoint. It generates a
// verification code for the requested scene and delivers it by SMS.
func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req SendCodeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if !domain.ValidatePhoneNumber(req.PhoneNumber) {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(domain.ErrInvalidPhoneNumber))
		return
	}

	scene := verification.Scene(req.Scene)
	code, err := h.codes.GenerateAndStore(
		req.PhoneNumber,
		scene,
		h.authCfg.CodeLength,
		h.codeTTL(),
		h.codeCooldown(),
	)
	if err != nil {
		var rateErr *verification.RateLimitError
		if errors.As(err, &rateErr) {
			shared.RespondWithJSON(w, r, http.StatusTooManyRequests, RateLimitResponse{
				Error:       GetSafeErrorMessage(err),
				WaitSeconds: rateErr.WaitSeconds,
			})
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate verification code", err)
		return
	}

	if err := h.smsSender.Send(r.Context(), req.PhoneNumber, code, scene); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to send verification code", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SendCodeResponse{
		Message:          "Verification code sent",
		PhoneNumber:      domain.MaskPhoneNumber(req.PhoneNumber),
		ExpiresInSeconds: int(h.codeTTL().Seconds()),
	})
}

// Register handles the /api/auth/register endpoint.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := h.codes.Verify(req.PhoneNumber, verification.SceneRegister, req.VerificationCode); err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	user, err := domain.NewUser(req.PhoneNumber, req.Password)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user data")
		return
	}

	hashed, err := h.passwordHasher.Hash(req.Password)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to create user", err)
		return
	}
	user.HashedPassword = hashed
	user.Password = ""

	if err := h.userStore.Create(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrPhoneExists) {
			shared.RespondWithError(w, r, http.StatusConflict, GetSafeErrorMessage(err))
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to create user", err)
		return
	}

	h.respondWithToken(w, r, user, http.StatusCreated)
}

// Login handles the /api/auth/login endpoint.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, err := h.userStore.GetByPhone(r.Context(), req.PhoneNumber)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Same response as a wrong password so account existence
			// stays hidden.
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to authenticate user", err)
		return
	}

	if err := h.passwordVerifier.Compare(user.HashedPassword, req.Password); err != nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := h.userStore.UpdateLastLogin(r.Context(), user.ID, time.Now().UTC()); err != nil {
		// Login still succeeds; the timestamp is informational.
		h.logger.Warn("failed to update last login",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
	}

	h.respondWithToken(w, r, user, http.StatusOK)
}

// ResetPassword handles the /api/auth/reset-password endpoint.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := h.codes.Verify(req.PhoneNumber, verification.SceneResetPassword, req.VerificationCode); err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	user, err := h.userStore.GetByPhone(r.Context(), req.PhoneNumber)
	if err != nil {
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	hashed, err := h.passwordHasher.Hash(req.NewPassword)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to reset password", err)
		return
	}

	if err := h.userStore.UpdatePassword(r.Context(), user.ID, hashed); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
		"message": "Password reset successfully",
	})
}

// Me handles the /api/auth/me endpoint. Requires authentication.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	remaining, err := h.quota.Remaining(r.Context(), user)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load usage", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MeResponse{
		User:           NewUserResponse(user, time.Now().UTC()),
		RemainingToday: remaining,
	})
}

// respondWithToken issues a JWT for the user and writes the auth response.
func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, user *domain.User, status int) {
	token, err := h.jwtService.GenerateToken(r.Context(), user.ID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}

	expiresAt := time.Now().
		Add(time.Duration(h.authCfg.TokenLifetimeMinutes) * time.Minute).
		UTC().
		Format(time.RFC3339)

	shared.RespondWithJSON(w, r, status, AuthResponse{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
