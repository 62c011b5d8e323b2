package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/voltlab/voltlab-api/internal/api/middleware"
	"github.com/voltlab/voltlab-api/internal/api/shared"
	"github.com/voltlab/voltlab-api/internal/domain"
	"github.com/voltlab/voltlab-api/internal/service/membership"
	"github.com/voltlab/voltlab-api/internal/store"
)

// MembershipHandler exposes membership status, quota checks, and grants.
type MembershipHandler struct {
	userStore store.UserStore
	quota     *membership.Service
	validator *validator.Validate
	logger    *slog.Logger
}

// NewMembershipHandler creates a new MembershipHandler.
func NewMembershipHandler(userStore store.UserStore, quota *membership.Service, logger *slog.Logger) *MembershipHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MembershipHandler{
		userStore: userStore,
		quota:     quota,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "membership_handler")),
	}
}

// Status handles GET /api/membership/status.
func (h *MembershipHandler) Status(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	stats, err := h.quota.Stats(r.Context(), user)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load membership status", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// CheckLimit handles GET /api/membership/check-limit. Unlike the upload
// path it only reports whether an analysis would be admitted; nothing is
// consumed.
func (h *MembershipHandler) CheckLimit(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	stats, err := h.quota.Stats(r.Context(), user)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to check limit", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CheckLimitResponse{
		Allowed:   stats.Remaining != 0,
		IsVIP:     stats.IsVIP,
		TodayUsed: stats.TodayUsed,
		Remaining: stats.Remaining,
	})
}

// Grant handles POST /api/membership/grant. An active membership is
// extended from its current expiry; days == 0 grants an effectively
// permanent membership.
func (h *MembershipHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req GrantVIPRequest
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
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	expiresAt := membership.ExtendExpiry(user.VIPExpiresAt, req.Days, time.Now().UTC())
	if err := h.userStore.UpdateVIPExpiry(r.Context(), user.ID, &expiresAt); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	h.logger.Info("membership granted",
		slog.String("user_id", user.ID.String()),
		slog.Int("days", req.Days),
		slog.Time("expires_at", expiresAt))

	shared.RespondWithJSON(w, r, http.StatusOK, GrantVIPResponse{
		UserID:       user.ID,
		VIPExpiresAt: expiresAt,
	})
}

func (h *MembershipHandler) currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}

	user, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return nil, false
	}
	return user, true
}
