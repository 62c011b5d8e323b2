package api

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/voltlab/voltlab-api/internal/api/middleware"
	"github.com/voltlab/voltlab-api/internal/api/shared"
	"github.com/voltlab/voltlab-api/internal/domain"
	"github.com/voltlab/voltlab-api/internal/store"
)

// FeedbackHandler accepts user feedback submissions.
type FeedbackHandler struct {
	feedbackStore store.FeedbackStore
	validator     *validator.Validate
	logger        *slog.Logger
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(feedbackStore store.FeedbackStore, logger *slog.Logger) *FeedbackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackHandler{
		feedbackStore: feedbackStore,
		validator:     validator.New(),
		logger:        logger.With(slog.String("component", "feedback_handler")),
	}
}

// Submit handles POST /api/feedback. The endpoint is public; when the
// request carries a valid token the feedback is linked to the account.
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	var userID *uuid.UUID
	if id, ok := middleware.GetUserID(r); ok {
		userID = &id
	}

	fb, err := domain.NewFeedback(userID, req.Email, req.Description)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid feedback data")
		return
	}

	if err := h.feedbackStore.Create(r.Context(), fb); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to submit feedback", err)
		return
	}

	h.logger.Info("feedback received", slog.String("feedback_id", fb.ID.String()))

	shared.RespondWithJSON(w, r, http.StatusCreated, FeedbackResponse{
		FeedbackID: fb.ID,
		Message:    "Thanks for the feedback",
	})
}
