package api

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/voltlab/voltlab-api/internal/api/middleware"
	"github.com/voltlab/voltlab-api/internal/api/shared"
	"github.com/voltlab/voltlab-api/internal/config"
	"github.com/voltlab/voltlab-api/internal/domain"
	"github.com/voltlab/voltlab-api/internal/service/membership"
	"github.com/voltlab/voltlab-api/internal/store"
)

const (
	shareCodeLength   = 6
	shareCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	// shareCodeAttempts bounds retries on a share code collision.
	shareCodeAttempts = 5

	plazaListLimit = 50
)

// AnimationHandler handles the animation library: saving, listing,
// publishing to the plaza, forking, and share links.
type AnimationHandler struct {
	animations store.AnimationStore
	userStore  store.UserStore
	quota      *membership.Service
	serverCfg  config.ServerConfig
	validator  *validator.Validate
	logger     *slog.Logger
}

// NewAnimationHandler creates a new AnimationHandler with the given
// dependencies.
func NewAnimationHandler(
	animations store.AnimationStore,
	userStore store.UserStore,
	quota *membership.Service,
	serverCfg config.ServerConfig,
	logger *slog.Logger,
) *AnimationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnimationHandler{
		animations: animations,
		userStore:  userStore,
		quota:      quota,
		serverCfg:  serverCfg,
		validator:  validator.New(),
		logger:     logger.With(slog.String("component", "animation_handler")),
	}
}

// Create handles POST /api/animations. Saving an animation counts against
// the daily quota; active VIP members are unlimited.
func (h *AnimationHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req CreateAnimationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := h.quota.CheckQuota(r.Context(), user); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	anim, err := domain.NewAnimation(user.ID, req.Title, req.Description, req.ThumbnailURL, req.SceneData)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid animation data")
		return
	}

	if err := h.animations.Create(r.Context(), anim); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	if err := h.quota.RecordUsage(r.Context(), user.ID); err != nil {
		h.logger.Warn("failed to record usage",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, CreateAnimationResponse{
		ID:      anim.ID,
		Message: "Animation saved",
	})
}

// Mine handles GET /api/animations/mine.
func (h *AnimationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	animations, err := h.animations.ListByUser(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to list animations", err)
		return
	}

	resp := AnimationListResponse{Animations: make([]AnimationSummary, 0, len(animations))}
	for _, anim := range animations {
		resp.Animations = append(resp.Animations, NewAnimationSummary(anim))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Detail handles GET /api/animations/{animationID}. Owner only; an
// animation owned by someone else reads as not found.
func (h *AnimationHandler) Detail(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	anim, ok := h.ownedAnimation(w, r, userID)
	if !ok {
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewAnimationDetailResponse(anim))
}

// Delete handles DELETE /api/animations/{animationID}.
func (h *AnimationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	animID, ok := h.animationID(w, r)
	if !ok {
		return
	}

	if err := h.animations.Delete(r.Context(), animID, userID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"message": "Animation deleted"})
}

// Publish handles POST /api/animations/{animationID}/publish.
func (h *AnimationHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true)
}

// Unpublish handles POST /api/animations/{animationID}/unpublish.
func (h *AnimationHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false)
}

func (h *AnimationHandler) setPublished(w http.ResponseWriter, r *http.Request, published bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	animID, ok := h.animationID(w, r)
	if !ok {
		return
	}

	// The body is optional; author visibility defaults to shown.
	showAuthor := true
	var req PublishAnimationRequest
	if err := shared.DecodeJSON(r, &req); err == nil && req.ShowAuthor != nil {
		showAuthor = *req.ShowAuthor
	}

	if err := h.animations.SetPublished(r.Context(), animID, userID, published, showAuthor); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	msg := "Published to the plaza"
	if !published {
		msg = "Removed from the plaza"
	}
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"message": msg})
}

// ShareLink handles POST /api/animations/{animationID}/share-link.
// Share links are a member feature.
func (h *AnimationHandler) ShareLink(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if !user.IsVIPActive(time.Now().UTC()) {
		shared.RespondWithError(w, r, http.StatusForbidden,
			"Share links are a member feature")
		return
	}

	anim, ok := h.ownedAnimation(w, r, user.ID)
	if !ok {
		return
	}

	// An existing code is stable; regenerating would break old links.
	if anim.ShareCode != nil {
		shared.RespondWithJSON(w, r, http.StatusOK, h.shareLinkResponse(*anim.ShareCode))
		return
	}

	var code string
	for attempt := 0; ; attempt++ {
		code = generateShareCode()
		err := h.animations.SetShareCode(r.Context(), anim.ID, user.ID, code)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrShareCodeExists) && attempt < shareCodeAttempts {
			continue
		}
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.shareLinkResponse(code))
}

// Plaza handles GET /api/plaza/animations. Public.
func (h *AnimationHandler) Plaza(w http.ResponseWriter, r *http.Request) {
	animations, err := h.animations.ListPublished(r.Context(), plazaListLimit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to list animations", err)
		return
	}

	resp := AnimationListResponse{Animations: make([]AnimationSummary, 0, len(animations))}
	for _, anim := range animations {
		resp.Animations = append(resp.Animations, NewAnimationSummary(anim))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Fork handles POST /api/plaza/animations/{animationID}/fork. Only
// published animations can be forked.
func (h *AnimationHandler) Fork(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	animID, ok := h.animationID(w, r)
	if !ok {
		return
	}

	source, err := h.animations.GetByID(r.Context(), animID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}
	if !source.Published {
		// Private animations fork only for their owner, and read as
		// missing to everyone else.
		if source.UserID != userID {
			shared.RespondWithError(w, r, http.StatusNotFound,
				GetSafeErrorMessage(store.ErrAnimationNotFound))
			return
		}
	}

	fork := source.Fork(userID)
	if err := h.animations.Create(r.Context(), fork); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, CreateAnimationResponse{
		ID:      fork.ID,
		Message: "Saved to my animations",
	})
}

// Play handles GET /api/play/{shareCode}. Public; this is what a share
// link resolves to.
func (h *AnimationHandler) Play(w http.ResponseWriter, r *http.Request) {
	code := strings.ToLower(chi.URLParam(r, "shareCode"))
	if code == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Share code required")
		return
	}

	anim, err := h.animations.GetByShareCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrAnimationNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound,
				"Share link does not exist or has expired")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to load animation", err)
		return
	}

	resp := NewAnimationDetailResponse(anim)
	if anim.ShowAuthor {
		if author, err := h.userStore.GetByID(r.Context(), anim.UserID); err == nil {
			resp.AuthorName = domain.MaskPhoneNumber(author.PhoneNumber)
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// currentUser loads the authenticated user, writing the error response on
// failure.
func (h *AnimationHandler) currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
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

// animationID parses the URL parameter, writing the error response on
// failure.
func (h *AnimationHandler) animationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "animationID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid animation ID")
		return uuid.Nil, false
	}
	return id, true
}

// ownedAnimation loads the animation and enforces ownership. A foreign
// animation reads as not found.
func (h *AnimationHandler) ownedAnimation(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*domain.Animation, bool) {
	animID, ok := h.animationID(w, r)
	if !ok {
		return nil, false
	}

	anim, err := h.animations.GetByID(r.Context(), animID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return nil, false
	}
	if anim.UserID != userID {
		shared.RespondWithError(w, r, http.StatusNotFound,
			GetSafeErrorMessage(store.ErrAnimationNotFound))
		return nil, false
	}
	return anim, true
}

func (h *AnimationHandler) shareLinkResponse(code string) ShareLinkResponse {
	return ShareLinkResponse{
		ShareCode: code,
		ShareURL:  h.serverCfg.FrontendBaseURL + "/play/" + code,
	}
}

func generateShareCode() string {
	b := make([]byte, shareCodeLength)
	for i := range b {
		b[i] = shareCodeAlphabet[rand.IntN(len(shareCodeAlphabet))]
	}
	return string(b)
}
