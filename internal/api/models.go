package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/voltlab/voltlab-api/internal/domain"
	"github.com/voltlab/voltlab-api/internal/platform/vision"
)

// Common request/response structures

// SendCodeRequest defines the payload for the verification code endpoint.
type SendCodeRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Scene       string `json:"scene"        validate:"required,oneof=register reset_password"`
}

// SendCodeResponse defines the successful response for the code endpoint.
// The phone number is echoed back masked.
type SendCodeResponse struct {
	Message          string `json:"message"`
	PhoneNumber      string `json:"phone_number"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// RateLimitResponse tells the client how long to wait before the next
// code request.
type RateLimitResponse struct {
	Error       string `json:"error"`
	WaitSeconds int    `json:"wait_seconds"`
}

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	PhoneNumber      string `json:"phone_number"      validate:"required"`
	Password         string `json:"password"          validate:"required,min=6,max=72"`
	VerificationCode string `json:"verification_code" validate:"required"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Password    string `json:"password"     validate:"required,min=1"`
}

// ResetPasswordRequest defines the payload for the password reset endpoint.
type ResetPasswordRequest struct {
	PhoneNumber      string `json:"phone_number"      validate:"required"`
	VerificationCode string `json:"verification_code" validate:"required"`
	NewPassword      string `json:"new_password"      validate:"required,min=6,max=72"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID uuid.UUID `json:"user_id"`

	// Token is the JWT used for API authorization
	Token string `json:"token"`

	// ExpiresAt is the ISO 8601 timestamp when the token expires
	ExpiresAt string `json:"expires_at,omitempty"`
}

// UserResponse is the public view of a user account.
type UserResponse struct {
	ID           uuid.UUID  `json:"id"`
	PhoneNumber  string     `json:"phone_number"`
	IsVIP        bool       `json:"is_vip"`
	VIPExpiresAt *time.Time `json:"vip_expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewUserResponse builds a UserResponse with the phone number masked.
func NewUserResponse(user *domain.User, now time.Time) UserResponse {
	return UserResponse{
		ID:           user.ID,
		PhoneNumber:  domain.MaskPhoneNumber(user.PhoneNumber),
		IsVIP:        user.IsVIPActive(now),
		VIPExpiresAt: user.VIPExpiresAt,
		CreatedAt:    user.CreatedAt,
	}
}

// MeResponse defines the response for the current-user endpoint.
// RemainingToday is -1 for users without a quota.
type MeResponse struct {
	User           UserResponse `json:"user"`
	RemainingToday int          `json:"remaining_today"`
}

// AnalysisResponse defines the response for the circuit upload endpoint.
// Durations are reported in milliseconds; -1 means the stage failed before
// a duration could be recorded. A failed analysis fills AnalysisError and
// leaves the element fields empty; the request itself still succeeds.
type AnalysisResponse struct {
	Path    string `json:"path"`
	WaitMS  int64  `json:"wait_ms"`
	EmbedMS int64  `json:"embed_ms"`
	AIMS    int64  `json:"ai_ms"`
	TotalMS int64  `json:"total_ms"`

	Elements    []vision.Element `json:"elements"`
	Confidence  float64          `json:"confidence"`
	Assumptions []string         `json:"assumptions,omitempty"`
	Summary     string           `json:"summary,omitempty"`

	AnalysisError string `json:"analysis_error,omitempty"`
}

// CreateAnimationRequest defines the payload for saving an animation.
type CreateAnimationRequest struct {
	Title        string          `json:"title"         validate:"required,min=1,max=100"`
	Description  string          `json:"description"   validate:"max=500"`
	ThumbnailURL string          `json:"thumbnail_url" validate:"max=500"`
	SceneData    json.RawMessage `json:"scene_data"    validate:"required"`
}

// PublishAnimationRequest defines the optional payload for the publish
// endpoint. ShowAuthor defaults to true when the body is omitted.
type PublishAnimationRequest struct {
	ShowAuthor *bool `json:"show_author,omitempty"`
}

// AnimationSummary is the list view of an animation; scene data is only
// returned by the detail endpoints.
type AnimationSummary struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Published    bool      `json:"published"`
	LikeCount    int       `json:"like_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewAnimationSummary builds the list view of an animation.
func NewAnimationSummary(anim *domain.Animation) AnimationSummary {
	return AnimationSummary{
		ID:           anim.ID,
		Title:        anim.Title,
		ThumbnailURL: anim.ThumbnailURL,
		Published:    anim.Published,
		LikeCount:    anim.LikeCount,
		CreatedAt:    anim.CreatedAt,
	}
}

// AnimationListResponse defines the response for animation list endpoints.
type AnimationListResponse struct {
	Animations []AnimationSummary `json:"animations"`
}

// AnimationDetailResponse defines the response for animation detail
// endpoints. AuthorName is only set on shared/plaza views when the owner
// chose to show it, and is always masked.
type AnimationDetailResponse struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	SceneData   json.RawMessage `json:"scene_data"`
	LikeCount   int             `json:"like_count"`
	AuthorName  string          `json:"author_name,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewAnimationDetailResponse builds the detail view of an animation.
func NewAnimationDetailResponse(anim *domain.Animation) AnimationDetailResponse {
	return AnimationDetailResponse{
		ID:          anim.ID,
		Title:       anim.Title,
		Description: anim.Description,
		SceneData:   anim.SceneData,
		LikeCount:   anim.LikeCount,
		CreatedAt:   anim.CreatedAt,
	}
}

// CreateAnimationResponse defines the response for the save and fork
// endpoints.
type CreateAnimationResponse struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

// ShareLinkResponse defines the response for the share-link endpoint.
type ShareLinkResponse struct {
	ShareCode string `json:"share_code"`
	ShareURL  string `json:"share_url"`
}

// FeedbackRequest defines the payload for submitting feedback.
type FeedbackRequest struct {
	Email       string `json:"email"       validate:"required,email"`
	Description string `json:"description" validate:"required,max=2000"`
}

// FeedbackResponse defines the response for the feedback endpoint.
type FeedbackResponse struct {
	FeedbackID uuid.UUID `json:"feedback_id"`
	Message    string    `json:"message"`
}

// CheckLimitResponse defines the response for the quota check endpoint.
type CheckLimitResponse struct {
	Allowed   bool `json:"allowed"`
	IsVIP     bool `json:"is_vip"`
	TodayUsed int  `json:"today_used"`
	Remaining int  `json:"remaining"`
}

// GrantVIPRequest defines the payload for granting a membership.
// Days == 0 grants an effectively permanent membership.
type GrantVIPRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Days        int    `json:"days"         validate:"gte=0"`
}

// GrantVIPResponse defines the response for the grant endpoint.
type GrantVIPResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	VIPExpiresAt time.Time `json:"vip_expires_at"`
}
