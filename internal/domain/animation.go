package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Animation validation errors
var (
	ErrEmptyAnimationID    = errors.New("animation ID cannot be empty")
	ErrEmptyAnimationTitle = errors.New("animation title cannot be empty")
	ErrTitleTooLong        = errors.New("animation title must be at most 100 characters")
	ErrDescriptionTooLong  = errors.New("animation description must be at most 500 characters")
	ErrEmptySceneData      = errors.New("animation scene data cannot be empty")
)

// Animation is a saved physics animation: the scene the user authored in
// the editor, plus library metadata. Scene data is an opaque JSON document
// produced and consumed by the frontend.
type Animation struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	ThumbnailURL string          `json:"thumbnail_url,omitempty"`
	SceneData    json.RawMessage `json:"scene_data,omitempty"`

	// Published animations appear in the public plaza and can be forked.
	Published  bool `json:"published"`
	ShowAuthor bool `json:"show_author"`
	LikeCount  int  `json:"like_count"`

	// ForkedFrom is the source animation when this one was forked.
	ForkedFrom *uuid.UUID `json:"forked_from,omitempty"`

	// ShareCode is set once a share link has been generated. Nil until then.
	ShareCode *string `json:"share_code,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAnimation creates a private Animation owned by userID. Returns an
// error if validation fails.
func NewAnimation(userID uuid.UUID, title, description, thumbnailURL string, sceneData json.RawMessage) (*Animation, error) {
	now := time.Now().UTC()
	anim := &Animation{
		ID:           uuid.New(),
		UserID:       userID,
		Title:        title,
		Description:  description,
		ThumbnailURL: thumbnailURL,
		SceneData:    sceneData,
		ShowAuthor:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := anim.Validate(); err != nil {
		return nil, err
	}
	return anim, nil
}

// Validate checks if the Animation has valid data.
func (a *Animation) Validate() error {
	if a.ID == uuid.Nil {
		return ErrEmptyAnimationID
	}
	if a.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if a.Title == "" {
		return ErrEmptyAnimationTitle
	}
	if len([]rune(a.Title)) > 100 {
		return ErrTitleTooLong
	}
	if len([]rune(a.Description)) > 500 {
		return ErrDescriptionTooLong
	}
	if len(a.SceneData) == 0 {
		return ErrEmptySceneData
	}
	return nil
}

// Fork creates a private copy of the animation owned by userID. The copy
// gets a fresh ID, a "(copy)" title suffix, and no share code.
func (a *Animation) Fork(userID uuid.UUID) *Animation {
	now := time.Now().UTC()
	sourceID := a.ID
	title := a.Title + " (copy)"
	if runes := []rune(title); len(runes) > 100 {
		title = string(runes[:100])
	}
	return &Animation{
		ID:           uuid.New(),
		UserID:       userID,
		Title:        title,
		Description:  a.Description,
		ThumbnailURL: a.ThumbnailURL,
		SceneData:    a.SceneData,
		ShowAuthor:   true,
		ForkedFrom:   &sourceID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
