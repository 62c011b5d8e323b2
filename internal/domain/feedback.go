package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Feedback validation errors
var (
	ErrEmptyFeedbackEmail       = errors.New("feedback email cannot be empty")
	ErrEmptyFeedbackDescription = errors.New("feedback description cannot be empty")
	ErrFeedbackTooLong          = errors.New("feedback description must be at most 2000 characters")
)

// Feedback status values.
const (
	FeedbackStatusPending    = "pending"
	FeedbackStatusProcessing = "processing"
	FeedbackStatusResolved   = "resolved"
	FeedbackStatusClosed     = "closed"
)

// Feedback is a user-submitted problem report. UserID is nil when the
// submitter was not logged in.
type Feedback struct {
	ID          uuid.UUID  `json:"id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	Email       string     `json:"email"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewFeedback creates a pending Feedback. Returns an error if validation
// fails.
func NewFeedback(userID *uuid.UUID, email, description string) (*Feedback, error) {
	fb := &Feedback{
		ID:          uuid.New(),
		UserID:      userID,
		Email:       email,
		Description: description,
		Status:      FeedbackStatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	if err := fb.Validate(); err != nil {
		return nil, err
	}
	return fb, nil
}

// Validate checks if the Feedback has valid data.
func (f *Feedback) Validate() error {
	if f.Email == "" {
		return ErrEmptyFeedbackEmail
	}
	if f.Description == "" {
		return ErrEmptyFeedbackDescription
	}
	if len([]rune(f.Description)) > 2000 {
		return ErrFeedbackTooLong
	}
	return nil
}
