package vision

import "errors"

// Common vision analysis errors
var (
	// ErrInvalidConfig indicates the analyzer was constructed with bad configuration
	ErrInvalidConfig = errors.New("invalid vision configuration")

	// ErrEmptyImage indicates an analysis was requested with no image data
	ErrEmptyImage = errors.New("image data cannot be empty")

	// ErrInvalidResponse indicates the model returned something we could not use
	ErrInvalidResponse = errors.New("invalid response from vision model")

	// ErrContentBlocked indicates the model refused the image on safety grounds
	ErrContentBlocked = errors.New("image blocked by safety filters")
)
