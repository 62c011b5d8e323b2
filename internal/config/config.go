package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Admission AdmissionConfig `mapstructure:"admission" validate:"required"`
	Vision    VisionConfig    `mapstructure:"vision"    validate:"required"`
	SMS       SMSConfig       `mapstructure:"sms"`
	Upload    UploadConfig    `mapstructure:"upload"    validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// FrontendBaseURL is prepended to generated share links. Empty yields
	// relative links.
	FrontendBaseURL string `mapstructure:"frontend_base_url"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains authentication and verification-code settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`

	// Verification code issuance. Codes are short-lived numeric strings
	// delivered over SMS; the cooldown bounds resend frequency per
	// (phone, scene) key.
	CodeLength          int `mapstructure:"code_length"           validate:"required,gte=4,lte=8"`
	CodeExpireMinutes   int `mapstructure:"code_expire_minutes"   validate:"required,gt=0"`
	CodeCooldownSeconds int `mapstructure:"code_cooldown_seconds" validate:"required,gt=0"`
}

// AdmissionConfig bounds the expensive image-analysis path.
type AdmissionConfig struct {
	// MaxSessions is the number of analysis sessions allowed to run
	// concurrently. Each session runs two units (preload + AI analysis)
	// on the worker pool.
	MaxSessions int `mapstructure:"max_sessions" validate:"required,gt=0"`

	// MaxWaiters caps the admission queue. Callers arriving when the queue
	// is full are rejected with a too-busy error instead of waiting
	// indefinitely.
	MaxWaiters int `mapstructure:"max_waiters" validate:"required,gt=0"`

	// WorkerCount sizes the shared pool that executes session units.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`

	// UnitTimeoutSeconds bounds a single unit's execution. Zero disables
	// the timeout.
	UnitTimeoutSeconds int `mapstructure:"unit_timeout_seconds" validate:"gte=0"`
}

// VisionConfig contains settings for the multimodal circuit analyzer.
type VisionConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`

	// PreloadURL is the local segmentation sidecar endpoint used to warm
	// the image embedding while the AI call is in flight. Empty disables
	// preloading.
	PreloadURL string `mapstructure:"preload_url"`
}

// SMSConfig contains settings for the SMS gateway. When GatewayURL is empty
// the application falls back to a log-only sender (development mode).
type SMSConfig struct {
	GatewayURL            string `mapstructure:"gateway_url"`
	SignName              string `mapstructure:"sign_name"`
	TemplateRegister      string `mapstructure:"template_register"`
	TemplateResetPassword string `mapstructure:"template_reset_password"`
}

// UploadConfig contains settings for uploaded file storage.
type UploadConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`

	// MaxBytes limits the accepted multipart body size.
	MaxBytes int64 `mapstructure:"max_bytes" validate:"required,gt=0"`
}
