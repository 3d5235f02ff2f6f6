package resendesp

// Config holds Resend API settings.
type Config struct {
	APIKey string `env:"RESEND_API_KEY"`

	// DefaultAudienceID is the audience used for lookups, deletes, and
	// writes that request no lists. Resend scopes contacts to audiences,
	// so a home audience is required.
	DefaultAudienceID string `env:"RESEND_DEFAULT_AUDIENCE_ID"`
}
