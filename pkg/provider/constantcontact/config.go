package constantcontact

// Config holds Constant Contact v3 API settings.
type Config struct {
	BaseURL      string `env:"CONSTANT_CONTACT_BASE_URL" envDefault:"https://api.cc.email/v3"`
	TokenURL     string `env:"CONSTANT_CONTACT_TOKEN_URL" envDefault:"https://authz.constantcontact.com/oauth2/default/v1/token"`
	ClientID     string `env:"CONSTANT_CONTACT_CLIENT_ID"`
	ClientSecret string `env:"CONSTANT_CONTACT_CLIENT_SECRET"`
}
