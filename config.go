package session

import "time"

// SimpleConfig is a value implementation of Config with defaults applied by
// NewSimpleConfig. Applications with richer configuration layers implement
// Config directly.
type SimpleConfig struct {
	SigningKey       string
	SigningMethod    string
	ContextKey       string
	TokenExpiration  int
	TokenLookup      string
	AuthScheme       string
	Issuer           string
	Audience         []string
	LoginRoute       string
	DefaultRoute     string
	ProfileFreshness time.Duration
	ProfileRetention time.Duration
}

var _ Config = (*SimpleConfig)(nil)

func NewSimpleConfig(signingKey string) *SimpleConfig {
	return &SimpleConfig{
		SigningKey:       signingKey,
		SigningMethod:    "HS256",
		ContextKey:       "user",
		TokenExpiration:  24,
		TokenLookup:      "cookie:user,header:Authorization",
		AuthScheme:       "Bearer",
		LoginRoute:       "/login",
		DefaultRoute:     "/",
		ProfileFreshness: DefaultProfileFreshness,
		ProfileRetention: DefaultProfileRetention,
	}
}

func (c SimpleConfig) GetSigningKey() string    { return c.SigningKey }
func (c SimpleConfig) GetSigningMethod() string { return c.SigningMethod }
func (c SimpleConfig) GetContextKey() string    { return c.ContextKey }
func (c SimpleConfig) GetTokenExpiration() int  { return c.TokenExpiration }
func (c SimpleConfig) GetTokenLookup() string   { return c.TokenLookup }
func (c SimpleConfig) GetAuthScheme() string    { return c.AuthScheme }
func (c SimpleConfig) GetIssuer() string        { return c.Issuer }
func (c SimpleConfig) GetAudience() []string    { return c.Audience }
func (c SimpleConfig) GetLoginRoute() string    { return c.LoginRoute }
func (c SimpleConfig) GetDefaultRoute() string  { return c.DefaultRoute }

func (c SimpleConfig) GetProfileFreshness() time.Duration {
	if c.ProfileFreshness <= 0 {
		return DefaultProfileFreshness
	}
	return c.ProfileFreshness
}

func (c SimpleConfig) GetProfileRetention() time.Duration {
	if c.ProfileRetention <= 0 {
		return DefaultProfileRetention
	}
	return c.ProfileRetention
}
