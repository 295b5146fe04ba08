package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Session store backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
)

// Config is the process configuration, parsed from the environment
type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	AppURL string `env:"APP_URL" envDefault:"http://localhost:8080"`

	// App credentials. The API key doubles as the session token audience.
	APIKey    string `env:"SHOPIFY_API_KEY,required,notEmpty"`
	APISecret string `env:"SHOPIFY_API_SECRET,required,notEmpty"`

	// Scopes the app requests at install
	Scopes []string `env:"SHOPIFY_SCOPES" envSeparator:"," envDefault:"read_products"`

	// APIVersion pins the Admin API version; empty uses the library default
	APIVersion string `env:"SHOPIFY_API_VERSION"`

	// OnlineSessions selects per-user sessions over shop-wide ones
	OnlineSessions bool `env:"SHOPIFY_ONLINE_SESSIONS" envDefault:"false"`

	LoginPath string `env:"LOGIN_PATH" envDefault:"/login"`

	// SessionStore selects the backend: memory, redis or mongo
	SessionStore string `env:"SESSION_STORE" envDefault:"memory"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"shopify_embed_auth"`

	// EncryptionKey encrypts access tokens at rest; empty stores them as-is
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	CookieDomain  string `env:"COOKIE_DOMAIN"`
	SecureCookies bool   `env:"SECURE_COOKIES" envDefault:"true"`
}

// Load parses the configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RedirectURI is the OAuth callback URL registered with the platform
func (c *Config) RedirectURI() string {
	return c.AppURL + "/auth/callback"
}

func (c *Config) validate() error {
	switch c.SessionStore {
	case StoreMemory, StoreRedis, StoreMongo:
		return nil
	default:
		return fmt.Errorf("unknown session store %q", c.SessionStore)
	}
}
