// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// OAuth app credentials (app-level, not tenant-specific)
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// Provider endpoints. ProviderDomain is interpolated per tenant
	// (https://<subdomain>.<ProviderDomain>/oauth2/...); the GraphQL
	// endpoint is shared across tenants.
	ProviderDomain  string
	GraphQLEndpoint string
	TenantHeader    string
	UserAgent       string

	// CSRF state lifetime for the authorize redirect
	StateTTL time.Duration

	// Redis & Postgres
	RedisURL    string
	DatabaseURL string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:             env("ALCHEMY_ENV", "dev"),
		HTTPAddr:        env("ALCHEMY_HTTP_ADDR", ":8080"),
		ClientID:        env("PROVIDER_CLIENT_ID", ""),
		ClientSecret:    env("PROVIDER_CLIENT_SECRET", ""),
		RedirectURI:     env("PROVIDER_REDIRECT_URI", ""),
		ProviderDomain:  env("PROVIDER_DOMAIN", "thinkific.com"),
		GraphQLEndpoint: env("PROVIDER_GRAPHQL_ENDPOINT", "https://api.thinkific.com/stable/graphql"),
		TenantHeader:    env("PROVIDER_TENANT_HEADER", "X-Thinkific-Subdomain"),
		UserAgent:       env("PROVIDER_USER_AGENT", "LearnAlchemy/1.0"),
		StateTTL:        envDur("AUTH_STATE_TTL_SEC", 600) * time.Second,
		RedisURL:        env("REDIS_URL", ""),
		DatabaseURL:     env("DATABASE_URL", ""),
	}
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set — using in-memory session store for dev")
	}
	return cfg
}

// Configured reports whether the OAuth app credentials required for the
// authorize/callback flow are present.
func (c Config) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != ""
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return time.Duration(i)
	}
	return time.Duration(def)
}
