// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string
	HTTPAddr string

	// PublicURL is the externally visible base URL of this gateway. It doubles
	// as the expected audience of client-issued JWTs.
	PublicURL string

	// Tenancy: "multi" resolves the tenant from the request path, "single"
	// pins every request to DefaultTenantID.
	TenantMode      string
	DefaultTenantID string

	// JWTSecret verifies tenant-management bearer tokens (HS256).
	JWTSecret string

	// RequireClientAuth flips the transitional bearer-absent-is-allowed
	// default on the client registration path.
	RequireClientAuth bool

	// Signed-request protocol (Ed25519-signed webhooks from the upstream relay).
	RequireSignatures bool
	SigningPublicKey  string // lowercase hex, 32 bytes

	// ApnsSandbox routes live sends through the APNS sandbox endpoint.
	// Credential validation always uses the sandbox, independent of this.
	ApnsSandbox bool

	RateLimit       int
	RateLimitWindow time.Duration

	// Redis & Postgres
	RedisURL    string
	DatabaseURL string
}

// fileOverlay mirrors the env-configurable fields for the optional YAML
// config file. Only non-zero values override the environment.
type fileOverlay struct {
	Env               string `yaml:"env"`
	HTTPAddr          string `yaml:"http_addr"`
	PublicURL         string `yaml:"public_url"`
	TenantMode        string `yaml:"tenant_mode"`
	DefaultTenantID   string `yaml:"default_tenant_id"`
	JWTSecret         string `yaml:"jwt_secret"`
	RequireClientAuth *bool  `yaml:"require_client_auth"`
	RequireSignatures *bool  `yaml:"require_signatures"`
	SigningPublicKey  string `yaml:"signing_public_key"`
	ApnsSandbox       *bool  `yaml:"apns_sandbox"`
	RateLimit         *int   `yaml:"rate_limit"`
	RedisURL          string `yaml:"redis_url"`
	DatabaseURL       string `yaml:"database_url"`
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:               env("PUSHGW_ENV", "dev"),
		HTTPAddr:          env("PUSHGW_HTTP_ADDR", ":8080"),
		PublicURL:         env("PUBLIC_URL", "http://localhost:8080"),
		TenantMode:        env("TENANT_MODE", "multi"),
		DefaultTenantID:   env("DEFAULT_TENANT_ID", "0"),
		JWTSecret:         env("JWT_SECRET", ""),
		RequireClientAuth: envBool("REQUIRE_CLIENT_AUTH", false),
		RequireSignatures: envBool("REQUIRE_SIGNATURES", false),
		SigningPublicKey:  env("SIGNING_PUBLIC_KEY", ""),
		ApnsSandbox:       envBool("APNS_SANDBOX", false),
		RateLimit:         envInt("RATE_LIMIT", 100),
		RateLimitWindow:   envDur("RATE_LIMIT_WINDOW_SEC", 60) * time.Second,
		RedisURL:          env("REDIS_URL", ""),
		DatabaseURL:       env("DATABASE_URL", ""),
	}
	if path := os.Getenv("PUSHGW_CONFIG_FILE"); path != "" {
		applyFile(&cfg, path)
	}
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set, using in-memory stores for dev")
	}
	if cfg.RequireSignatures && cfg.SigningPublicKey == "" {
		log.Println("[WARN] REQUIRE_SIGNATURES set without SIGNING_PUBLIC_KEY, signed requests will be rejected")
	}
	if cfg.JWTSecret == "" {
		log.Println("[WARN] JWT_SECRET not set, tenant management requests will be rejected")
	}
	return cfg
}

func applyFile(cfg *Config, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[WARN] config file %s unreadable: %v", path, err)
		return
	}
	var o fileOverlay
	if err := yaml.Unmarshal(raw, &o); err != nil {
		log.Printf("[WARN] config file %s invalid: %v", path, err)
		return
	}
	if o.Env != "" {
		cfg.Env = o.Env
	}
	if o.HTTPAddr != "" {
		cfg.HTTPAddr = o.HTTPAddr
	}
	if o.PublicURL != "" {
		cfg.PublicURL = o.PublicURL
	}
	if o.TenantMode != "" {
		cfg.TenantMode = o.TenantMode
	}
	if o.DefaultTenantID != "" {
		cfg.DefaultTenantID = o.DefaultTenantID
	}
	if o.JWTSecret != "" {
		cfg.JWTSecret = o.JWTSecret
	}
	if o.RequireClientAuth != nil {
		cfg.RequireClientAuth = *o.RequireClientAuth
	}
	if o.RequireSignatures != nil {
		cfg.RequireSignatures = *o.RequireSignatures
	}
	if o.SigningPublicKey != "" {
		cfg.SigningPublicKey = o.SigningPublicKey
	}
	if o.ApnsSandbox != nil {
		cfg.ApnsSandbox = *o.ApnsSandbox
	}
	if o.RateLimit != nil {
		cfg.RateLimit = *o.RateLimit
	}
	if o.RedisURL != "" {
		cfg.RedisURL = o.RedisURL
	}
	if o.DatabaseURL != "" {
		cfg.DatabaseURL = o.DatabaseURL
	}
}

// Multitenant reports whether tenants are resolved from the request path.
func (c Config) Multitenant() bool {
	return c.TenantMode != "single"
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return def
}
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return i
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
