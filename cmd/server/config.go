package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Config holds all configuration options, parsed once in main().
type Config struct {
	Port   string `long:"port" env:"PORT" default:"8443" description:"Server port"`
	Issuer string `long:"issuer" env:"ISSUER" default:"http://localhost:8443" description:"IdP issuer identity, used as iss/aud and in discovery"`

	ProductionMode            bool `long:"production-mode" env:"PRODUCTION_MODE" description:"Sets the Secure flag on all cookies"`
	EmailVerificationRequired bool `long:"email-verification-required" env:"EMAIL_VERIFICATION_REQUIRED" description:"Gates /auth/me and /oauth/authorize on emailVerified"`

	AccessTokenSecret  string `long:"access-token-secret" env:"ACCESS_TOKEN_SECRET" required:"true" description:"HMAC key for access and ID tokens"`
	IDTokenSecret      string `long:"id-token-secret" env:"ID_TOKEN_SECRET" description:"HMAC key for ID tokens; defaults to access-token-secret if unset"`
	RefreshTokenSecret string `long:"refresh-token-secret" env:"REFRESH_TOKEN_SECRET" required:"true" description:"HMAC key for refresh tokens; must differ from access-token-secret"`

	CookieDomain string `long:"cookie-domain" env:"COOKIE_DOMAIN" description:"Parent suffix for sso_session; leave empty for host-only"`

	AccessTTL  time.Duration `long:"access-ttl" env:"ACCESS_TTL" default:"24h" description:"Access and ID token lifetime"`
	RefreshTTL time.Duration `long:"refresh-ttl" env:"REFRESH_TTL" default:"720h" description:"Refresh token lifetime"`
	CodeTTL    time.Duration `long:"code-ttl" env:"CODE_TTL" default:"10m" description:"Authorization code lifetime; changing requires matching JWT lifetimes"`

	PasswordHashCost int `long:"password-hash-cost" env:"PASSWORD_HASH_COST" default:"12" description:"bcrypt cost parameter"`

	// UsersMode/AuthCodesMode/ClientsMode select a backend per
	// persistence port, generalizing the teacher's single StorageMode
	// switch across the four C3 ports.
	UsersMode     string `long:"users-mode" env:"USERS_MODE" default:"memory" choice:"memory" choice:"postgres" description:"Users/RefreshTokens backend"`
	AuthCodesMode string `long:"auth-codes-mode" env:"AUTH_CODES_MODE" default:"memory" choice:"memory" choice:"postgres" choice:"redis" description:"AuthCodes backend"`
	ClientsMode   string `long:"clients-mode" env:"CLIENTS_MODE" default:"filesystem" choice:"filesystem" choice:"s3" description:"Clients backend"`

	DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"Postgres connection string, required when users-mode or auth-codes-mode is postgres"`
	ClientsPath string `long:"clients-path" env:"CLIENTS_PATH" default:"./clients.yaml" description:"YAML client registry, used when clients-mode is filesystem"`

	S3 struct {
		Endpoint  string `long:"s3-endpoint" env:"S3_ENDPOINT" default:"localhost:9000" description:"S3 endpoint (host:port)"`
		Bucket    string `long:"s3-bucket" env:"S3_BUCKET" default:"idp-clients" description:"S3 bucket name"`
		AccessKey string `long:"s3-access-key" env:"S3_ACCESS_KEY" default:"minioadmin" description:"S3 access key"`
		SecretKey string `long:"s3-secret-key" env:"S3_SECRET_KEY" default:"minioadmin" description:"S3 secret key"`
		UseSSL    bool   `long:"s3-use-ssl" env:"S3_USE_SSL" description:"Use SSL for S3 connections"`
	} `group:"S3 Storage Options"`

	Redis struct {
		Addr     string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address"`
		Password string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
		DB       int    `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database number"`
	} `group:"Redis Options"`
}

// LoadConfig parses configuration from environment variables and command line flags.
func LoadConfig() (*Config, error) {
	var config Config

	parser := flags.NewParser(&config, flags.Default)
	parser.Usage = "[OPTIONS]"

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.RefreshTokenSecret == config.AccessTokenSecret {
		return nil, fmt.Errorf("refresh-token-secret must differ from access-token-secret")
	}

	return &config, nil
}
