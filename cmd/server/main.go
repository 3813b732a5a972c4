package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coreauth/idp/internal/api"
	"github.com/coreauth/idp/internal/auth"
	"github.com/coreauth/idp/internal/oauth"
	"github.com/coreauth/idp/internal/session"
	"github.com/coreauth/idp/internal/storage"
	"github.com/coreauth/idp/internal/storage/postgres"
	"github.com/coreauth/idp/internal/tokens"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var pg *postgres.Store
	if cfg.UsersMode == "postgres" || cfg.AuthCodesMode == "postgres" {
		pg, err = postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
	}

	var mem *storage.MemoryStore
	needsMemory := cfg.UsersMode == "memory" || cfg.AuthCodesMode == "memory"
	if needsMemory {
		mem = storage.NewMemoryStore()
	}

	var users storage.Users
	var refreshTokens storage.RefreshTokens
	switch cfg.UsersMode {
	case "postgres":
		users, refreshTokens = pg, pg
		slog.Info("using postgres for users and refresh tokens")
	default:
		users, refreshTokens = mem, mem
		slog.Warn("using in-memory users and refresh tokens (not persistent)")
	}

	var authCodes storage.AuthCodes
	switch cfg.AuthCodesMode {
	case "postgres":
		authCodes = pg
		slog.Info("using postgres for auth codes")
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		authCodes = storage.NewRedisAuthCodes(redisClient)
		slog.Info("using redis for auth codes", "addr", cfg.Redis.Addr)
	default:
		authCodes = mem
		slog.Warn("using in-memory auth codes (not persistent)")
	}

	var clients storage.Clients
	switch cfg.ClientsMode {
	case "s3":
		s3Clients, err := storage.NewS3Clients(cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Bucket, cfg.S3.UseSSL)
		if err != nil {
			slog.Error("failed to create S3 client store", "error", err)
			os.Exit(1)
		}
		clients = s3Clients
		slog.Info("using S3 client registry", "endpoint", cfg.S3.Endpoint, "bucket", cfg.S3.Bucket)
	default:
		fsClients, err := storage.NewFilesystemClients(cfg.ClientsPath)
		if err != nil {
			slog.Error("failed to load client registry", "error", err)
			os.Exit(1)
		}
		clients = fsClients
		slog.Info("using filesystem client registry", "path", cfg.ClientsPath)
	}

	codec := tokens.New(
		[]byte(cfg.AccessTokenSecret),
		[]byte(cfg.IDTokenSecret),
		[]byte(cfg.RefreshTokenSecret),
		cfg.Issuer,
		cfg.Issuer,
		cfg.AccessTTL,
		cfg.RefreshTTL,
	)

	authService := auth.NewService(users, refreshTokens, codec, cfg.PasswordHashCost)
	oauthService := oauth.NewService(clients, authCodes, users, refreshTokens, codec, cfg.CodeTTL)

	cookies := &session.Adapter{
		CookieDomain: cfg.CookieDomain,
		Secure:       cfg.ProductionMode,
		AccessTTL:    cfg.AccessTTL,
		RefreshTTL:   cfg.RefreshTTL,
	}

	apiServer := api.NewServer(authService, oauthService, codec, cookies, cfg.EmailVerificationRequired)

	if pg != nil {
		go cleanupRoutine(pg, pg)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", apiServer.RegisterHandler)
	mux.HandleFunc("POST /auth/login", apiServer.LoginHandler)
	mux.HandleFunc("POST /auth/refresh", apiServer.RefreshHandler)
	mux.HandleFunc("POST /auth/logout", apiServer.LogoutHandler)
	mux.HandleFunc("GET /auth/me", apiServer.MeHandler)

	mux.HandleFunc("GET /oauth/authorize", apiServer.AuthorizeHandler)
	mux.HandleFunc("POST /oauth/token", apiServer.TokenHandler)

	mux.HandleFunc("GET /.well-known/openid-configuration", apiServer.DiscoveryHandler(cfg.Issuer))

	mux.HandleFunc("GET /health", apiServer.HealthHandler)

	handler := api.LoggingMiddleware(api.CORSMiddleware(mux))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	fmt.Printf("Identity provider starting on http://localhost:%s\n", cfg.Port)
	fmt.Println("  POST /auth/register")
	fmt.Println("  POST /auth/login")
	fmt.Println("  POST /auth/refresh")
	fmt.Println("  POST /auth/logout")
	fmt.Println("  GET  /auth/me")
	fmt.Println("  GET  /oauth/authorize")
	fmt.Println("  POST /oauth/token")
	fmt.Println("  GET  /.well-known/openid-configuration")
	fmt.Println("  GET  /health")

	if err := server.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// cleanupRoutine sweeps dead refresh records and expired auth codes
// from the postgres backend on the same cadence the in-memory store
// uses for itself.
func cleanupRoutine(refreshTokens storage.RefreshTokens, authCodes storage.AuthCodes) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		if n, err := refreshTokens.DeleteDeadBefore(context.Background(), now); err != nil {
			slog.Error("cleanup: sweep refresh tokens failed", "error", err)
		} else if n > 0 {
			slog.Info("cleanup: swept dead refresh tokens", "count", n)
		}
		if n, err := authCodes.DeleteExpiredBefore(context.Background(), now); err != nil {
			slog.Error("cleanup: sweep auth codes failed", "error", err)
		} else if n > 0 {
			slog.Info("cleanup: swept expired auth codes", "count", n)
		}
	}
}
