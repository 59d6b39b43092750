package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	greenauth "github.com/mimigigabyte/greenauth"
	"github.com/mimigigabyte/greenauth/gateway"
	"github.com/mimigigabyte/greenauth/httpapi"
	"github.com/mimigigabyte/greenauth/store"
)

func main() {
	// Missing .env is fine in containerized deployments; the environment is
	// already populated there.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("greenauth-server: logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := gorm.Open(postgres.Open(mustEnv(logger, "DATABASE_DSN")), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	cfg := buildConfig(logger)

	builder := greenauth.New().
		WithConfig(cfg).
		WithDB(db).
		WithAuditSink(greenauth.NewJSONWriterSink(os.Stdout))

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		builder = builder.WithRedis(redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		}))
	}

	if endpoint := os.Getenv("SMS_ENDPOINT"); endpoint != "" {
		sms, err := gateway.NewHTTPSMSSender(gateway.SMSConfig{
			Endpoint: endpoint,
			APIKey:   os.Getenv("SMS_API_KEY"),
		})
		if err != nil {
			logger.Fatal("sms gateway", zap.Error(err))
		}
		builder = builder.WithSMSGateway(sms)
	}

	if endpoint := os.Getenv("EMAIL_ENDPOINT"); endpoint != "" {
		email, err := gateway.NewHTTPEmailSender(gateway.EmailConfig{
			Endpoint: endpoint,
			APIKey:   os.Getenv("EMAIL_API_KEY"),
			From:     os.Getenv("EMAIL_FROM"),
		})
		if err != nil {
			logger.Fatal("email gateway", zap.Error(err))
		}
		builder = builder.WithEmailGateway(email)
	}

	engine, err := builder.Build()
	if err != nil {
		logger.Fatal("build engine", zap.Error(err))
	}
	defer engine.Close()

	// Hygienic cleanup of dead verification codes; correctness never depends
	// on it.
	go purgeLoop(logger, db)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	server := httpapi.NewServer(engine, logger)
	logger.Info("listening", zap.String("addr", addr))
	if err := server.Router().Run(addr); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}

func buildConfig(logger *zap.Logger) greenauth.Config {
	cfg := greenauth.DefaultConfig()

	cfg.Token.Secret = []byte(mustEnv(logger, "TOKEN_SECRET"))
	cfg.Token.Issuer = envOr("TOKEN_ISSUER", cfg.Token.Issuer)
	cfg.Token.AccessTTL = envDuration(logger, "ACCESS_TTL", cfg.Token.AccessTTL)
	cfg.Token.RefreshTTL = envDuration(logger, "REFRESH_TTL", cfg.Token.RefreshTTL)

	if cost := os.Getenv("BCRYPT_COST"); cost != "" {
		n, err := strconv.Atoi(cost)
		if err != nil {
			logger.Fatal("parse BCRYPT_COST", zap.Error(err))
		}
		cfg.Password.Cost = n
	}

	cfg.OAuth.ClientID = os.Getenv("OAUTH_CLIENT_ID")
	cfg.OAuth.ClientSecret = os.Getenv("OAUTH_CLIENT_SECRET")
	cfg.OAuth.AuthorizeURL = os.Getenv("OAUTH_AUTHORIZE_URL")
	cfg.OAuth.TokenURL = os.Getenv("OAUTH_TOKEN_URL")
	cfg.OAuth.ProfileURL = os.Getenv("OAUTH_PROFILE_URL")

	return cfg
}

func purgeLoop(logger *zap.Logger, db *gorm.DB) {
	codes := store.NewCodeStore(db)
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		purged, err := codes.PurgeExpired(context.Background(), time.Now().UTC())
		if err != nil {
			logger.Warn("purge verification codes", zap.Error(err))
			continue
		}
		if purged > 0 {
			logger.Info("purged verification codes", zap.Int64("count", purged))
		}
	}
}

func mustEnv(logger *zap.Logger, key string) string {
	value := os.Getenv(key)
	if value == "" {
		logger.Fatal("missing required environment variable", zap.String("key", key))
	}
	return value
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envDuration(logger *zap.Logger, key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Fatal("parse duration", zap.String("key", key), zap.Error(err))
	}
	return d
}
